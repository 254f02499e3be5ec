package relationship

import (
	"fmt"
	"time"

	"uk.co.dudmesh.waggle/internal/model"
)

type Database interface {
	FetchUser(userID model.UserID) (*model.User, error)
	FetchEntity(entityID string) (*model.Entity, error)
	InsertRelationship(rel *model.Relationship) (bool, error)
	DeleteRelationship(actorID model.UserID, targetID string, kind model.RelationshipKind) (bool, error)
	FetchRelationship(actorID model.UserID, targetID string, kind model.RelationshipKind) (*model.Relationship, error)
	AdjustFollowCounts(actorID, targetID model.UserID, delta int) error
	AdjustEntityCount(entityID string, kind model.RelationshipKind, delta int) error
}

type Notifier interface {
	Notify(notificationType model.NotificationType, senderID, recipientID model.UserID, entityRef string)
}

type service struct {
	db       Database
	notifier Notifier
}

func New(db Database, notifier Notifier) *service {
	return &service{db: db, notifier: notifier}
}

// ToggleFollow flips the follow relationship between actor and target and
// returns the resulting state. The delete is attempted first: its row count
// is the atomic "did it exist" check. If nothing was deleted we insert, and a
// duplicate-key failure from a concurrent toggle is reconciled into a
// successful toggle-on; the race winner already moved the counters.
func (s *service) ToggleFollow(actorID, targetID model.UserID) (bool, error) {
	if actorID == targetID {
		return false, model.ErrorSelfRelationship
	}
	if _, err := s.db.FetchUser(targetID); err != nil {
		return false, err
	}

	deleted, err := s.db.DeleteRelationship(actorID, string(targetID), model.RelationshipKindFollow)
	if err != nil {
		return false, fmt.Errorf("toggling follow off: %w", err)
	}
	if deleted {
		if err := s.db.AdjustFollowCounts(actorID, targetID, -1); err != nil {
			return false, err
		}
		return false, nil
	}

	inserted, err := s.db.InsertRelationship(&model.Relationship{
		ActorID:   actorID,
		TargetID:  string(targetID),
		Kind:      model.RelationshipKindFollow,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("toggling follow on: %w", err)
	}
	if !inserted {
		// lost the race to a concurrent toggle-on; same outcome
		return true, nil
	}

	if err := s.db.AdjustFollowCounts(actorID, targetID, 1); err != nil {
		return false, err
	}
	s.notifier.Notify(model.NotificationTypeFollow, actorID, targetID, string(actorID))
	return true, nil
}

// ToggleLike flips a like on a content entity, maintaining the entity's like
// counter and notifying the owner on toggle-on.
func (s *service) ToggleLike(actorID model.UserID, entityID string) (bool, error) {
	return s.toggleEntity(actorID, entityID, model.RelationshipKindLike)
}

// ToggleBookmark flips a bookmark on a content entity. Bookmarks are private;
// no notification is emitted.
func (s *service) ToggleBookmark(actorID model.UserID, entityID string) (bool, error) {
	return s.toggleEntity(actorID, entityID, model.RelationshipKindBookmark)
}

func (s *service) toggleEntity(actorID model.UserID, entityID string, kind model.RelationshipKind) (bool, error) {
	entity, err := s.db.FetchEntity(entityID)
	if err != nil {
		return false, err
	}

	deleted, err := s.db.DeleteRelationship(actorID, entityID, kind)
	if err != nil {
		return false, fmt.Errorf("toggling %s off: %w", kind, err)
	}
	if deleted {
		if err := s.db.AdjustEntityCount(entityID, kind, -1); err != nil {
			return false, err
		}
		return false, nil
	}

	inserted, err := s.db.InsertRelationship(&model.Relationship{
		ActorID:   actorID,
		TargetID:  entityID,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("toggling %s on: %w", kind, err)
	}
	if !inserted {
		return true, nil
	}

	if err := s.db.AdjustEntityCount(entityID, kind, 1); err != nil {
		return false, err
	}
	if kind == model.RelationshipKindLike && entity.OwnerID != actorID {
		s.notifier.Notify(model.NotificationTypeLike, actorID, entity.OwnerID, entityID)
	}
	return true, nil
}

// IsFollowing reports the current follow state without mutating it.
func (s *service) IsFollowing(actorID, targetID model.UserID) (bool, error) {
	rel, err := s.db.FetchRelationship(actorID, string(targetID), model.RelationshipKindFollow)
	if err != nil {
		return false, err
	}
	return rel != nil, nil
}
