package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uk.co.dudmesh.waggle/internal/model"
)

func (d *store) CreateUser(user *model.User) error {
	res, err := d.db.NamedExec(`insert into user
		(ID, CreatedAt, Status, Handle, Profile)
		values(:ID, :CreatedAt, :Status, :Handle, :Profile)`, user)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	if rows, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	} else if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
	return nil
}

func (d *store) FetchUser(userID model.UserID) (*model.User, error) {
	user := &model.User{}
	err := d.db.Get(user, `select * from user where ID = ? and Status = ?`,
		userID, model.UserStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

// AdjustFollowCounts applies the denormalized follower/following deltas for a
// follow toggle in one statement per side. Deltas are applied atomically by
// the database; there is no read-modify-write.
func (d *store) AdjustFollowCounts(actorID, targetID model.UserID, delta int) error {
	if _, err := d.db.Exec(`update user set FollowingCount = FollowingCount + ? where ID = ?`,
		delta, actorID); err != nil {
		return fmt.Errorf("adjusting following count: %w", err)
	}
	if _, err := d.db.Exec(`update user set FollowerCount = FollowerCount + ? where ID = ?`,
		delta, targetID); err != nil {
		return fmt.Errorf("adjusting follower count: %w", err)
	}
	return nil
}

func (d *store) SetOnline(userID model.UserID, online bool, at time.Time) error {
	_, err := d.db.Exec(`update user set IsOnline = ?, LastSeenAt = ? where ID = ?`,
		online, at, userID)
	if err != nil {
		return fmt.Errorf("setting online state: %w", err)
	}
	return nil
}

func (d *store) FetchEntity(entityID string) (*model.Entity, error) {
	entity := &model.Entity{}
	err := d.db.Get(entity, `select * from entity where ID = ? and IsActive = 1`, entityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorEntityNotFound
		}
		return nil, fmt.Errorf("fetching entity: %w", err)
	}
	return entity, nil
}

func (d *store) CreateEntity(entity *model.Entity) error {
	_, err := d.db.NamedExec(`insert into entity
		(ID, OwnerID, Kind, CreatedAt, IsActive)
		values(:ID, :OwnerID, :Kind, :CreatedAt, :IsActive)`, entity)
	if err != nil {
		return fmt.Errorf("inserting entity: %w", err)
	}
	return nil
}

func (d *store) AdjustEntityCount(entityID string, kind model.RelationshipKind, delta int) error {
	var column string
	switch kind {
	case model.RelationshipKindLike:
		column = "LikeCount"
	case model.RelationshipKindBookmark:
		column = "BookmarkCount"
	default:
		return model.ErrorInvalidRelationshipKind
	}
	_, err := d.db.Exec(`update entity set `+column+` = `+column+` + ? where ID = ?`,
		delta, entityID)
	if err != nil {
		return fmt.Errorf("adjusting entity count: %w", err)
	}
	return nil
}
