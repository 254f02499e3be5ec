package store

import (
	"database/sql"
	"errors"
	"fmt"

	"uk.co.dudmesh.waggle/internal/model"
)

// InsertRelationship attempts the toggle-on insert. The second return value
// reports whether the row already existed: a concurrent toggle may have won
// the race, and the primary key violation is the signal, not an error.
func (d *store) InsertRelationship(rel *model.Relationship) (bool, error) {
	_, err := d.db.NamedExec(`insert into relationship
		(ActorID, TargetID, Kind, CreatedAt)
		values(:ActorID, :TargetID, :Kind, :CreatedAt)`, rel)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("inserting relationship: %w", err)
	}
	return true, nil
}

// DeleteRelationship removes the record if present and reports whether a row
// was actually deleted, so callers only decrement counters for real removals.
func (d *store) DeleteRelationship(actorID model.UserID, targetID string, kind model.RelationshipKind) (bool, error) {
	res, err := d.db.Exec(`delete from relationship
		where ActorID = ? and TargetID = ? and Kind = ?`, actorID, targetID, kind)
	if err != nil {
		return false, fmt.Errorf("deleting relationship: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows > 0, nil
}

func (d *store) FetchRelationship(actorID model.UserID, targetID string, kind model.RelationshipKind) (*model.Relationship, error) {
	rel := &model.Relationship{}
	err := d.db.Get(rel, `select * from relationship
		where ActorID = ? and TargetID = ? and Kind = ?`, actorID, targetID, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching relationship: %w", err)
	}
	return rel, nil
}

// CountFollowers walks the relationship table rather than trusting the
// denormalized counter. Used by tests and reconciliation jobs.
func (d *store) CountFollowers(targetID model.UserID) (int, error) {
	var count int
	err := d.db.Get(&count, `select count(*) from relationship
		where TargetID = ? and Kind = ?`, targetID, model.RelationshipKindFollow)
	if err != nil {
		return 0, fmt.Errorf("counting followers: %w", err)
	}
	return count, nil
}
