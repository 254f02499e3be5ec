package model

import "time"

type RelationshipKind string

const (
	RelationshipKindFollow   RelationshipKind = "follow"
	RelationshipKindLike     RelationshipKind = "like"
	RelationshipKindBookmark RelationshipKind = "bookmark"
)

func (k RelationshipKind) Valid() bool {
	switch k {
	case RelationshipKindFollow, RelationshipKindLike, RelationshipKindBookmark:
		return true
	}
	return false
}

// Relationship is the single on/off record behind follow, like and bookmark.
// The primary key (ActorID, TargetID, Kind) is the whole correctness contract:
// a relationship exists once or not at all.
type Relationship struct {
	ActorID   UserID           `db:"ActorID"`
	TargetID  string           `db:"TargetID"`
	Kind      RelationshipKind `db:"Kind"`
	CreatedAt time.Time        `db:"CreatedAt"`
}

type EntityKind string

const (
	EntityKindPost    EntityKind = "post"
	EntityKindComment EntityKind = "comment"
)

// Entity is the minimal surface this core needs of likeable/bookmarkable
// content owned elsewhere: existence, an owner to notify, and counters.
type Entity struct {
	ID            string     `db:"ID"`
	OwnerID       UserID     `db:"OwnerID"`
	Kind          EntityKind `db:"Kind"`
	CreatedAt     time.Time  `db:"CreatedAt"`
	LikeCount     int        `db:"LikeCount"`
	BookmarkCount int        `db:"BookmarkCount"`
	IsActive      bool       `db:"IsActive"`
}
