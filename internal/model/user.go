package model

import "time"

type UserID string

type UserStatus int

const (
	UserStatusPending UserStatus = iota
	UserStatusActive
	UserStatusLocked
	UserStatusDeleted
)

type User struct {
	ID             UserID     `db:"ID"`
	CreatedAt      time.Time  `db:"CreatedAt"`
	UpdatedAt      *time.Time `db:"UpdatedAt"`
	Status         UserStatus `db:"Status"`
	Handle         string     `db:"Handle"`
	Profile        string     `db:"Profile"`
	FollowerCount  int        `db:"FollowerCount"`
	FollowingCount int        `db:"FollowingCount"`
	IsOnline       bool       `db:"IsOnline"`
	LastSeenAt     *time.Time `db:"LastSeenAt"`
}
