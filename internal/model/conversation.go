package model

import "time"

type ConversationID string

type ConversationType string

const (
	ConversationTypeDirect ConversationType = "direct"
	ConversationTypeGroup  ConversationType = "group"
)

type Conversation struct {
	ID            ConversationID   `db:"ID"`
	Type          ConversationType `db:"Type"`
	PairKey       *string          `db:"PairKey"` // set for direct conversations only
	CreatedAt     time.Time        `db:"CreatedAt"`
	LastMessageID *MessageID       `db:"LastMessageID"`
	LastMessageAt *time.Time       `db:"LastMessageAt"`
	LastSeq       int64            `db:"LastSeq"`
	IsActive      bool             `db:"IsActive"`
}

type Participant struct {
	ConversationID ConversationID `db:"ConversationID"`
	UserID         UserID         `db:"UserID"`
	JoinedAt       time.Time      `db:"JoinedAt"`
}

// ConversationSummary is a conversation as seen by one user: the listing
// surface adds the peer and that user's unread count.
type ConversationSummary struct {
	Conversation
	PeerID      UserID `db:"PeerID"`
	UnreadCount int    `db:"UnreadCount"`
}
