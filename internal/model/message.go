package model

import "time"

type MessageID string

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeFile   MessageType = "file"
	MessageTypeSystem MessageType = "system"
)

// MaxMessageLength bounds message content; anything longer is rejected before
// it reaches the store.
const MaxMessageLength = 4000

// EditWindow is how long after creation a sender may still edit a message.
const EditWindow = 15 * time.Minute

type Message struct {
	ID             MessageID      `db:"ID"`
	ConversationID ConversationID `db:"ConversationID"`
	Seq            int64          `db:"Seq"`
	SenderID       UserID         `db:"SenderID"`
	Content        string         `db:"Content"`
	ContentType    MessageType    `db:"ContentType"`
	CreatedAt      time.Time      `db:"CreatedAt"`
	IsEdited       bool           `db:"IsEdited"`
	EditedAt       *time.Time     `db:"EditedAt"`
	PriorContent   *string        `db:"PriorContent"`
	IsDeleted      bool           `db:"IsDeleted"`
	DeletedAt      *time.Time     `db:"DeletedAt"`
	ReplyToID      *MessageID     `db:"ReplyToID"`
}

type ReceiptKind string

const (
	ReceiptKindDelivered ReceiptKind = "delivered"
	ReceiptKindRead      ReceiptKind = "read"
)

type Receipt struct {
	MessageID MessageID   `db:"MessageID"`
	UserID    UserID      `db:"UserID"`
	Kind      ReceiptKind `db:"Kind"`
	MarkedAt  time.Time   `db:"MarkedAt"`
}

type Reaction struct {
	MessageID MessageID `db:"MessageID"`
	UserID    UserID    `db:"UserID"`
	Emoji     string    `db:"Emoji"`
	CreatedAt time.Time `db:"CreatedAt"`
}
