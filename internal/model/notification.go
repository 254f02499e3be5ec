package model

import "time"

type NotificationID string

type NotificationType string

const (
	NotificationTypeFollow        NotificationType = "follow"
	NotificationTypeLike          NotificationType = "like"
	NotificationTypeComment       NotificationType = "comment"
	NotificationTypeMessage       NotificationType = "message"
	NotificationTypeMention       NotificationType = "mention"
	NotificationTypeBlogPublished NotificationType = "blog_published"
	NotificationTypeSystem        NotificationType = "system"
)

type NotificationPriority int

const (
	NotificationPriorityLow NotificationPriority = iota
	NotificationPriorityNormal
	NotificationPriorityHigh
)

// TTL returns how long a notification of this type stays live. Chat messages
// are ephemeral; system notices stick around.
func (t NotificationType) TTL() time.Duration {
	switch t {
	case NotificationTypeMessage:
		return 24 * time.Hour
	case NotificationTypeBlogPublished:
		return 7 * 24 * time.Hour
	case NotificationTypeSystem:
		return 90 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

type Notification struct {
	ID               NotificationID       `db:"ID"`
	RecipientID      UserID               `db:"RecipientID"`
	SenderID         UserID               `db:"SenderID"`
	Type             NotificationType     `db:"Type"`
	EntityRef        string               `db:"EntityRef"`
	Priority         NotificationPriority `db:"Priority"`
	IsRead           bool                 `db:"IsRead"`
	ReadAt           *time.Time           `db:"ReadAt"`
	IsArchived       bool                 `db:"IsArchived"`
	CreatedAt        time.Time            `db:"CreatedAt"`
	ExpiresAt        time.Time            `db:"ExpiresAt"`
	InAppDeliveredAt *time.Time           `db:"InAppDeliveredAt"`
	EmailDeliveredAt *time.Time           `db:"EmailDeliveredAt"`
	PushDeliveredAt  *time.Time           `db:"PushDeliveredAt"`
}
