package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/queue"
)

type Database interface {
	InsertNotification(notification *model.Notification) error
	ListNotifications(recipientID model.UserID, unreadOnly bool, now time.Time, page, pageSize int) ([]model.Notification, error)
	MarkNotificationRead(notificationID model.NotificationID, recipientID model.UserID, at time.Time) error
	MarkAllNotificationsRead(recipientID model.UserID, at time.Time) (int64, error)
	ArchiveNotification(notificationID model.NotificationID, recipientID model.UserID) error
	DeleteNotification(notificationID model.NotificationID, recipientID model.UserID) error
	UnreadNotificationCount(recipientID model.UserID, now time.Time) (int, error)
	PurgeExpiredNotifications(now time.Time) (int64, error)
}

type service struct {
	db       Database
	enqueuer queue.Enqueuer // nil when no delivery worker is configured
}

func New(db Database, enqueuer queue.Enqueuer) *service {
	return &service{db: db, enqueuer: enqueuer}
}

type deliveryPayload struct {
	NotificationID model.NotificationID `json:"notificationId"`
	RecipientID    model.UserID         `json:"recipientId"`
	Channels       []string             `json:"channels"`
}

// Notify creates a notification for the recipient. A user is never notified
// about their own action. Failures are logged and swallowed: a notification
// write must never unwind the action that triggered it. In-app delivery is
// complete once the row exists; email and push are handed to the external
// delivery worker when one is configured.
func (s *service) Notify(notificationType model.NotificationType, senderID, recipientID model.UserID, entityRef string) {
	if senderID == recipientID {
		return
	}

	now := time.Now().UTC()
	notification := &model.Notification{
		ID:               model.NotificationID(model.CreateID()),
		RecipientID:      recipientID,
		SenderID:         senderID,
		Type:             notificationType,
		EntityRef:        entityRef,
		Priority:         model.NotificationPriorityNormal,
		CreatedAt:        now,
		ExpiresAt:        now.Add(notificationType.TTL()),
		InAppDeliveredAt: &now,
	}

	if err := s.db.InsertNotification(notification); err != nil {
		log.Errorf("creating %s notification for %s: %+v", notificationType, recipientID, err)
		return
	}

	if s.enqueuer == nil {
		return
	}
	payload, err := json.Marshal(deliveryPayload{
		NotificationID: notification.ID,
		RecipientID:    recipientID,
		Channels:       []string{"email", "push"},
	})
	if err != nil {
		log.Errorf("marshalling delivery payload: %+v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.enqueuer.Enqueue(ctx, queue.Task{Type: queue.TaskNotificationDeliver, Payload: payload}); err != nil {
		log.Errorf("enqueueing delivery for %s: %+v", notification.ID, err)
	}
}

func (s *service) List(recipientID model.UserID, unreadOnly bool, page, pageSize int) ([]model.Notification, error) {
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.db.ListNotifications(recipientID, unreadOnly, time.Now().UTC(), page, pageSize)
}

func (s *service) MarkRead(notificationID model.NotificationID, recipientID model.UserID) error {
	return s.db.MarkNotificationRead(notificationID, recipientID, time.Now().UTC())
}

func (s *service) MarkAllRead(recipientID model.UserID) (int64, error) {
	return s.db.MarkAllNotificationsRead(recipientID, time.Now().UTC())
}

func (s *service) Archive(notificationID model.NotificationID, recipientID model.UserID) error {
	return s.db.ArchiveNotification(notificationID, recipientID)
}

func (s *service) Delete(notificationID model.NotificationID, recipientID model.UserID) error {
	return s.db.DeleteNotification(notificationID, recipientID)
}

func (s *service) UnreadCount(recipientID model.UserID) (int, error) {
	return s.db.UnreadNotificationCount(recipientID, time.Now().UTC())
}

// PurgeExpired removes rows past their expiration. Expired notifications are
// already invisible to reads; this just reclaims space.
func (s *service) PurgeExpired() {
	purged, err := s.db.PurgeExpiredNotifications(time.Now().UTC())
	if err != nil {
		log.Errorf("purging expired notifications: %+v", err)
		return
	}
	if purged > 0 {
		log.Infof("purged %d expired notifications", purged)
	}
}
