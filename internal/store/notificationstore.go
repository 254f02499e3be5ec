package store

import (
	"fmt"
	"time"

	"uk.co.dudmesh.waggle/internal/model"
)

func (d *store) InsertNotification(notification *model.Notification) error {
	_, err := d.db.NamedExec(`insert into notification
		(ID, RecipientID, SenderID, Type, EntityRef, Priority, CreatedAt, ExpiresAt, InAppDeliveredAt)
		values(:ID, :RecipientID, :SenderID, :Type, :EntityRef, :Priority, :CreatedAt, :ExpiresAt, :InAppDeliveredAt)`,
		notification)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListNotifications returns a page of unexpired notifications for the
// recipient, newest first. An expired notification simply stops appearing; a
// purge job removes the rows later.
func (d *store) ListNotifications(recipientID model.UserID, unreadOnly bool, now time.Time, page, pageSize int) ([]model.Notification, error) {
	if page < 1 {
		page = 1
	}
	query := `select * from notification
		where RecipientID = ? and ExpiresAt > ? and IsArchived = 0`
	if unreadOnly {
		query += ` and IsRead = 0`
	}
	query += ` order by CreatedAt desc limit ? offset ?`

	notifications := []model.Notification{}
	err := d.db.Select(&notifications, query, recipientID, now, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return notifications, nil
}

func (d *store) MarkNotificationRead(notificationID model.NotificationID, recipientID model.UserID, at time.Time) error {
	res, err := d.db.Exec(`update notification set IsRead = 1, ReadAt = ?
		where ID = ? and RecipientID = ?`, at, notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrorNotificationNotFound
	}
	return nil
}

func (d *store) MarkAllNotificationsRead(recipientID model.UserID, at time.Time) (int64, error) {
	res, err := d.db.Exec(`update notification set IsRead = 1, ReadAt = ?
		where RecipientID = ? and IsRead = 0`, at, recipientID)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows, nil
}

func (d *store) ArchiveNotification(notificationID model.NotificationID, recipientID model.UserID) error {
	res, err := d.db.Exec(`update notification set IsArchived = 1
		where ID = ? and RecipientID = ?`, notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("archiving notification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrorNotificationNotFound
	}
	return nil
}

func (d *store) DeleteNotification(notificationID model.NotificationID, recipientID model.UserID) error {
	res, err := d.db.Exec(`delete from notification
		where ID = ? and RecipientID = ?`, notificationID, recipientID)
	if err != nil {
		return fmt.Errorf("deleting notification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrorNotificationNotFound
	}
	return nil
}

func (d *store) UnreadNotificationCount(recipientID model.UserID, now time.Time) (int, error) {
	var count int
	err := d.db.Get(&count, `select count(*) from notification
		where RecipientID = ? and IsRead = 0 and IsArchived = 0 and ExpiresAt > ?`,
		recipientID, now)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (d *store) PurgeExpiredNotifications(now time.Time) (int64, error) {
	res, err := d.db.Exec(`delete from notification where ExpiresAt <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("purging notifications: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows, nil
}
