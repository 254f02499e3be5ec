package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.waggle/internal/auth"
	"uk.co.dudmesh.waggle/internal/model"
)

type NotificationService interface {
	List(recipientID model.UserID, unreadOnly bool, page, pageSize int) ([]model.Notification, error)
	MarkRead(notificationID model.NotificationID, recipientID model.UserID) error
	MarkAllRead(recipientID model.UserID) (int64, error)
	Archive(notificationID model.NotificationID, recipientID model.UserID) error
	Delete(notificationID model.NotificationID, recipientID model.UserID) error
	UnreadCount(recipientID model.UserID) (int, error)
}

func ListNotifications(notificationService NotificationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))
		page, _ := strconv.Atoi(c.QueryParam("page"))
		pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))

		notifications, err := notificationService.List(auth.UserID(c), unreadOnly, page, pageSize)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, notifications)
	}
}

func MarkNotificationRead(notificationService NotificationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := notificationService.MarkRead(model.NotificationID(c.Param("notificationID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func MarkAllNotificationsRead(notificationService NotificationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		marked, err := notificationService.MarkAllRead(auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"marked": marked})
	}
}

func ArchiveNotification(notificationService NotificationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := notificationService.Archive(model.NotificationID(c.Param("notificationID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func DeleteNotification(notificationService NotificationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := notificationService.Delete(model.NotificationID(c.Param("notificationID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func UnreadNotificationCount(notificationService NotificationService) echo.HandlerFunc {
	return func(c echo.Context) error {
		count, err := notificationService.UnreadCount(auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"count": count})
	}
}
