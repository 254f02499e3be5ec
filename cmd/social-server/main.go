package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.waggle/internal/auth"
	"uk.co.dudmesh.waggle/internal/boot"
	"uk.co.dudmesh.waggle/internal/handlers"
	"uk.co.dudmesh.waggle/internal/queue"
	"uk.co.dudmesh.waggle/internal/realtime"
	"uk.co.dudmesh.waggle/internal/service/chat"
	"uk.co.dudmesh.waggle/internal/service/notification"
	"uk.co.dudmesh.waggle/internal/service/presence"
	"uk.co.dudmesh.waggle/internal/service/relationship"
	"uk.co.dudmesh.waggle/internal/store"
)

const purgeInterval = time.Hour

func main() {
	bootConfig, err := boot.Load()
	if err != nil {
		log.Fatalf("boot: %+v", err)
	}

	datastore, err := store.New(bootConfig)
	if err != nil {
		log.Fatalf("opening store: %+v", err)
	}
	defer datastore.Close()

	var enqueuer queue.Enqueuer
	if bootConfig.Redis.URL != "" {
		enqueuer, err = queue.NewAsynqEnqueuer(bootConfig.Redis.URL)
		if err != nil {
			log.Fatalf("connecting delivery queue: %+v", err)
		}
		defer enqueuer.Close()
	} else {
		log.Warn("REDIS_URL not set; email/push delivery disabled")
	}

	verifier := auth.NewVerifier(bootConfig.Auth.SigningKey)
	hub := realtime.NewHub()

	notificationService := notification.New(datastore, enqueuer)
	relationshipService := relationship.New(datastore, notificationService)
	chatService := chat.New(datastore, notificationService, hub)
	presenceService := presence.New(datastore, hub, verifier)

	server := echo.New()
	server.Use(middleware.BodyLimit("1M"))
	server.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	server.Use(echoprometheus.NewMiddleware("waggle"))
	server.Use(middleware.Recover())

	server.Logger.SetLevel(log.INFO)

	headers := []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID}
	server.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     strings.Split(bootConfig.Server.Origins, ","),
		AllowHeaders:     headers,
		AllowCredentials: true,
	}))

	server.GET("/ws", handlers.Socket(presenceService, chatService))

	api := server.Group("", auth.Middleware(verifier))
	api.POST("/conversations", handlers.CreateOrGetConversation(chatService))
	api.GET("/conversations", handlers.ListConversations(chatService))
	api.GET("/conversations/unread-count", handlers.TotalUnreadMessages(chatService))
	api.GET("/conversations/:conversationID/messages", handlers.ListMessages(chatService))
	api.POST("/conversations/:conversationID/messages", handlers.SendMessage(chatService))
	api.POST("/conversations/:conversationID/read", handlers.MarkConversationRead(chatService))
	api.POST("/conversations/:conversationID/delivered", handlers.MarkConversationDelivered(chatService))
	api.DELETE("/conversations/:conversationID", handlers.DeactivateConversation(chatService))
	api.PUT("/messages/:messageID", handlers.EditMessage(chatService))
	api.GET("/messages/:messageID/receipts", handlers.ListReceipts(chatService))
	api.GET("/messages/:messageID/reactions", handlers.ListReactions(chatService))
	api.DELETE("/messages/:messageID", handlers.DeleteMessage(chatService))
	api.POST("/messages/:messageID/reactions", handlers.AddReaction(chatService))
	api.DELETE("/messages/:messageID/reactions/:emoji", handlers.RemoveReaction(chatService))
	api.POST("/users/:userID/follow", handlers.ToggleFollow(relationshipService))
	api.GET("/users/:userID/follow", handlers.FollowState(relationshipService))
	api.POST("/entities/:entityID/like", handlers.ToggleLike(relationshipService))
	api.POST("/entities/:entityID/bookmark", handlers.ToggleBookmark(relationshipService))
	api.GET("/notifications", handlers.ListNotifications(notificationService))
	api.GET("/notifications/unread-count", handlers.UnreadNotificationCount(notificationService))
	api.POST("/notifications/read", handlers.MarkAllNotificationsRead(notificationService))
	api.POST("/notifications/:notificationID/read", handlers.MarkNotificationRead(notificationService))
	api.POST("/notifications/:notificationID/archive", handlers.ArchiveNotification(notificationService))
	api.DELETE("/notifications/:notificationID", handlers.DeleteNotification(notificationService))

	purgeDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-purgeDone:
				return
			case <-ticker.C:
				notificationService.PurgeExpired()
			}
		}
	}()

	go func() {
		metrics := echo.New()
		metrics.GET("/metrics", echoprometheus.NewHandler())
		if err := metrics.Start(":" + bootConfig.Server.MetricsPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	go func() {
		if err := server.Start(":" + bootConfig.Server.Port); err != nil && err != http.ErrServerClosed {
			server.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	close(purgeDone)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		server.Logger.Fatal(err)
	}
}
