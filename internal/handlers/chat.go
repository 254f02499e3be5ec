package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.waggle/internal/auth"
	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/service/chat"
)

type ChatService interface {
	CreateOrGetDirect(actorID, peerID model.UserID) (*model.Conversation, error)
	ListConversations(userID model.UserID, page, pageSize int) ([]model.ConversationSummary, error)
	Send(params chat.SendParams) (*model.Message, error)
	MarkDelivered(conversationID model.ConversationID, userID model.UserID) (int64, error)
	MarkRead(conversationID model.ConversationID, userID model.UserID) (int64, error)
	Edit(messageID model.MessageID, actorID model.UserID, newContent string) (*model.Message, error)
	SoftDelete(messageID model.MessageID, actorID model.UserID, forEveryone bool) error
	Messages(conversationID model.ConversationID, viewerID model.UserID, before time.Time, beforeSeq int64, limit int) ([]model.Message, error)
	UnreadCount(conversationID model.ConversationID, userID model.UserID) (int, error)
	TotalUnread(userID model.UserID) (int, error)
	React(messageID model.MessageID, actorID model.UserID, emoji string) error
	Unreact(messageID model.MessageID, actorID model.UserID, emoji string) error
	Receipts(messageID model.MessageID, actorID model.UserID) ([]model.Receipt, error)
	Reactions(messageID model.MessageID, actorID model.UserID) ([]model.Reaction, error)
	Deactivate(conversationID model.ConversationID, actorID model.UserID) error
}

func CreateOrGetConversation(chatService ChatService) echo.HandlerFunc {
	type request struct {
		PeerID model.UserID `json:"peerId"`
	}
	return func(c echo.Context) error {
		params := &request{}
		if err := c.Bind(params); err != nil {
			return err
		}
		conv, err := chatService.CreateOrGetDirect(auth.UserID(c), params.PeerID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, conv)
	}
}

func ListConversations(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		page, _ := strconv.Atoi(c.QueryParam("page"))
		pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
		conversations, err := chatService.ListConversations(auth.UserID(c), page, pageSize)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, conversations)
	}
}

func ListMessages(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		conversationID := model.ConversationID(c.Param("conversationID"))

		var before time.Time
		if raw := c.QueryParam("before"); raw != "" {
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "before must be RFC3339")
			}
			before = parsed
		}
		beforeSeq, _ := strconv.ParseInt(c.QueryParam("beforeSeq"), 10, 64)
		limit, _ := strconv.Atoi(c.QueryParam("limit"))

		messages, err := chatService.Messages(conversationID, auth.UserID(c), before, beforeSeq, limit)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, messages)
	}
}

func SendMessage(chatService ChatService) echo.HandlerFunc {
	type request struct {
		Content     string            `json:"content"`
		ContentType model.MessageType `json:"contentType"`
		ReplyToID   *model.MessageID  `json:"replyToId"`
	}
	return func(c echo.Context) error {
		params := &request{}
		if err := c.Bind(params); err != nil {
			return err
		}
		message, err := chatService.Send(chat.SendParams{
			ConversationID: model.ConversationID(c.Param("conversationID")),
			SenderID:       auth.UserID(c),
			Content:        params.Content,
			ContentType:    params.ContentType,
			ReplyToID:      params.ReplyToID,
		})
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusCreated, message)
	}
}

func MarkConversationRead(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		conversationID := model.ConversationID(c.Param("conversationID"))
		marked, err := chatService.MarkRead(conversationID, auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		unread, err := chatService.UnreadCount(conversationID, auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"marked": marked,
			"unread": unread,
		})
	}
}

func TotalUnreadMessages(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		count, err := chatService.TotalUnread(auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"count": count})
	}
}

func MarkConversationDelivered(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		marked, err := chatService.MarkDelivered(model.ConversationID(c.Param("conversationID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"marked": marked})
	}
}

func EditMessage(chatService ChatService) echo.HandlerFunc {
	type request struct {
		Content string `json:"content"`
	}
	return func(c echo.Context) error {
		params := &request{}
		if err := c.Bind(params); err != nil {
			return err
		}
		message, err := chatService.Edit(model.MessageID(c.Param("messageID")), auth.UserID(c), params.Content)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, message)
	}
}

func DeleteMessage(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		forEveryone, _ := strconv.ParseBool(c.QueryParam("forEveryone"))
		err := chatService.SoftDelete(model.MessageID(c.Param("messageID")), auth.UserID(c), forEveryone)
		if err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func ListReceipts(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		receipts, err := chatService.Receipts(model.MessageID(c.Param("messageID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, receipts)
	}
}

func ListReactions(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		reactions, err := chatService.Reactions(model.MessageID(c.Param("messageID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, reactions)
	}
}

func DeactivateConversation(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := chatService.Deactivate(model.ConversationID(c.Param("conversationID")), auth.UserID(c))
		if err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func AddReaction(chatService ChatService) echo.HandlerFunc {
	type request struct {
		Emoji string `json:"emoji"`
	}
	return func(c echo.Context) error {
		params := &request{}
		if err := c.Bind(params); err != nil {
			return err
		}
		if err := chatService.React(model.MessageID(c.Param("messageID")), auth.UserID(c), params.Emoji); err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func RemoveReaction(chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := chatService.Unreact(model.MessageID(c.Param("messageID")), auth.UserID(c), c.Param("emoji"))
		if err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
