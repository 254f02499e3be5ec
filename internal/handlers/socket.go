package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/realtime"
)

type PresenceService interface {
	Authenticate(token string) (model.UserID, error)
	Connect(session realtime.Session)
	Disconnect(session realtime.Session)
	JoinConversation(session realtime.Session, conversationID model.ConversationID) error
	LeaveConversation(session realtime.Session, conversationID model.ConversationID)
	Typing(session realtime.Session, conversationID model.ConversationID, started bool) error
	BroadcastStatus(userID model.UserID, status string)
	OnlineStatus(userIDs []model.UserID) []model.UserID
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Socket upgrades the connection, authenticates the handshake and runs the
// read loop until the client goes away. Errors on an established connection
// are reported to that connection only.
func Socket(presenceService PresenceService, chatService ChatService) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			token = strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		}
		userID, err := presenceService.Authenticate(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}

		conn := realtime.NewConnection(userID, ws)
		conn.Start()
		presenceService.Connect(conn)
		defer func() {
			presenceService.Disconnect(conn)
			conn.Close("read loop ended")
		}()

		for {
			envelope, err := conn.ReadEnvelope()
			if err != nil {
				return nil
			}
			if err := dispatch(presenceService, chatService, conn, envelope); err != nil {
				sendError(conn, err)
			}
		}
	}
}

type conversationRef struct {
	ConversationID model.ConversationID `json:"conversationId"`
}

func dispatch(presenceService PresenceService, chatService ChatService, conn *realtime.Connection, envelope *realtime.ClientEnvelope) error {
	switch envelope.Event {
	case realtime.EventJoin:
		ref := conversationRef{}
		if err := json.Unmarshal(envelope.Data, &ref); err != nil {
			return err
		}
		if err := presenceService.JoinConversation(conn, ref.ConversationID); err != nil {
			return err
		}
		return conn.Send(realtime.Envelope{Event: realtime.EventJoined, Data: ref})

	case realtime.EventLeave:
		ref := conversationRef{}
		if err := json.Unmarshal(envelope.Data, &ref); err != nil {
			return err
		}
		presenceService.LeaveConversation(conn, ref.ConversationID)
		return conn.Send(realtime.Envelope{Event: realtime.EventLeft, Data: ref})

	case realtime.EventTypingStart, realtime.EventTypingStop:
		ref := conversationRef{}
		if err := json.Unmarshal(envelope.Data, &ref); err != nil {
			return err
		}
		return presenceService.Typing(conn, ref.ConversationID, envelope.Event == realtime.EventTypingStart)

	case realtime.EventRead:
		ref := conversationRef{}
		if err := json.Unmarshal(envelope.Data, &ref); err != nil {
			return err
		}
		_, err := chatService.MarkRead(ref.ConversationID, conn.UserID())
		return err

	case realtime.EventStatus:
		payload := struct {
			Status string `json:"status"`
		}{}
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return err
		}
		presenceService.BroadcastStatus(conn.UserID(), payload.Status)
		return nil

	case realtime.EventWhoIsOnline:
		payload := struct {
			UserIDs []model.UserID `json:"userIds"`
		}{}
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return err
		}
		online := presenceService.OnlineStatus(payload.UserIDs)
		return conn.Send(realtime.Envelope{
			Event: realtime.EventOnlineResponse,
			Data:  map[string]interface{}{"online": online},
		})
	}

	log.Warnf("unknown socket event %q from %s", envelope.Event, conn.UserID())
	return nil
}

func sendError(conn *realtime.Connection, err error) {
	conn.Send(realtime.Envelope{
		Event: realtime.EventError,
		Data:  map[string]string{"message": err.Error()},
	})
}
