package presence

import (
	"time"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.waggle/internal/auth"
	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/realtime"
)

type Database interface {
	FetchUser(userID model.UserID) (*model.User, error)
	IsParticipant(conversationID model.ConversationID, userID model.UserID) (bool, error)
	SetOnline(userID model.UserID, online bool, at time.Time) error
}

type service struct {
	db       Database
	hub      *realtime.Hub
	verifier auth.Verifier
}

func New(db Database, hub *realtime.Hub, verifier auth.Verifier) *service {
	return &service{db: db, hub: hub, verifier: verifier}
}

type statusChange struct {
	UserID model.UserID `json:"userId"`
	Status string       `json:"status"`
}

// Authenticate resolves the handshake credential to a user. A rejected
// credential creates no state at all.
func (s *service) Authenticate(token string) (model.UserID, error) {
	userID, err := s.verifier.Verify(token)
	if err != nil {
		return "", model.ErrorInvalidToken
	}
	if _, err := s.db.FetchUser(userID); err != nil {
		return "", model.ErrorInvalidToken
	}
	return userID, nil
}

// Connect attaches an authenticated session. Only the user's first live
// connection flips them online; further devices just add to the reference
// count.
func (s *service) Connect(session realtime.Session) {
	first := s.hub.Attach(session)
	if !first {
		return
	}
	if err := s.db.SetOnline(session.UserID(), true, time.Now().UTC()); err != nil {
		log.Errorf("marking %s online: %+v", session.UserID(), err)
	}
	s.hub.ToAll(realtime.Envelope{
		Event: realtime.EventStatusChanged,
		Data:  statusChange{UserID: session.UserID(), Status: "online"},
	})
}

// Disconnect detaches a session. The user goes offline only when their last
// connection closes; a multi-device user losing one device stays online.
func (s *service) Disconnect(session realtime.Session) {
	last := s.hub.Detach(session)
	if !last {
		return
	}
	if err := s.db.SetOnline(session.UserID(), false, time.Now().UTC()); err != nil {
		log.Errorf("marking %s offline: %+v", session.UserID(), err)
	}
	s.hub.ToAll(realtime.Envelope{
		Event: realtime.EventStatusChanged,
		Data:  statusChange{UserID: session.UserID(), Status: "offline"},
	})
}

// JoinConversation subscribes the session to the conversation channel after
// checking membership.
func (s *service) JoinConversation(session realtime.Session, conversationID model.ConversationID) error {
	participant, err := s.db.IsParticipant(conversationID, session.UserID())
	if err != nil {
		return err
	}
	if !participant {
		return model.ErrorNotParticipant
	}
	s.hub.Join(string(conversationID), session)
	return nil
}

func (s *service) LeaveConversation(session realtime.Session, conversationID model.ConversationID) {
	s.hub.Leave(string(conversationID), session)
}

type typingEvent struct {
	ConversationID model.ConversationID `json:"conversationId"`
	UserID         model.UserID         `json:"userId"`
	Typing         bool                 `json:"typing"`
}

// Typing relays a typing indicator to the other subscribers of the
// conversation channel. Ephemeral: never persisted, no delivery guarantee,
// and the sender never receives their own echo.
func (s *service) Typing(session realtime.Session, conversationID model.ConversationID, started bool) error {
	participant, err := s.db.IsParticipant(conversationID, session.UserID())
	if err != nil {
		return err
	}
	if !participant {
		return model.ErrorNotParticipant
	}
	s.hub.ToRoom(string(conversationID), session.ID(), realtime.Envelope{
		Event: realtime.EventTyping,
		Data:  typingEvent{ConversationID: conversationID, UserID: session.UserID(), Typing: started},
	})
	return nil
}

// BroadcastStatus fans a user-driven status update out to every connected
// client, for global online indicators.
func (s *service) BroadcastStatus(userID model.UserID, status string) {
	s.hub.ToAll(realtime.Envelope{
		Event: realtime.EventStatusChanged,
		Data:  statusChange{UserID: userID, Status: status},
	})
}

// OnlineStatus answers a point-in-time bulk query, for clients reconciling
// state after a reconnect. Broadcasts missed offline are gone; this is the
// recovery path.
func (s *service) OnlineStatus(userIDs []model.UserID) []model.UserID {
	return s.hub.FilterOnline(userIDs)
}

func (s *service) IsOnline(userID model.UserID) bool {
	return s.hub.IsOnline(userID)
}
