package realtime

import (
	"sync"

	"uk.co.dudmesh.waggle/internal/model"
)

// Hub tracks live sessions, the set of sessions per user, and conversation
// rooms. A user is online iff at least one session is attached for them; the
// per-user set is the reference count that prevents false-offline flaps when
// one of several devices disconnects.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]Session
	userSessions map[model.UserID]map[string]Session
	rooms        map[string]map[string]Session
	sessionRooms map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]Session),
		userSessions: make(map[model.UserID]map[string]Session),
		rooms:        make(map[string]map[string]Session),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a session and reports whether this is the user's first
// live connection (the Offline→Online transition).
func (h *Hub) Attach(session Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[session.ID()] = session
	h.sessionRooms[session.ID()] = make(map[string]struct{})

	userID := session.UserID()
	if h.userSessions[userID] == nil {
		h.userSessions[userID] = make(map[string]Session)
	}
	h.userSessions[userID][session.ID()] = session
	return len(h.userSessions[userID]) == 1
}

// Detach removes a session and reports whether it was the user's last live
// connection (the Online→Offline transition). Detaching an unknown session
// is a no-op.
func (h *Hub) Detach(session Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[session.ID()]; !ok {
		return false
	}
	delete(h.sessions, session.ID())

	for roomID := range h.sessionRooms[session.ID()] {
		delete(h.rooms[roomID], session.ID())
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.sessionRooms, session.ID())

	userID := session.UserID()
	delete(h.userSessions[userID], session.ID())
	if len(h.userSessions[userID]) == 0 {
		delete(h.userSessions, userID)
		return true
	}
	return false
}

func (h *Hub) Join(roomID string, session Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[session.ID()]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]Session)
	}
	h.rooms[roomID][session.ID()] = session
	h.sessionRooms[session.ID()][roomID] = struct{}{}
}

func (h *Hub) Leave(roomID string, session Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.rooms[roomID], session.ID())
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	if rooms, ok := h.sessionRooms[session.ID()]; ok {
		delete(rooms, roomID)
	}
}

// ToRoom fans an envelope out to every session in the room, optionally
// skipping one session (the originator of a typing event never needs its own
// echo). Delivery is best-effort; send failures only affect that session.
func (h *Hub) ToRoom(roomID string, exceptSessionID string, envelope Envelope) {
	h.mu.RLock()
	targets := make([]Session, 0, len(h.rooms[roomID]))
	for id, session := range h.rooms[roomID] {
		if id == exceptSessionID {
			continue
		}
		targets = append(targets, session)
	}
	h.mu.RUnlock()

	for _, session := range targets {
		session.Send(envelope)
	}
}

// ToUser delivers to every session the user has open (each device).
func (h *Hub) ToUser(userID model.UserID, envelope Envelope) {
	h.mu.RLock()
	targets := make([]Session, 0, len(h.userSessions[userID]))
	for _, session := range h.userSessions[userID] {
		targets = append(targets, session)
	}
	h.mu.RUnlock()

	for _, session := range targets {
		session.Send(envelope)
	}
}

// ToAll delivers to every live session.
func (h *Hub) ToAll(envelope Envelope) {
	h.mu.RLock()
	targets := make([]Session, 0, len(h.sessions))
	for _, session := range h.sessions {
		targets = append(targets, session)
	}
	h.mu.RUnlock()

	for _, session := range targets {
		session.Send(envelope)
	}
}

func (h *Hub) IsOnline(userID model.UserID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userSessions[userID]) > 0
}

// FilterOnline returns the subset of userIDs with at least one live session.
func (h *Hub) FilterOnline(userIDs []model.UserID) []model.UserID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	online := make([]model.UserID, 0, len(userIDs))
	for _, userID := range userIDs {
		if len(h.userSessions[userID]) > 0 {
			online = append(online, userID)
		}
	}
	return online
}
