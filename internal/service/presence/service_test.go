package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/realtime"
	"uk.co.dudmesh.waggle/internal/store"
)

type testConfig struct {
	dir string
}

func (c testConfig) DataDirectory() string {
	return c.dir
}

type staticVerifier map[string]model.UserID

func (v staticVerifier) Verify(token string) (model.UserID, error) {
	if userID, ok := v[token]; ok {
		return userID, nil
	}
	return "", model.ErrorInvalidToken
}

type stubSession struct {
	id     string
	userID model.UserID

	mu        sync.Mutex
	envelopes []realtime.Envelope
}

func newStubSession(userID model.UserID) *stubSession {
	return &stubSession{id: model.CreateID(), userID: userID}
}

func (s *stubSession) ID() string           { return s.id }
func (s *stubSession) UserID() model.UserID { return s.userID }
func (s *stubSession) Close(reason string)  {}

func (s *stubSession) Send(envelope realtime.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, envelope)
	return nil
}

func (s *stubSession) eventCount(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, envelope := range s.envelopes {
		if envelope.Event == event {
			count++
		}
	}
	return count
}

type testStore interface {
	Database
	CreateUser(user *model.User) error
	InsertConversation(conv *model.Conversation, participants []model.UserID) error
	Close() error
}

type fixture struct {
	db      testStore
	hub     *realtime.Hub
	service *service
	alice   model.UserID
	bob     model.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	datastore, err := store.New(testConfig{dir: t.TempDir()})
	if err != nil {
		t.Fatalf("creating store: %+v", err)
	}
	t.Cleanup(func() { datastore.Close() })

	f := &fixture{db: datastore, hub: realtime.NewHub()}
	for _, handle := range []string{"alice", "bob"} {
		user := &model.User{
			ID:        model.UserID(model.CreateID()),
			CreatedAt: time.Now().UTC(),
			Status:    model.UserStatusActive,
			Handle:    handle,
		}
		if err := datastore.CreateUser(user); err != nil {
			t.Fatalf("creating user: %+v", err)
		}
		if handle == "alice" {
			f.alice = user.ID
		} else {
			f.bob = user.ID
		}
	}
	verifier := staticVerifier{
		"alice-token": f.alice,
		"bob-token":   f.bob,
	}
	f.service = New(datastore, f.hub, verifier)
	return f
}

func TestAuthenticate(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	t.Run("valid token resolves the user", func(t *testing.T) {
		userID, err := f.service.Authenticate("alice-token")
		assert.Nil(err)
		assert.Equal(f.alice, userID)
	})

	t.Run("bad token creates no state", func(t *testing.T) {
		_, err := f.service.Authenticate("forged")
		assert.ErrorIs(err, model.ErrorInvalidToken)
		assert.False(f.service.IsOnline(f.alice))
	})
}

func TestConnectionLifecycle(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	device1 := newStubSession(f.alice)
	device2 := newStubSession(f.alice)

	t.Run("first connect flips the stored flag", func(t *testing.T) {
		f.service.Connect(device1)
		assert.True(f.service.IsOnline(f.alice))

		user, err := f.db.FetchUser(f.alice)
		assert.Nil(err)
		assert.True(user.IsOnline)
	})

	t.Run("second device connects quietly", func(t *testing.T) {
		f.service.Connect(device2)
		// only the first connect broadcast a status change to device1
		assert.Equal(1, device1.eventCount(realtime.EventStatusChanged))
	})

	t.Run("one device dropping keeps the user online", func(t *testing.T) {
		f.service.Disconnect(device1)
		assert.True(f.service.IsOnline(f.alice))

		user, err := f.db.FetchUser(f.alice)
		assert.Nil(err)
		assert.True(user.IsOnline)
	})

	t.Run("last device dropping flips offline and stamps last-seen", func(t *testing.T) {
		f.service.Disconnect(device2)
		assert.False(f.service.IsOnline(f.alice))

		user, err := f.db.FetchUser(f.alice)
		assert.Nil(err)
		assert.False(user.IsOnline)
		assert.NotNil(user.LastSeenAt)
	})
}

func TestConversationChannels(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	pairKey := model.PairKey(f.alice, f.bob)
	conv := &model.Conversation{
		ID:        model.ConversationID(model.CreateID()),
		Type:      model.ConversationTypeDirect,
		PairKey:   &pairKey,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err := f.db.InsertConversation(conv, []model.UserID{f.alice, f.bob})
	assert.Nil(err)

	alice := newStubSession(f.alice)
	bob := newStubSession(f.bob)
	f.service.Connect(alice)
	f.service.Connect(bob)

	t.Run("members may join", func(t *testing.T) {
		assert.Nil(f.service.JoinConversation(alice, conv.ID))
		assert.Nil(f.service.JoinConversation(bob, conv.ID))
	})

	t.Run("outsiders may not", func(t *testing.T) {
		stranger := newStubSession("stranger")
		f.hub.Attach(stranger)
		err := f.service.JoinConversation(stranger, conv.ID)
		assert.ErrorIs(err, model.ErrorNotParticipant)
	})

	t.Run("typing reaches the peer but never echoes", func(t *testing.T) {
		err := f.service.Typing(alice, conv.ID, true)
		assert.Nil(err)
		assert.Equal(1, bob.eventCount(realtime.EventTyping))
		assert.Equal(0, alice.eventCount(realtime.EventTyping))
	})

	t.Run("typing requires membership", func(t *testing.T) {
		stranger := newStubSession("stranger")
		f.hub.Attach(stranger)
		err := f.service.Typing(stranger, conv.ID, true)
		assert.ErrorIs(err, model.ErrorNotParticipant)
	})

	t.Run("leaving stops channel delivery", func(t *testing.T) {
		f.service.LeaveConversation(bob, conv.ID)
		err := f.service.Typing(alice, conv.ID, false)
		assert.Nil(err)
		assert.Equal(1, bob.eventCount(realtime.EventTyping))
	})
}

func TestOnlineStatusQuery(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t)

	alice := newStubSession(f.alice)
	f.service.Connect(alice)

	online := f.service.OnlineStatus([]model.UserID{f.alice, f.bob})
	assert.ElementsMatch([]model.UserID{f.alice}, online)

	t.Run("status broadcast reaches all clients", func(t *testing.T) {
		before := alice.eventCount(realtime.EventStatusChanged)
		f.service.BroadcastStatus(f.alice, "away")
		assert.Equal(before+1, alice.eventCount(realtime.EventStatusChanged))
	})
}
