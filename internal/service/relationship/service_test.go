package relationship

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/store"
)

type testConfig struct {
	dir string
}

func (c testConfig) DataDirectory() string {
	return c.dir
}

type recordedNotification struct {
	Type        model.NotificationType
	SenderID    model.UserID
	RecipientID model.UserID
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []recordedNotification
}

func (n *recordingNotifier) Notify(notificationType model.NotificationType, senderID, recipientID model.UserID, entityRef string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, recordedNotification{notificationType, senderID, recipientID})
}

type fixture struct {
	db       Database
	notifier *recordingNotifier
	service  *service
	alice    model.UserID
	bob      model.UserID
}

type testStore interface {
	Database
	CreateUser(user *model.User) error
	CreateEntity(entity *model.Entity) error
	CountFollowers(targetID model.UserID) (int, error)
	Close() error
}

func newFixture(t *testing.T) (*fixture, testStore) {
	t.Helper()
	datastore, err := store.New(testConfig{dir: t.TempDir()})
	if err != nil {
		t.Fatalf("creating store: %+v", err)
	}
	t.Cleanup(func() { datastore.Close() })

	f := &fixture{notifier: &recordingNotifier{}}
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
	f.db = datastore
	f.service = New(datastore, f.notifier)
	return f, datastore
}

func TestToggleFollow(t *testing.T) {
	assert := assert.New(t)
	f, datastore := newFixture(t)

	t.Run("rejects following yourself", func(t *testing.T) {
		_, err := f.service.ToggleFollow(f.alice, f.alice)
		assert.ErrorIs(err, model.ErrorSelfRelationship)
	})

	t.Run("rejects unknown target", func(t *testing.T) {
		_, err := f.service.ToggleFollow(f.alice, "nobody")
		assert.ErrorIs(err, model.ErrorUserNotFound)
	})

	t.Run("toggle on", func(t *testing.T) {
		active, err := f.service.ToggleFollow(f.alice, f.bob)
		assert.Nil(err)
		assert.True(active)

		bob, err := f.db.FetchUser(f.bob)
		assert.Nil(err)
		assert.Equal(1, bob.FollowerCount)

		alice, err := f.db.FetchUser(f.alice)
		assert.Nil(err)
		assert.Equal(1, alice.FollowingCount)

		assert.Len(f.notifier.notifications, 1)
		assert.Equal(model.NotificationTypeFollow, f.notifier.notifications[0].Type)
		assert.Equal(f.bob, f.notifier.notifications[0].RecipientID)
	})

	t.Run("toggle off returns counters to the start", func(t *testing.T) {
		active, err := f.service.ToggleFollow(f.alice, f.bob)
		assert.Nil(err)
		assert.False(active)

		bob, err := f.db.FetchUser(f.bob)
		assert.Nil(err)
		assert.Equal(0, bob.FollowerCount)
	})

	t.Run("sequential parity", func(t *testing.T) {
		var active bool
		var err error
		for i := 0; i < 5; i++ {
			active, err = f.service.ToggleFollow(f.alice, f.bob)
			assert.Nil(err)
		}
		assert.True(active) // odd number of toggles

		count, err := datastore.CountFollowers(f.bob)
		assert.Nil(err)
		assert.Equal(1, count)

		bob, err := f.db.FetchUser(f.bob)
		assert.Nil(err)
		assert.Equal(count, bob.FollowerCount)
	})
}

func TestToggleFollowConcurrent(t *testing.T) {
	assert := assert.New(t)
	f, datastore := newFixture(t)

	// Double-click storm: the relationship's primary key is the only guard.
	// Whatever the interleaving, the counter must end up agreeing with the
	// relationship table and never drift past 1.
	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.ToggleFollow(f.alice, f.bob)
			assert.Nil(err)
		}()
	}
	wg.Wait()

	actual, err := datastore.CountFollowers(f.bob)
	assert.Nil(err)
	assert.LessOrEqual(actual, 1)

	bob, err := f.db.FetchUser(f.bob)
	assert.Nil(err)
	assert.GreaterOrEqual(bob.FollowerCount, 0)
	assert.LessOrEqual(bob.FollowerCount, 1)
}

func TestToggleLikeAndBookmark(t *testing.T) {
	assert := assert.New(t)
	f, datastore := newFixture(t)

	entity := &model.Entity{
		ID:        model.CreateID(),
		OwnerID:   f.bob,
		Kind:      model.EntityKindPost,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err := datastore.CreateEntity(entity)
	assert.Nil(err)

	t.Run("unknown entity", func(t *testing.T) {
		_, err := f.service.ToggleLike(f.alice, "missing")
		assert.ErrorIs(err, model.ErrorEntityNotFound)
	})

	t.Run("like notifies the owner and counts", func(t *testing.T) {
		active, err := f.service.ToggleLike(f.alice, entity.ID)
		assert.Nil(err)
		assert.True(active)

		fetched, err := f.db.FetchEntity(entity.ID)
		assert.Nil(err)
		assert.Equal(1, fetched.LikeCount)

		assert.Len(f.notifier.notifications, 1)
		assert.Equal(model.NotificationTypeLike, f.notifier.notifications[0].Type)
	})

	t.Run("owner liking their own entity is not notified", func(t *testing.T) {
		before := len(f.notifier.notifications)
		active, err := f.service.ToggleLike(f.bob, entity.ID)
		assert.Nil(err)
		assert.True(active)
		assert.Len(f.notifier.notifications, before)
	})

	t.Run("bookmark is silent", func(t *testing.T) {
		before := len(f.notifier.notifications)
		active, err := f.service.ToggleBookmark(f.alice, entity.ID)
		assert.Nil(err)
		assert.True(active)

		fetched, err := f.db.FetchEntity(entity.ID)
		assert.Nil(err)
		assert.Equal(1, fetched.BookmarkCount)
		assert.Len(f.notifier.notifications, before)
	})

	t.Run("unbookmark", func(t *testing.T) {
		active, err := f.service.ToggleBookmark(f.alice, entity.ID)
		assert.Nil(err)
		assert.False(active)

		fetched, err := f.db.FetchEntity(entity.ID)
		assert.Nil(err)
		assert.Equal(0, fetched.BookmarkCount)
	})
}
