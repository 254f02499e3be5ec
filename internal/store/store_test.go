package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"uk.co.dudmesh.waggle/internal/model"
)

type testConfig struct {
	dir string
}

func (c testConfig) DataDirectory() string {
	return c.dir
}

func newTestStore(t *testing.T) *store {
	t.Helper()
	datastore, err := New(testConfig{dir: t.TempDir()})
	if err != nil {
		t.Fatalf("creating store: %+v", err)
	}
	t.Cleanup(func() { datastore.Close() })
	return datastore
}

func createTestUser(t *testing.T, datastore *store, handle string) model.UserID {
	t.Helper()
	user := &model.User{
		ID:        model.UserID(model.CreateID()),
		CreatedAt: time.Now().UTC(),
		Status:    model.UserStatusActive,
		Handle:    handle,
	}
	if err := datastore.CreateUser(user); err != nil {
		t.Fatalf("creating user: %+v", err)
	}
	return user.ID
}

func TestRelationshipUniqueness(t *testing.T) {
	assert := assert.New(t)
	datastore := newTestStore(t)

	rel := &model.Relationship{
		ActorID:   "alice",
		TargetID:  "bob",
		Kind:      model.RelationshipKindFollow,
		CreatedAt: time.Now().UTC(),
	}

	t.Run("first insert wins", func(t *testing.T) {
		inserted, err := datastore.InsertRelationship(rel)
		assert.Nil(err)
		assert.True(inserted)
	})

	t.Run("second insert reports existing without error", func(t *testing.T) {
		inserted, err := datastore.InsertRelationship(rel)
		assert.Nil(err)
		assert.False(inserted)
	})

	t.Run("delete reports whether a row went away", func(t *testing.T) {
		deleted, err := datastore.DeleteRelationship("alice", "bob", model.RelationshipKindFollow)
		assert.Nil(err)
		assert.True(deleted)

		deleted, err = datastore.DeleteRelationship("alice", "bob", model.RelationshipKindFollow)
		assert.Nil(err)
		assert.False(deleted)
	})
}

func TestDirectConversationUniqueness(t *testing.T) {
	assert := assert.New(t)
	datastore := newTestStore(t)

	pairKey := model.PairKey("alice", "bob")
	first := &model.Conversation{
		ID:        model.ConversationID(model.CreateID()),
		Type:      model.ConversationTypeDirect,
		PairKey:   &pairKey,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err := datastore.InsertConversation(first, []model.UserID{"alice", "bob"})
	assert.Nil(err)

	second := &model.Conversation{
		ID:        model.ConversationID(model.CreateID()),
		Type:      model.ConversationTypeDirect,
		PairKey:   &pairKey,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err = datastore.InsertConversation(second, []model.UserID{"alice", "bob"})
	assert.ErrorIs(err, ErrorDuplicateConversation)

	fetched, err := datastore.FetchDirectConversation(pairKey)
	assert.Nil(err)
	assert.Equal(first.ID, fetched.ID)

	t.Run("uniqueness releases on deactivation", func(t *testing.T) {
		err := datastore.DeactivateConversation(first.ID)
		assert.Nil(err)

		replacement := &model.Conversation{
			ID:        model.ConversationID(model.CreateID()),
			Type:      model.ConversationTypeDirect,
			PairKey:   &pairKey,
			CreatedAt: time.Now().UTC(),
			IsActive:  true,
		}
		err = datastore.InsertConversation(replacement, []model.UserID{"alice", "bob"})
		assert.Nil(err)

		fetched, err := datastore.FetchDirectConversation(pairKey)
		assert.Nil(err)
		assert.Equal(replacement.ID, fetched.ID)
	})
}

func TestNextSeqIsMonotonic(t *testing.T) {
	assert := assert.New(t)
	datastore := newTestStore(t)

	pairKey := model.PairKey("alice", "bob")
	conv := &model.Conversation{
		ID:        model.ConversationID(model.CreateID()),
		Type:      model.ConversationTypeDirect,
		PairKey:   &pairKey,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err := datastore.InsertConversation(conv, []model.UserID{"alice", "bob"})
	assert.Nil(err)

	for want := int64(1); want <= 5; want++ {
		seq, err := datastore.NextSeq(conv.ID)
		assert.Nil(err)
		assert.Equal(want, seq)
	}

	t.Run("inactive conversation allocates nothing", func(t *testing.T) {
		err := datastore.DeactivateConversation(conv.ID)
		assert.Nil(err)
		_, err = datastore.NextSeq(conv.ID)
		assert.ErrorIs(err, model.ErrorConversationNotFound)
	})
}

func TestMarkReceipts(t *testing.T) {
	assert := assert.New(t)
	datastore := newTestStore(t)

	pairKey := model.PairKey("alice", "bob")
	conv := &model.Conversation{
		ID:        model.ConversationID(model.CreateID()),
		Type:      model.ConversationTypeDirect,
		PairKey:   &pairKey,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err := datastore.InsertConversation(conv, []model.UserID{"alice", "bob"})
	assert.Nil(err)

	for i := 0; i < 3; i++ {
		seq, err := datastore.NextSeq(conv.ID)
		assert.Nil(err)
		err = datastore.InsertMessage(&model.Message{
			ID:             model.MessageID(model.CreateID()),
			ConversationID: conv.ID,
			Seq:            seq,
			SenderID:       "alice",
			Content:        "hello",
			ContentType:    model.MessageTypeText,
			CreatedAt:      time.Now().UTC(),
		})
		assert.Nil(err)
	}

	t.Run("marks every unmarked message for the reader", func(t *testing.T) {
		marked, err := datastore.MarkReceipts(conv.ID, "bob", model.ReceiptKindRead, time.Now().UTC())
		assert.Nil(err)
		assert.Equal(int64(3), marked)
	})

	t.Run("is idempotent", func(t *testing.T) {
		marked, err := datastore.MarkReceipts(conv.ID, "bob", model.ReceiptKindRead, time.Now().UTC())
		assert.Nil(err)
		assert.Equal(int64(0), marked)
	})

	t.Run("never marks the sender's own messages", func(t *testing.T) {
		marked, err := datastore.MarkReceipts(conv.ID, "alice", model.ReceiptKindRead, time.Now().UTC())
		assert.Nil(err)
		assert.Equal(int64(0), marked)

		unread, err := datastore.UnreadCount(conv.ID, "alice")
		assert.Nil(err)
		assert.Equal(0, unread)
	})
}

func TestFollowCountersAreAtomicDeltas(t *testing.T) {
	assert := assert.New(t)
	datastore := newTestStore(t)

	alice := createTestUser(t, datastore, "alice")
	bob := createTestUser(t, datastore, "bob")

	err := datastore.AdjustFollowCounts(alice, bob, 1)
	assert.Nil(err)
	err = datastore.AdjustFollowCounts(alice, bob, 1)
	assert.Nil(err)
	err = datastore.AdjustFollowCounts(alice, bob, -1)
	assert.Nil(err)

	bobUser, err := datastore.FetchUser(bob)
	assert.Nil(err)
	assert.Equal(1, bobUser.FollowerCount)

	aliceUser, err := datastore.FetchUser(alice)
	assert.Nil(err)
	assert.Equal(1, aliceUser.FollowingCount)
}
