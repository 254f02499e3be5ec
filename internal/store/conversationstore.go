package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uk.co.dudmesh.waggle/internal/model"
)

// ErrorDuplicateConversation signals that a concurrent caller created the
// direct conversation for the same pair first. Internal to the store/service
// boundary; the chat service re-fetches and returns the winner.
var ErrorDuplicateConversation = errors.New("direct conversation already exists for pair")

func (d *store) InsertConversation(conv *model.Conversation, participants []model.UserID) error {
	tx, err := d.db.Beginx()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExec(`insert into conversation
		(ID, Type, PairKey, CreatedAt, LastSeq, IsActive)
		values(:ID, :Type, :PairKey, :CreatedAt, :LastSeq, :IsActive)`, conv)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrorDuplicateConversation
		}
		return fmt.Errorf("inserting conversation: %w", err)
	}

	for _, userID := range participants {
		_, err = tx.Exec(`insert into conversation_participant
			(ConversationID, UserID, JoinedAt)
			values(?, ?, ?)`, conv.ID, userID, conv.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing conversation: %w", err)
	}
	return nil
}

func (d *store) FetchDirectConversation(pairKey string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := d.db.Get(conv, `select * from conversation
		where PairKey = ? and Type = ? and IsActive = 1`,
		pairKey, model.ConversationTypeDirect)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorConversationNotFound
		}
		return nil, fmt.Errorf("fetching direct conversation: %w", err)
	}
	return conv, nil
}

func (d *store) FetchConversation(conversationID model.ConversationID) (*model.Conversation, error) {
	conv := &model.Conversation{}
	err := d.db.Get(conv, `select * from conversation where ID = ? and IsActive = 1`, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorConversationNotFound
		}
		return nil, fmt.Errorf("fetching conversation: %w", err)
	}
	return conv, nil
}

func (d *store) IsParticipant(conversationID model.ConversationID, userID model.UserID) (bool, error) {
	var count int
	err := d.db.Get(&count, `select count(*) from conversation_participant
		where ConversationID = ? and UserID = ?`, conversationID, userID)
	if err != nil {
		return false, fmt.Errorf("checking participant: %w", err)
	}
	return count > 0, nil
}

func (d *store) FetchParticipants(conversationID model.ConversationID) ([]model.UserID, error) {
	participants := []model.UserID{}
	err := d.db.Select(&participants, `select UserID from conversation_participant
		where ConversationID = ? order by UserID`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetching participants: %w", err)
	}
	return participants, nil
}

// ListConversationsForUser returns a page of the user's active conversations,
// most recently active first. Conversations that have a message but no
// LastMessageAt yet (the touch hasn't landed) sort by CreatedAt until the
// next write heals them.
func (d *store) ListConversationsForUser(userID model.UserID, page, pageSize int) ([]model.ConversationSummary, error) {
	if page < 1 {
		page = 1
	}
	conversations := []model.ConversationSummary{}
	err := d.db.Select(&conversations, `select c.*,
		coalesce((select p2.UserID from conversation_participant p2
			where p2.ConversationID = c.ID and p2.UserID != ? limit 1), '') as PeerID,
		(select count(*) from message m
			where m.ConversationID = c.ID
			and m.SenderID != ?
			and m.IsDeleted = 0
			and not exists (select 1 from message_receipt r
				where r.MessageID = m.ID and r.UserID = ? and r.Kind = ?)
			and not exists (select 1 from message_hide h
				where h.MessageID = m.ID and h.UserID = ?)) as UnreadCount
		from conversation c
		join conversation_participant p on p.ConversationID = c.ID
		where p.UserID = ? and c.IsActive = 1
		order by coalesce(c.LastMessageAt, c.CreatedAt) desc
		limit ? offset ?`,
		userID, userID, userID, model.ReceiptKindRead, userID, userID,
		pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return conversations, nil
}

func (d *store) TouchConversation(conversationID model.ConversationID, messageID model.MessageID, at time.Time) error {
	_, err := d.db.Exec(`update conversation
		set LastMessageID = ?, LastMessageAt = ?
		where ID = ?`, messageID, at, conversationID)
	if err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}
	return nil
}

// NextSeq hands out the next per-conversation sequence number with a single
// atomic increment, so message order survives clock skew.
func (d *store) NextSeq(conversationID model.ConversationID) (int64, error) {
	var seq int64
	err := d.db.Get(&seq, `update conversation set LastSeq = LastSeq + 1
		where ID = ? and IsActive = 1
		returning LastSeq`, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrorConversationNotFound
		}
		return 0, fmt.Errorf("allocating sequence: %w", err)
	}
	return seq, nil
}

func (d *store) DeactivateConversation(conversationID model.ConversationID) error {
	_, err := d.db.Exec(`update conversation set IsActive = 0 where ID = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("deactivating conversation: %w", err)
	}
	return nil
}
