package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"uk.co.dudmesh.waggle/internal/model"
)

func (d *store) InsertMessage(message *model.Message) error {
	_, err := d.db.NamedExec(`insert into message
		(ID, ConversationID, Seq, SenderID, Content, ContentType, CreatedAt, ReplyToID)
		values(:ID, :ConversationID, :Seq, :SenderID, :Content, :ContentType, :CreatedAt, :ReplyToID)`,
		message)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// FetchMessage returns a message for mutation. Globally deleted messages and
// messages in deactivated conversations are gone as far as mutations are
// concerned.
func (d *store) FetchMessage(messageID model.MessageID) (*model.Message, error) {
	message := &model.Message{}
	err := d.db.Get(message, `select m.* from message m
		join conversation c on c.ID = m.ConversationID and c.IsActive = 1
		where m.ID = ? and m.IsDeleted = 0`, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrorMessageNotFound
		}
		return nil, fmt.Errorf("fetching message: %w", err)
	}
	return message, nil
}

// ListMessages returns up to limit messages visible to viewer, newest first.
// Visibility is resolved here, in one place: a message is hidden if it is
// globally deleted or on the viewer's own hide list. The cursor is
// (before, beforeSeq): messages sharing the cursor timestamp are kept when
// their Seq is below beforeSeq, so paging never drops a tied row.
func (d *store) ListMessages(conversationID model.ConversationID, viewerID model.UserID, before time.Time, beforeSeq int64, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	err := d.db.Select(&messages, `select m.* from message m
		where m.ConversationID = ?
		and (m.CreatedAt < ? or (m.CreatedAt = ? and m.Seq < ?))
		and m.IsDeleted = 0
		and not exists (select 1 from message_hide h
			where h.MessageID = m.ID and h.UserID = ?)
		order by m.CreatedAt desc, m.Seq desc
		limit ?`, conversationID, before, before, beforeSeq, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return messages, nil
}

func (d *store) MarkEdited(messageID model.MessageID, content, priorContent string, at time.Time) error {
	_, err := d.db.Exec(`update message
		set Content = ?, PriorContent = ?, IsEdited = 1, EditedAt = ?
		where ID = ?`, content, priorContent, at, messageID)
	if err != nil {
		return fmt.Errorf("marking message edited: %w", err)
	}
	return nil
}

func (d *store) MarkDeleted(messageID model.MessageID, at time.Time) error {
	_, err := d.db.Exec(`update message set IsDeleted = 1, DeletedAt = ? where ID = ?`,
		at, messageID)
	if err != nil {
		return fmt.Errorf("marking message deleted: %w", err)
	}
	return nil
}

func (d *store) HideMessageForUser(messageID model.MessageID, userID model.UserID) error {
	_, err := d.db.Exec(`insert or ignore into message_hide (MessageID, UserID)
		values(?, ?)`, messageID, userID)
	if err != nil {
		return fmt.Errorf("hiding message: %w", err)
	}
	return nil
}

// MarkReceipts records a delivered/read receipt for every message in the
// conversation the user has not already marked. The sender's own messages are
// skipped; insert-or-ignore keeps the whole operation idempotent.
func (d *store) MarkReceipts(conversationID model.ConversationID, userID model.UserID, kind model.ReceiptKind, at time.Time) (int64, error) {
	res, err := d.db.Exec(`insert or ignore into message_receipt (MessageID, UserID, Kind, MarkedAt)
		select m.ID, ?, ?, ?
		from message m
		where m.ConversationID = ?
		and m.SenderID != ?
		and m.IsDeleted = 0`,
		userID, kind, at, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("marking receipts: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows, nil
}

func (d *store) FetchReceipts(messageID model.MessageID) ([]model.Receipt, error) {
	receipts := []model.Receipt{}
	err := d.db.Select(&receipts, `select * from message_receipt
		where MessageID = ? order by MarkedAt`, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetching receipts: %w", err)
	}
	return receipts, nil
}

func (d *store) UnreadCount(conversationID model.ConversationID, userID model.UserID) (int, error) {
	var count int
	err := d.db.Get(&count, `select count(*) from message m
		where m.ConversationID = ?
		and m.SenderID != ?
		and m.IsDeleted = 0
		and not exists (select 1 from message_receipt r
			where r.MessageID = m.ID and r.UserID = ? and r.Kind = ?)
		and not exists (select 1 from message_hide h
			where h.MessageID = m.ID and h.UserID = ?)`,
		conversationID, userID, userID, model.ReceiptKindRead, userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread messages: %w", err)
	}
	return count, nil
}

// TotalUnreadCount sums unread messages for the user across every active
// conversation they participate in, for the badge surface.
func (d *store) TotalUnreadCount(userID model.UserID) (int, error) {
	var count int
	err := d.db.Get(&count, `select count(*) from message m
		join conversation c on c.ID = m.ConversationID and c.IsActive = 1
		join conversation_participant p on p.ConversationID = m.ConversationID and p.UserID = ?
		where m.SenderID != ?
		and m.IsDeleted = 0
		and not exists (select 1 from message_receipt r
			where r.MessageID = m.ID and r.UserID = ? and r.Kind = ?)
		and not exists (select 1 from message_hide h
			where h.MessageID = m.ID and h.UserID = ?)`,
		userID, userID, userID, model.ReceiptKindRead, userID)
	if err != nil {
		return 0, fmt.Errorf("counting total unread messages: %w", err)
	}
	return count, nil
}

func (d *store) AddReaction(reaction *model.Reaction) error {
	_, err := d.db.NamedExec(`insert or ignore into message_reaction
		(MessageID, UserID, Emoji, CreatedAt)
		values(:MessageID, :UserID, :Emoji, :CreatedAt)`, reaction)
	if err != nil {
		return fmt.Errorf("adding reaction: %w", err)
	}
	return nil
}

func (d *store) RemoveReaction(messageID model.MessageID, userID model.UserID, emoji string) error {
	_, err := d.db.Exec(`delete from message_reaction
		where MessageID = ? and UserID = ? and Emoji = ?`, messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("removing reaction: %w", err)
	}
	return nil
}

func (d *store) FetchReactions(messageID model.MessageID) ([]model.Reaction, error) {
	reactions := []model.Reaction{}
	err := d.db.Select(&reactions, `select * from message_reaction
		where MessageID = ? order by CreatedAt`, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetching reactions: %w", err)
	}
	return reactions, nil
}
