package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.waggle/internal/model"
	"uk.co.dudmesh.waggle/internal/realtime"
	"uk.co.dudmesh.waggle/internal/store"
)

const defaultPageSize = 20

type Database interface {
	FetchUser(userID model.UserID) (*model.User, error)

	InsertConversation(conv *model.Conversation, participants []model.UserID) error
	FetchDirectConversation(pairKey string) (*model.Conversation, error)
	FetchConversation(conversationID model.ConversationID) (*model.Conversation, error)
	IsParticipant(conversationID model.ConversationID, userID model.UserID) (bool, error)
	FetchParticipants(conversationID model.ConversationID) ([]model.UserID, error)
	ListConversationsForUser(userID model.UserID, page, pageSize int) ([]model.ConversationSummary, error)
	TouchConversation(conversationID model.ConversationID, messageID model.MessageID, at time.Time) error
	NextSeq(conversationID model.ConversationID) (int64, error)

	InsertMessage(message *model.Message) error
	FetchMessage(messageID model.MessageID) (*model.Message, error)
	ListMessages(conversationID model.ConversationID, viewerID model.UserID, before time.Time, beforeSeq int64, limit int) ([]model.Message, error)
	MarkEdited(messageID model.MessageID, content, priorContent string, at time.Time) error
	MarkDeleted(messageID model.MessageID, at time.Time) error
	HideMessageForUser(messageID model.MessageID, userID model.UserID) error
	MarkReceipts(conversationID model.ConversationID, userID model.UserID, kind model.ReceiptKind, at time.Time) (int64, error)
	UnreadCount(conversationID model.ConversationID, userID model.UserID) (int, error)
	TotalUnreadCount(userID model.UserID) (int, error)
	AddReaction(reaction *model.Reaction) error
	RemoveReaction(messageID model.MessageID, userID model.UserID, emoji string) error
	FetchReceipts(messageID model.MessageID) ([]model.Receipt, error)
	FetchReactions(messageID model.MessageID) ([]model.Reaction, error)
	DeactivateConversation(conversationID model.ConversationID) error
}

type Notifier interface {
	Notify(notificationType model.NotificationType, senderID, recipientID model.UserID, entityRef string)
}

// Broadcaster relays conversation events to live subscribers. Relay is
// best-effort; the hub satisfies this.
type Broadcaster interface {
	ToRoom(roomID string, exceptSessionID string, envelope realtime.Envelope)
}

type service struct {
	db          Database
	notifier    Notifier
	broadcaster Broadcaster
}

func New(db Database, notifier Notifier, broadcaster Broadcaster) *service {
	return &service{db: db, notifier: notifier, broadcaster: broadcaster}
}

// CreateOrGetDirect returns the single active direct conversation between the
// two users, creating it on first contact. Two simultaneous first-contact
// callers race on the insert; the PairKey unique index picks one winner and
// the loser re-fetches, so both receive the same conversation.
func (s *service) CreateOrGetDirect(actorID, peerID model.UserID) (*model.Conversation, error) {
	if actorID == peerID {
		return nil, model.ErrorSelfConversation
	}
	if _, err := s.db.FetchUser(peerID); err != nil {
		return nil, err
	}

	pairKey := model.PairKey(actorID, peerID)
	conv, err := s.db.FetchDirectConversation(pairKey)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, model.ErrorConversationNotFound) {
		return nil, err
	}

	conv = &model.Conversation{
		ID:        model.ConversationID(model.CreateID()),
		Type:      model.ConversationTypeDirect,
		PairKey:   &pairKey,
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
	}
	err = s.db.InsertConversation(conv, []model.UserID{actorID, peerID})
	if err != nil {
		if errors.Is(err, store.ErrorDuplicateConversation) {
			return s.db.FetchDirectConversation(pairKey)
		}
		return nil, fmt.Errorf("creating direct conversation: %w", err)
	}
	return conv, nil
}

func (s *service) ListConversations(userID model.UserID, page, pageSize int) ([]model.ConversationSummary, error) {
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	return s.db.ListConversationsForUser(userID, page, pageSize)
}

type SendParams struct {
	ConversationID model.ConversationID
	SenderID       model.UserID
	Content        string
	ContentType    model.MessageType
	ReplyToID      *model.MessageID
}

// Send appends a message to the conversation, bumps the conversation's
// last-activity pointer, notifies the other participants and relays the
// message to everyone subscribed to the conversation channel. Only the
// append itself can fail the call; the side effects are best-effort.
func (s *service) Send(params SendParams) (*model.Message, error) {
	if err := validateContent(params.Content); err != nil {
		return nil, err
	}
	if params.ContentType == "" {
		params.ContentType = model.MessageTypeText
	}

	participant, err := s.db.IsParticipant(params.ConversationID, params.SenderID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, model.ErrorNotParticipant
	}

	if params.ReplyToID != nil {
		replyTo, err := s.db.FetchMessage(*params.ReplyToID)
		if err != nil {
			return nil, model.ErrorInvalidReply
		}
		if replyTo.ConversationID != params.ConversationID {
			return nil, model.ErrorInvalidReply
		}
	}

	seq, err := s.db.NextSeq(params.ConversationID)
	if err != nil {
		return nil, err
	}

	message := &model.Message{
		ID:             model.MessageID(model.CreateID()),
		ConversationID: params.ConversationID,
		Seq:            seq,
		SenderID:       params.SenderID,
		Content:        params.Content,
		ContentType:    params.ContentType,
		CreatedAt:      time.Now().UTC(),
		ReplyToID:      params.ReplyToID,
	}
	if err := s.db.InsertMessage(message); err != nil {
		return nil, err
	}

	// message exists even if the touch fails; the listing query coalesces to
	// CreatedAt until the next send heals LastMessageAt
	if err := s.db.TouchConversation(params.ConversationID, message.ID, message.CreatedAt); err != nil {
		log.Errorf("touching conversation %s: %+v", params.ConversationID, err)
	}

	participants, err := s.db.FetchParticipants(params.ConversationID)
	if err != nil {
		log.Errorf("fetching participants of %s: %+v", params.ConversationID, err)
		participants = nil
	}
	for _, userID := range participants {
		if userID == params.SenderID {
			continue
		}
		s.notifier.Notify(model.NotificationTypeMessage, params.SenderID, userID, string(message.ID))
	}

	s.broadcaster.ToRoom(string(params.ConversationID), "", realtime.Envelope{
		Event: realtime.EventMessageNew,
		Data:  message,
	})

	return message, nil
}

// SendDirect is the first-contact path: conversation created on the first
// message attempt between two users.
func (s *service) SendDirect(senderID, peerID model.UserID, content string, contentType model.MessageType) (*model.Message, error) {
	conv, err := s.CreateOrGetDirect(senderID, peerID)
	if err != nil {
		return nil, err
	}
	return s.Send(SendParams{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
		ContentType:    contentType,
	})
}

// MarkDelivered records delivery receipts for every message the user has not
// yet marked. Idempotent; the sender's own messages are excluded.
func (s *service) MarkDelivered(conversationID model.ConversationID, userID model.UserID) (int64, error) {
	return s.markReceipts(conversationID, userID, model.ReceiptKindDelivered)
}

// MarkRead records read receipts the same way and tells the conversation
// channel. Calling it twice is the same as calling it once.
func (s *service) MarkRead(conversationID model.ConversationID, userID model.UserID) (int64, error) {
	marked, err := s.markReceipts(conversationID, userID, model.ReceiptKindRead)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.broadcaster.ToRoom(string(conversationID), "", realtime.Envelope{
			Event: realtime.EventReadReceipt,
			Data: map[string]interface{}{
				"conversationId": conversationID,
				"userId":         userID,
			},
		})
	}
	return marked, nil
}

func (s *service) markReceipts(conversationID model.ConversationID, userID model.UserID, kind model.ReceiptKind) (int64, error) {
	if _, err := s.db.FetchConversation(conversationID); err != nil {
		return 0, err
	}
	participant, err := s.db.IsParticipant(conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !participant {
		return 0, model.ErrorNotParticipant
	}
	return s.db.MarkReceipts(conversationID, userID, kind, time.Now().UTC())
}

// Edit replaces the message content. Only the original sender may edit, and
// only while the edit window is open. The prior content is retained.
func (s *service) Edit(messageID model.MessageID, actorID model.UserID, newContent string) (*model.Message, error) {
	if err := validateContent(newContent); err != nil {
		return nil, err
	}

	message, err := s.db.FetchMessage(messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != actorID {
		return nil, model.ErrorNotSender
	}
	now := time.Now().UTC()
	if now.Sub(message.CreatedAt) > model.EditWindow {
		return nil, model.ErrorEditWindowClosed
	}

	if err := s.db.MarkEdited(messageID, newContent, message.Content, now); err != nil {
		return nil, err
	}

	prior := message.Content
	message.PriorContent = &prior
	message.Content = newContent
	message.IsEdited = true
	message.EditedAt = &now

	s.broadcaster.ToRoom(string(message.ConversationID), "", realtime.Envelope{
		Event: realtime.EventMessageEdited,
		Data:  message,
	})
	return message, nil
}

// SoftDelete hides a message. With forEveryone the sender retracts it for all
// participants; otherwise it disappears only from the caller's own view and
// stays visible to everyone else.
func (s *service) SoftDelete(messageID model.MessageID, actorID model.UserID, forEveryone bool) error {
	message, err := s.db.FetchMessage(messageID)
	if err != nil {
		return err
	}

	if forEveryone {
		if message.SenderID != actorID {
			return model.ErrorNotSender
		}
		if err := s.db.MarkDeleted(messageID, time.Now().UTC()); err != nil {
			return err
		}
		s.broadcaster.ToRoom(string(message.ConversationID), "", realtime.Envelope{
			Event: realtime.EventMessageDeleted,
			Data: map[string]interface{}{
				"conversationId": message.ConversationID,
				"messageId":      messageID,
			},
		})
		return nil
	}

	participant, err := s.db.IsParticipant(message.ConversationID, actorID)
	if err != nil {
		return err
	}
	if !participant {
		return model.ErrorNotParticipant
	}
	return s.db.HideMessageForUser(messageID, actorID)
}

// Messages returns a page of the conversation as the viewer sees it, oldest
// first. Pagination walks backwards via the (before, beforeSeq) cursor; with
// beforeSeq zero the cursor degrades to a plain timestamp and messages sharing
// the cursor timestamp are excluded.
func (s *service) Messages(conversationID model.ConversationID, viewerID model.UserID, before time.Time, beforeSeq int64, limit int) ([]model.Message, error) {
	if _, err := s.db.FetchConversation(conversationID); err != nil {
		return nil, err
	}
	participant, err := s.db.IsParticipant(conversationID, viewerID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, model.ErrorNotParticipant
	}
	if before.IsZero() {
		before = time.Now().UTC().Add(time.Second)
	}
	if limit < 1 || limit > 100 {
		limit = defaultPageSize
	}

	messages, err := s.db.ListMessages(conversationID, viewerID, before, beforeSeq, limit)
	if err != nil {
		return nil, err
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Seq < messages[j].Seq
	})
	return messages, nil
}

func (s *service) UnreadCount(conversationID model.ConversationID, userID model.UserID) (int, error) {
	return s.db.UnreadCount(conversationID, userID)
}

// TotalUnread is the badge count: unread messages across every conversation
// the user is in.
func (s *service) TotalUnread(userID model.UserID) (int, error) {
	return s.db.TotalUnreadCount(userID)
}

// React adds an emoji reaction; adding the same reaction twice is a no-op.
func (s *service) React(messageID model.MessageID, actorID model.UserID, emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return model.ErrorEmptyContent
	}
	message, err := s.db.FetchMessage(messageID)
	if err != nil {
		return err
	}
	participant, err := s.db.IsParticipant(message.ConversationID, actorID)
	if err != nil {
		return err
	}
	if !participant {
		return model.ErrorNotParticipant
	}
	return s.db.AddReaction(&model.Reaction{
		MessageID: messageID,
		UserID:    actorID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *service) Unreact(messageID model.MessageID, actorID model.UserID, emoji string) error {
	if _, err := s.db.FetchMessage(messageID); err != nil {
		return err
	}
	return s.db.RemoveReaction(messageID, actorID, emoji)
}

// Receipts lists the delivery/read markers recorded against a message.
func (s *service) Receipts(messageID model.MessageID, actorID model.UserID) ([]model.Receipt, error) {
	message, err := s.db.FetchMessage(messageID)
	if err != nil {
		return nil, err
	}
	participant, err := s.db.IsParticipant(message.ConversationID, actorID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, model.ErrorNotParticipant
	}
	return s.db.FetchReceipts(messageID)
}

func (s *service) Reactions(messageID model.MessageID, actorID model.UserID) ([]model.Reaction, error) {
	message, err := s.db.FetchMessage(messageID)
	if err != nil {
		return nil, err
	}
	participant, err := s.db.IsParticipant(message.ConversationID, actorID)
	if err != nil {
		return nil, err
	}
	if !participant {
		return nil, model.ErrorNotParticipant
	}
	return s.db.FetchReactions(messageID)
}

// Deactivate retires a conversation. Conversations are never hard-deleted;
// an inactive conversation reads as not found.
func (s *service) Deactivate(conversationID model.ConversationID, actorID model.UserID) error {
	if _, err := s.db.FetchConversation(conversationID); err != nil {
		return err
	}
	participant, err := s.db.IsParticipant(conversationID, actorID)
	if err != nil {
		return err
	}
	if !participant {
		return model.ErrorNotParticipant
	}
	return s.db.DeactivateConversation(conversationID)
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return model.ErrorEmptyContent
	}
	if len(content) > model.MaxMessageLength {
		return model.ErrorContentTooLong
	}
	return nil
}
