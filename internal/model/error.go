package model

import "errors"

var ErrorUserNotFound = errors.New("user not found")
var ErrorEntityNotFound = errors.New("entity not found")
var ErrorConversationNotFound = errors.New("conversation not found")
var ErrorMessageNotFound = errors.New("message not found")
var ErrorNotificationNotFound = errors.New("notification not found")

var ErrorNotParticipant = errors.New("user is not a participant of this conversation")
var ErrorSelfConversation = errors.New("cannot open a direct conversation with yourself")
var ErrorInvalidReply = errors.New("reply target is not part of this conversation")
var ErrorNotSender = errors.New("user is not the sender of this message")
var ErrorSelfRelationship = errors.New("cannot create a relationship with yourself")

var ErrorEmptyContent = errors.New("message content is empty")
var ErrorContentTooLong = errors.New("message content exceeds maximum length")
var ErrorEditWindowClosed = errors.New("message is no longer editable")
var ErrorInvalidRelationshipKind = errors.New("invalid relationship kind")
var ErrorInvalidToken = errors.New("invalid or expired token")
