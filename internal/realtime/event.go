package realtime

import "encoding/json"

// Envelope is the wire shape of every frame in both directions.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ClientEnvelope is an inbound frame before its payload is decoded.
type ClientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Server-to-client events.
const (
	EventMessageNew     = "message_new"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventStatusChanged  = "status_changed"
	EventTyping         = "typing"
	EventOnlineResponse = "online_response"
	EventReadReceipt    = "read_receipt"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventError          = "error"
)

// Client-to-server events.
const (
	EventJoin        = "join"
	EventLeave       = "leave"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventRead        = "read"
	EventStatus      = "status"
	EventWhoIsOnline = "who_is_online"
)
