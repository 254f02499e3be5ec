package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"uk.co.dudmesh.waggle/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Session is what the hub needs of a live connection. The websocket-backed
// Connection implements it; tests substitute a stub.
type Session interface {
	ID() string
	UserID() model.UserID
	Send(envelope Envelope) error
	Close(reason string)
}

// Connection wraps a websocket and serializes outbound writes through a
// buffered channel. Safe for concurrent Send calls.
type Connection struct {
	id     string
	userID model.UserID

	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func NewConnection(userID model.UserID, ws *websocket.Conn) *Connection {
	return &Connection{
		id:     model.CreateID(),
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, 128),
		closed: make(chan struct{}),
	}
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) UserID() model.UserID {
	return c.userID
}

// Start launches the write loop. Call exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues the envelope for delivery. A slow client whose buffer fills
// up is disconnected rather than blocking the sender.
func (c *Connection) Send(envelope Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close("send buffer full")
		return errors.New("send buffer exceeded")
	}
}

func (c *Connection) Close(reason string) {
	c.once.Do(func() {
		close(c.closed)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, reason),
			time.Now().Add(writeWait))
		c.ws.Close()
	})
}

// ReadEnvelope blocks on the next inbound frame. The data payload stays raw
// for the dispatcher to decode per event.
func (c *Connection) ReadEnvelope() (*ClientEnvelope, error) {
	var envelope ClientEnvelope
	if err := c.ws.ReadJSON(&envelope); err != nil {
		return nil, err
	}
	return &envelope, nil
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case payload := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close("write failed")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close("ping failed")
				return
			}
		}
	}
}
