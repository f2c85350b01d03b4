package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the channel lifecycle: Disconnected -> Connecting -> Connected.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	// EventJoin and EventLeave carry the room key as their payload.
	EventJoin  = "join-tracking"
	EventLeave = "leave-tracking"
	// EventLocationUpdate is the canonical position event. The backend has
	// also been observed sending "locationUpdate"; inbound dispatch
	// normalizes that spelling onto this one.
	EventLocationUpdate = "location_update"

	legacyLocationUpdate = "locationUpdate"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

// ErrNotConnected is returned by Send when the channel has no live socket.
var ErrNotConnected = errors.New("realtime: not connected")

type envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Options tune the channel's reconnection behaviour.
type Options struct {
	// ReconnectAttempts bounds automatic redials after a dropped socket.
	ReconnectAttempts int
	// ReconnectDelay is the fixed pause between redials.
	ReconnectDelay time.Duration
}

// Channel is a persistent push connection to the backend. Joined rooms are
// re-joined after an automatic reconnect. Sends are best effort: a message
// enqueued right before a disconnect may be lost.
type Channel struct {
	url    string
	opts   Options
	dialer *websocket.Dialer

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	rooms    map[string]struct{}
	handlers map[string][]func(json.RawMessage)
	send     chan envelope
	done     chan struct{}
	closed   bool
}

// NewChannel creates a channel against the given websocket URL.
func NewChannel(url string, opts Options) *Channel {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = 5
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	return &Channel{
		url:      url,
		opts:     opts,
		dialer:   websocket.DefaultDialer,
		rooms:    map[string]struct{}{},
		handlers: map[string][]func(json.RawMessage){},
	}
}

// Connect dials the backend and starts the read/write pumps.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = Connecting
	c.closed = false
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.setState(Disconnected)
		return fmt.Errorf("realtime dial %s: %w", c.url, err)
	}
	c.startSession(conn)
	return nil
}

func (c *Channel) startSession(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = Connected
	c.send = make(chan envelope, sendBuffer)
	c.done = make(chan struct{})
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	send, done := c.send, c.done
	c.mu.Unlock()

	go c.writePump(conn, send, done)
	go c.readPump(conn)

	for _, room := range rooms {
		c.enqueue(envelope{Event: EventJoin, Room: room})
	}
}

// Join subscribes to a room key (e.g. "ambulance-<id>").
func (c *Channel) Join(room string) {
	c.mu.Lock()
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	c.enqueue(envelope{Event: EventJoin, Room: room})
}

// Leave unsubscribes from a room key.
func (c *Channel) Leave(room string) {
	c.mu.Lock()
	delete(c.rooms, room)
	c.mu.Unlock()
	c.enqueue(envelope{Event: EventLeave, Room: room})
}

// Send emits an event with a JSON payload. Best effort: returns
// ErrNotConnected when no socket is up, drops silently when the outbound
// queue is full.
func (c *Channel) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime send %s: %w", event, err)
	}
	c.mu.Lock()
	connected := c.state == Connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	c.enqueue(envelope{Event: event, Data: data})
	return nil
}

// On registers a handler for an event. Handlers run on the read pump, one at
// a time, in delivery order. EventLocationUpdate handlers also receive the
// backend's legacy "locationUpdate" spelling.
func (c *Channel) On(event string, handler func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], handler)
}

// Connected reports whether a live socket is up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Connected
}

// Disconnect closes the socket and disables reconnection until the next
// Connect. Queued sends are not drained.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.closed = true
	c.state = Disconnected
	conn := c.conn
	c.conn = nil
	done := c.done
	c.done = nil
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}
}

func (c *Channel) enqueue(env envelope) {
	c.mu.Lock()
	send := c.send
	c.mu.Unlock()
	if send == nil {
		return
	}
	select {
	case send <- env:
	default:
		// outbound queue full, drop; position feeds tolerate gaps
	}
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Channel) writePump(conn *websocket.Conn, send chan envelope, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case env := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Printf("realtime write error: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Channel) readPump(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.handleDrop(conn)
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		var env envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Printf("realtime: dropping malformed frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env envelope) {
	event := env.Event
	if event == legacyLocationUpdate {
		event = EventLocationUpdate
	}
	c.mu.Lock()
	handlers := append([]func(json.RawMessage){}, c.handlers[event]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(env.Data)
	}
}

// handleDrop runs the bounded reconnect loop after an unexpected read error.
func (c *Channel) handleDrop(conn *websocket.Conn) {
	_ = conn.Close()

	c.mu.Lock()
	if c.closed || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = Connecting
	done := c.done
	c.done = nil
	c.mu.Unlock()

	if done != nil {
		close(done)
	}

	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		time.Sleep(c.opts.ReconnectDelay)
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		next, _, err := c.dialer.Dial(c.url, nil)
		if err != nil {
			log.Printf("realtime reconnect %d/%d failed: %v", attempt, c.opts.ReconnectAttempts, err)
			continue
		}
		c.startSession(next)
		return
	}
	log.Printf("realtime: giving up after %d reconnect attempts", c.opts.ReconnectAttempts)
	c.setState(Disconnected)
}
