// Package stream maintains the single resilient connection to the
// audio/speech push channel and arbitrates which output may play.
package stream

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxdesk/client/internal/metrics"
)

// State describes where the client is in its connection lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Event types on the audio/speech channel.
const (
	EventVoice     = "voice"
	EventSpeak     = "speak"
	EventStatus    = "status"
	EventError     = "error"
	EventConnected = "connected"
)

// Event is one frame from the audio/speech push channel. Audio carries a
// decoded payload for voice events; Text carries the utterance for speak
// events.
type Event struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Audio   []byte `json:"audio,omitempty"`
	Format  string `json:"format,omitempty"`
	Voice   string `json:"voice,omitempty"`
	Message string `json:"message,omitempty"`
}

const (
	maxReconnectAttempts = 5
	reconnectBaseDelay   = time.Second
	handshakeTimeout     = 30 * time.Second
)

// conn is the slice of *websocket.Conn the client needs; tests substitute a
// scripted implementation.
type conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client owns the audio/speech channel connection. Transport failures are
// recovered with bounded linear backoff and surfaced only as state, never as
// callbacks-with-errors; after five failed attempts the client goes quiet
// until Connect is called again.
type Client struct {
	mu        sync.Mutex
	output    Output
	endpoint  string
	enabled   bool
	attempts  int
	state     State
	conn      conn
	handlers  map[int]func(Event)
	nextID    int
	reconnect *time.Timer
	playback  Playback

	dial      func(endpoint string) (conn, error)
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewClient returns a disconnected client. output may be nil, in which case
// voice and speak events still reach observers but produce no sound.
func NewClient(output Output) *Client {
	return &Client{
		output:    output,
		state:     StateDisconnected,
		handlers:  make(map[int]func(Event)),
		dial:      gorillaDial,
		afterFunc: time.AfterFunc,
	}
}

func gorillaDial(endpoint string) (conn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	c, _, err := dialer.Dial(endpoint, nil)
	return c, err
}

// Connect tears down any existing connection, marks the client enabled, and
// opens the channel. A failed dial starts the backoff schedule.
func (c *Client) Connect(endpoint string) error {
	c.mu.Lock()
	c.teardownLocked()
	c.endpoint = endpoint
	c.enabled = true
	c.attempts = 0
	c.state = StateConnecting
	c.mu.Unlock()

	return c.open()
}

// Disconnect disables the client, suppressing any pending reconnect, closes
// the channel, and stops in-flight output. Idempotent.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.enabled = false
	c.teardownLocked()
	c.state = StateDisconnected
	c.mu.Unlock()

	metrics.StreamConnected.Set(0)
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnEvent registers an observer for every inbound event regardless of type.
// Observers run before any built-in audio or speech side effect. The
// returned function unsubscribes.
func (c *Client) OnEvent(handler func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.handlers[id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, id)
	}
}

// teardownLocked closes the connection, cancels a pending reconnect, and
// stops playback. Callers hold c.mu.
func (c *Client) teardownLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.playback != nil {
		c.playback.Stop()
		c.playback = nil
	}
}

func (c *Client) open() error {
	c.mu.Lock()
	endpoint := c.endpoint
	dial := c.dial
	c.mu.Unlock()

	newConn, err := dial(endpoint)
	if err != nil {
		c.handleDisconnect(err)
		return err
	}

	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		newConn.Close()
		return nil
	}
	c.conn = newConn
	c.attempts = 0
	c.state = StateConnected
	c.mu.Unlock()

	metrics.StreamConnected.Set(1)
	log.Printf("[stream] connected to %s", endpoint)

	go c.readLoop(newConn)
	return nil
}

func (c *Client) readLoop(current conn) {
	for {
		_, data, err := current.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.conn != current
			c.mu.Unlock()
			if stale {
				// A newer Connect replaced this connection.
				return
			}
			c.handleDisconnect(err)
			return
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			log.Printf("[stream] skipping malformed frame: %v", err)
			continue
		}
		c.dispatch(evt)
	}
}

// handleDisconnect schedules the next reconnect attempt with linear backoff:
// 1s, 2s, 3s, 4s, 5s. After five failures the client gives up silently.
func (c *Client) handleDisconnect(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn = nil
	metrics.StreamConnected.Set(0)

	if !c.enabled {
		c.state = StateDisconnected
		return
	}
	if c.attempts >= maxReconnectAttempts {
		log.Printf("[stream] giving up after %d reconnect attempts", c.attempts)
		c.state = StateDisconnected
		return
	}

	c.attempts++
	delay := reconnectBaseDelay * time.Duration(c.attempts)
	c.state = StateReconnecting
	log.Printf("[stream] connection lost (%v), reconnecting in %s (attempt %d/%d)", cause, delay, c.attempts, maxReconnectAttempts)
	metrics.ReconnectAttempts.Inc()

	c.reconnect = c.afterFunc(delay, func() {
		c.open()
	})
}

// dispatch fans the event out to observers, then applies the built-in
// playback side effects.
func (c *Client) dispatch(evt Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.handlers))
	for _, fn := range c.handlers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}

	switch evt.Type {
	case EventVoice:
		c.play(func(out Output) (Playback, error) {
			return out.PlayAudio(evt.Audio, evt.Format)
		})
	case EventSpeak:
		c.play(func(out Output) (Playback, error) {
			return out.Speak(evt.Text, evt.Voice)
		})
	case EventError:
		log.Printf("[stream] server error event: %s", evt.Message)
	}
}

// play stops whichever output is active, then starts the new one. At most
// one output is ever active: audio payloads and synthesized speech are
// mutually exclusive, not layered.
func (c *Client) play(start func(Output) (Playback, error)) {
	c.mu.Lock()
	if c.playback != nil {
		c.playback.Stop()
		c.playback = nil
	}
	out := c.output
	c.mu.Unlock()

	if out == nil {
		return
	}

	pb, err := start(out)
	if err != nil {
		log.Printf("[stream] playback failed: %v", err)
		return
	}

	c.mu.Lock()
	c.playback = pb
	c.mu.Unlock()
}
