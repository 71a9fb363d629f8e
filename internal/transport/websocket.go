package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 30 * time.Second
	readTimeout      = 60 * time.Second
)

// envelope is one multiplexed frame on the push socket.
type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// WSSubscriber multiplexes named push channels over a single websocket
// connection. It is receive-only: nothing is ever written upstream except
// protocol-level pongs.
type WSSubscriber struct {
	mu       sync.Mutex
	conn     *websocket.Conn
	handlers map[string]map[int]func([]byte)
	nextID   int
	closed   bool
}

// Dial connects to the push endpoint and starts the dispatch loop.
func Dial(ctx context.Context, endpoint string) (*WSSubscriber, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	s := &WSSubscriber{
		conn:     conn,
		handlers: make(map[string]map[int]func([]byte)),
	}
	go s.readLoop()
	return s, nil
}

// Subscribe registers fn for payloads on the named channel.
func (s *WSSubscriber) Subscribe(channel string, fn func(payload []byte)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("subscriber is closed")
	}

	if s.handlers[channel] == nil {
		s.handlers[channel] = make(map[int]func([]byte))
	}
	id := s.nextID
	s.nextID++
	s.handlers[channel][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[channel], id)
	}, nil
}

// Close shuts the connection down. Safe to call more than once.
func (s *WSSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

func (s *WSSubscriber) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				log.Printf("[transport] push channel closed: %v", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[transport] dropping malformed frame: %v", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *WSSubscriber) dispatch(env envelope) {
	s.mu.Lock()
	fns := make([]func([]byte), 0, len(s.handlers[env.Channel]))
	for _, fn := range s.handlers[env.Channel] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(env.Payload)
	}
}
