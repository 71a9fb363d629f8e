// Package listener owns the process's single subscription pair to the
// transcript and heartbeat push channels. UI views come and go; the
// subscriptions do not. Re-initializing only swaps the delegate callbacks,
// so reopening a view can never register a duplicate subscription.
package listener

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/voxdesk/client/internal/metrics"
	"github.com/voxdesk/client/internal/transport"
)

const (
	// dedupWindow is how long a message fingerprint suppresses redelivery.
	dedupWindow = 5 * time.Second

	// fingerprintTextLen caps the text prefix folded into a fingerprint.
	fingerprintTextLen = 100
)

// MessageEvent is one frame from the transcript push channel.
type MessageEvent struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}

// HeartbeatEvent is one frame from the heartbeat push channel.
type HeartbeatEvent struct {
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}

// Listener routes push-channel frames to a replaceable callback pair,
// absorbing duplicate message deliveries. The transport may redeliver;
// heartbeats are idempotent and bypass the guard.
type Listener struct {
	mu          sync.Mutex
	sub         transport.Subscriber
	onMessage   func(MessageEvent)
	onHeartbeat func(HeartbeatEvent)
	unsubMsg    func()
	unsubHb     func()
	initialized bool
	seen        map[string]*time.Timer
	window      time.Duration
}

// New returns a listener bound to the given transport. Nothing is subscribed
// until Init is called.
func New(sub transport.Subscriber) *Listener {
	return &Listener{
		sub:    sub,
		seen:   make(map[string]*time.Timer),
		window: dedupWindow,
	}
}

// Init performs the underlying subscriptions on first call. Every later call
// only replaces the stored callbacks; the subscriptions are created at most
// once for the lifetime of the listener.
func (l *Listener) Init(onMessage func(MessageEvent), onHeartbeat func(HeartbeatEvent)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.onMessage = onMessage
	l.onHeartbeat = onHeartbeat
	if l.initialized {
		return nil
	}

	unsubMsg, err := l.sub.Subscribe(transport.ChannelTranscript, l.handleMessage)
	if err != nil {
		return fmt.Errorf("subscribe transcript channel: %w", err)
	}
	unsubHb, err := l.sub.Subscribe(transport.ChannelHeartbeat, l.handleHeartbeat)
	if err != nil {
		unsubMsg()
		return fmt.Errorf("subscribe heartbeat channel: %w", err)
	}

	l.unsubMsg = unsubMsg
	l.unsubHb = unsubHb
	l.initialized = true
	return nil
}

// UpdateCallback swaps the message handler without touching the
// subscription.
func (l *Listener) UpdateCallback(onMessage func(MessageEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onMessage = onMessage
}

// UpdateHeartbeatCallback swaps the heartbeat handler without touching the
// subscription.
func (l *Listener) UpdateHeartbeatCallback(onHeartbeat func(HeartbeatEvent)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onHeartbeat = onHeartbeat
}

// Cleanup tears both subscriptions down and resets initialization state, so
// a later Init subscribes again. This is the explicit teardown path, not the
// per-view unmount path, and is safe to call when already stopped.
func (l *Listener) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unsubMsg != nil {
		l.unsubMsg()
		l.unsubMsg = nil
	}
	if l.unsubHb != nil {
		l.unsubHb()
		l.unsubHb = nil
	}
	for fp, timer := range l.seen {
		timer.Stop()
		delete(l.seen, fp)
	}
	l.onMessage = nil
	l.onHeartbeat = nil
	l.initialized = false
}

func (l *Listener) handleMessage(payload []byte) {
	var evt MessageEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		log.Printf("[listener] dropping malformed message frame: %v", err)
		return
	}

	fp := fingerprint(evt)
	l.mu.Lock()
	if _, dup := l.seen[fp]; dup {
		l.mu.Unlock()
		metrics.EventsDeduplicated.Inc()
		return
	}
	l.seen[fp] = time.AfterFunc(l.window, func() {
		l.mu.Lock()
		delete(l.seen, fp)
		l.mu.Unlock()
	})
	fn := l.onMessage
	l.mu.Unlock()

	metrics.MessagesRouted.Inc()
	if fn != nil {
		fn(evt)
	}
}

func (l *Listener) handleHeartbeat(payload []byte) {
	var evt HeartbeatEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		log.Printf("[listener] dropping malformed heartbeat frame: %v", err)
		return
	}

	l.mu.Lock()
	fn := l.onHeartbeat
	l.mu.Unlock()

	metrics.HeartbeatsRouted.Inc()
	if fn != nil {
		fn(evt)
	}
}

// fingerprint derives the short-lived dedup key: timestamp, session id, and
// the first characters of the text.
func fingerprint(evt MessageEvent) string {
	text := evt.Text
	if runes := []rune(text); len(runes) > fingerprintTextLen {
		text = string(runes[:fingerprintTextLen])
	}
	return fmt.Sprintf("%d|%s|%s", evt.Timestamp, evt.SessionID, text)
}
