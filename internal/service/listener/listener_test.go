package listener

import (
	"testing"
	"time"

	"github.com/voxdesk/client/internal/transport"
)

// fakeSubscriber records subscriptions and lets tests push payloads.
type fakeSubscriber struct {
	subscribed map[string]int
	handlers   map[string]func([]byte)
	unsubbed   int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		subscribed: make(map[string]int),
		handlers:   make(map[string]func([]byte)),
	}
}

func (f *fakeSubscriber) Subscribe(channel string, fn func([]byte)) (func(), error) {
	f.subscribed[channel]++
	f.handlers[channel] = fn
	return func() { f.unsubbed++ }, nil
}

func (f *fakeSubscriber) push(channel string, payload string) {
	f.handlers[channel]([]byte(payload))
}

func TestInitSubscribesAtMostOnce(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)

	if err := l.Init(nil, nil); err != nil {
		t.Fatalf("Init err: %v", err)
	}
	if err := l.Init(nil, nil); err != nil {
		t.Fatalf("second Init err: %v", err)
	}
	if err := l.Init(nil, nil); err != nil {
		t.Fatalf("third Init err: %v", err)
	}

	if got := sub.subscribed[transport.ChannelTranscript]; got != 1 {
		t.Fatalf("transcript subscriptions: got %d want 1", got)
	}
	if got := sub.subscribed[transport.ChannelHeartbeat]; got != 1 {
		t.Fatalf("heartbeat subscriptions: got %d want 1", got)
	}
}

func TestInitReplacesCallback(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)

	var first, second int
	if err := l.Init(func(MessageEvent) { first++ }, nil); err != nil {
		t.Fatalf("Init err: %v", err)
	}
	if err := l.Init(func(MessageEvent) { second++ }, nil); err != nil {
		t.Fatalf("second Init err: %v", err)
	}

	sub.push(transport.ChannelTranscript, `{"text":"hi","session_id":"a","timestamp":1}`)

	if first != 0 {
		t.Fatalf("stale callback invoked %d times", first)
	}
	if second != 1 {
		t.Fatalf("current callback invocations: got %d want 1", second)
	}
}

func TestDuplicateDeliveryAbsorbed(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)

	calls := 0
	if err := l.Init(func(MessageEvent) { calls++ }, nil); err != nil {
		t.Fatalf("Init err: %v", err)
	}

	frame := `{"text":"same","session_id":"a","timestamp":7}`
	sub.push(transport.ChannelTranscript, frame)
	sub.push(transport.ChannelTranscript, frame)

	if calls != 1 {
		t.Fatalf("callback invocations: got %d want 1", calls)
	}

	// A different session id is a different fingerprint.
	sub.push(transport.ChannelTranscript, `{"text":"same","session_id":"b","timestamp":7}`)
	if calls != 2 {
		t.Fatalf("callback invocations: got %d want 2", calls)
	}
}

func TestFingerprintExpires(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)
	l.window = 20 * time.Millisecond

	calls := 0
	if err := l.Init(func(MessageEvent) { calls++ }, nil); err != nil {
		t.Fatalf("Init err: %v", err)
	}

	frame := `{"text":"same","session_id":"a","timestamp":7}`
	sub.push(transport.ChannelTranscript, frame)
	time.Sleep(60 * time.Millisecond)
	sub.push(transport.ChannelTranscript, frame)

	if calls != 2 {
		t.Fatalf("callback invocations after expiry: got %d want 2", calls)
	}
}

func TestHeartbeatsBypassDedup(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)

	beats := 0
	if err := l.Init(nil, func(HeartbeatEvent) { beats++ }); err != nil {
		t.Fatalf("Init err: %v", err)
	}

	frame := `{"session_id":"a","timestamp":7}`
	sub.push(transport.ChannelHeartbeat, frame)
	sub.push(transport.ChannelHeartbeat, frame)

	if beats != 2 {
		t.Fatalf("heartbeat invocations: got %d want 2", beats)
	}
}

func TestMalformedFramesDropped(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)

	calls := 0
	if err := l.Init(func(MessageEvent) { calls++ }, nil); err != nil {
		t.Fatalf("Init err: %v", err)
	}

	sub.push(transport.ChannelTranscript, `{broken`)
	if calls != 0 {
		t.Fatalf("malformed frame reached callback %d times", calls)
	}
}

func TestCleanupResetsInitialization(t *testing.T) {
	sub := newFakeSubscriber()
	l := New(sub)

	if err := l.Init(nil, nil); err != nil {
		t.Fatalf("Init err: %v", err)
	}
	l.Cleanup()
	l.Cleanup() // idempotent

	if sub.unsubbed != 2 {
		t.Fatalf("unsubscribe calls: got %d want 2", sub.unsubbed)
	}

	if err := l.Init(nil, nil); err != nil {
		t.Fatalf("re-Init err: %v", err)
	}
	if got := sub.subscribed[transport.ChannelTranscript]; got != 2 {
		t.Fatalf("transcript subscriptions after cleanup+init: got %d want 2", got)
	}
}
