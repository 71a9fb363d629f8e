package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voxdesk/client/internal/transport"
)

// pushServer upgrades one connection and writes the queued frames.
func pushServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade err: %v", err)
			return
		}
		defer conn.Close()
		// Give the client a moment to register its subscriptions.
		time.Sleep(200 * time.Millisecond)
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscriberDispatchesByChannel(t *testing.T) {
	srv := pushServer(t, []string{
		`{"channel":"transcript","payload":{"text":"hi"}}`,
		`{not a frame`,
		`{"channel":"heartbeat","payload":{"session_id":"a"}}`,
	})
	defer srv.Close()

	sub, err := transport.Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}
	defer sub.Close()

	transcripts := make(chan string, 4)
	heartbeats := make(chan string, 4)
	if _, err := sub.Subscribe(transport.ChannelTranscript, func(p []byte) { transcripts <- string(p) }); err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	if _, err := sub.Subscribe(transport.ChannelHeartbeat, func(p []byte) { heartbeats <- string(p) }); err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}

	select {
	case got := <-transcripts:
		if !strings.Contains(got, "hi") {
			t.Fatalf("transcript payload: %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transcript frame")
	}

	// The malformed frame in between is dropped, not fatal.
	select {
	case got := <-heartbeats:
		if !strings.Contains(got, "session_id") {
			t.Fatalf("heartbeat payload: %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for heartbeat frame")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	srv := pushServer(t, nil)
	defer srv.Close()

	sub, err := transport.Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatalf("Dial err: %v", err)
	}
	defer sub.Close()

	unsubscribe, err := sub.Subscribe(transport.ChannelTranscript, func([]byte) {})
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	unsubscribe()

	if err := sub.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}
	// Closed subscribers refuse new subscriptions.
	if _, err := sub.Subscribe(transport.ChannelHeartbeat, func([]byte) {}); err == nil {
		t.Fatal("expected error subscribing on closed subscriber")
	}
}
