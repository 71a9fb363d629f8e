package listener

import (
	"sync"

	"github.com/voxdesk/client/internal/transport"
)

// The process-wide listener. Constructed lazily on first Init; every window
// shares it so there is never more than one subscription pair per process.
var (
	stdMu sync.Mutex
	std   *Listener
)

// Init wires the shared listener, constructing it on first use. Later calls
// with the same transport only replace the callbacks.
func Init(sub transport.Subscriber, onMessage func(MessageEvent), onHeartbeat func(HeartbeatEvent)) error {
	stdMu.Lock()
	defer stdMu.Unlock()
	if std == nil {
		std = New(sub)
	}
	return std.Init(onMessage, onHeartbeat)
}

// UpdateCallback swaps the shared listener's message handler.
func UpdateCallback(onMessage func(MessageEvent)) {
	stdMu.Lock()
	defer stdMu.Unlock()
	if std != nil {
		std.UpdateCallback(onMessage)
	}
}

// UpdateHeartbeatCallback swaps the shared listener's heartbeat handler.
func UpdateHeartbeatCallback(onHeartbeat func(HeartbeatEvent)) {
	stdMu.Lock()
	defer stdMu.Unlock()
	if std != nil {
		std.UpdateHeartbeatCallback(onHeartbeat)
	}
}

// Cleanup tears the shared listener down. A later Init starts fresh.
func Cleanup() {
	stdMu.Lock()
	defer stdMu.Unlock()
	if std != nil {
		std.Cleanup()
		std = nil
	}
}
