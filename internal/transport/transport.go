// Package transport provides the push-channel primitive consumed by the
// event listener: named server-push channels delivering opaque payloads.
package transport

// Channel names carried by the push connection.
const (
	ChannelTranscript = "transcript"
	ChannelHeartbeat  = "heartbeat"
)

// Subscriber delivers payloads published on a named channel. Subscribe
// returns an unsubscribe function; payloads are delivered in arrival order
// on the subscriber's dispatch goroutine.
type Subscriber interface {
	Subscribe(channel string, fn func(payload []byte)) (func(), error)
}
