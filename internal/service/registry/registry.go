// Package registry resolves opaque session identifiers to logical session
// records. The functions here are pure: they never mutate the shared
// collection, leaving commit ordering to the caller (see Manager).
package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/voxdesk/client/internal/model/session"
)

// ActiveThreshold is how recent a heartbeat must be for a session to count
// as active.
const ActiveThreshold = 5 * time.Minute

var autoNamePattern = regexp.MustCompile(`^Agent #([0-9]+)$`)

// Resolve returns the session for id, synthesizing a new record when the id
// has never been seen. The display number is the lowest unused positive
// integer among existing auto-generated names, so numbers freed by deletion
// are reused before the sequence is extended. The input collection is never
// mutated; the caller must insert a new record exactly once.
func Resolve(id string, sessions []session.Session) (session.Session, bool) {
	for _, s := range sessions {
		if s.ID == id {
			return s, false
		}
	}

	n := nextDisplayNumber(sessions)
	now := time.Now().UnixMilli()
	return session.Session{
		ID:           id,
		DisplayName:  autoName(n),
		Color:        session.Palette[(n-1)%len(session.Palette)],
		Messages:     []session.Message{},
		CreatedAt:    now,
		LastActivity: now,
		IsAutoNamed:  true,
	}, true
}

func autoName(n int) string {
	return fmt.Sprintf("Agent #%d", n)
}

func nextDisplayNumber(sessions []session.Session) int {
	used := make(map[int]bool, len(sessions))
	for _, s := range sessions {
		if !s.IsAutoNamed {
			continue
		}
		m := autoNamePattern.FindStringSubmatch(s.DisplayName)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			used[n] = true
		}
	}

	for n := 1; ; n++ {
		if !used[n] {
			return n
		}
	}
}

// AppendMessage returns a copy of s with msg prepended and lastActivity set
// to now. A message without an ID gets a generated one.
func AppendMessage(s session.Session, msg session.Message) session.Session {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	messages := make([]session.Message, 0, len(s.Messages)+1)
	messages = append(messages, msg)
	messages = append(messages, s.Messages...)

	s.Messages = messages
	s.LastActivity = time.Now().UnixMilli()
	return s
}

// Heartbeat returns a copy of sessions with the heartbeat recorded. A
// heartbeat for an unseen id synthesizes a placeholder session so liveness
// can be tracked before any content message arrives.
func Heartbeat(sessions []session.Session, id string, ts int64) []session.Session {
	out := make([]session.Session, len(sessions))
	copy(out, sessions)

	for i := range out {
		if out[i].ID == id {
			out[i].LastHeartbeat = ts
			return out
		}
	}

	placeholder, _ := Resolve(id, sessions)
	placeholder.LastHeartbeat = ts
	return append(out, placeholder)
}

// IsActive reports whether s has a heartbeat within threshold. Message
// traffic never makes a session active: heartbeat and message streams are
// independent liveness signals.
func IsActive(s session.Session, threshold time.Duration) bool {
	if s.LastHeartbeat == 0 {
		return false
	}
	return time.Since(time.UnixMilli(s.LastHeartbeat)) < threshold
}

// Rename returns a copy of sessions with the matching session renamed. The
// auto-named flag is cleared permanently: manual names are never renumbered.
func Rename(sessions []session.Session, id, name string) []session.Session {
	return mapSession(sessions, id, func(s session.Session) session.Session {
		s.DisplayName = name
		s.IsAutoNamed = false
		return s
	})
}

// Recolor returns a copy of sessions with the matching session recolored.
func Recolor(sessions []session.Session, id, color string) []session.Session {
	return mapSession(sessions, id, func(s session.Session) session.Session {
		s.Color = color
		return s
	})
}

// ClearMessages returns a copy of sessions with the matching session's
// message list emptied.
func ClearMessages(sessions []session.Session, id string) []session.Session {
	return mapSession(sessions, id, func(s session.Session) session.Session {
		s.Messages = []session.Message{}
		return s
	})
}

// Delete returns a copy of sessions without the matching session.
func Delete(sessions []session.Session, id string) []session.Session {
	out := make([]session.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}

func mapSession(sessions []session.Session, id string, fn func(session.Session) session.Session) []session.Session {
	out := make([]session.Session, len(sessions))
	copy(out, sessions)
	for i := range out {
		if out[i].ID == id {
			out[i] = fn(out[i])
		}
	}
	return out
}
