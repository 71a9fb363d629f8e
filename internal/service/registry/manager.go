package registry

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/voxdesk/client/internal/model/session"
	"github.com/voxdesk/client/internal/store"
)

// Manager owns the shared session collection. The registry functions are
// pure and do not enforce atomicity across a resolve-then-insert sequence,
// so the Manager serializes every read-modify-write cycle and re-checks for
// an existing record before inserting a resolved session. The collection is
// persisted to the governed store key after every mutation.
type Manager struct {
	mu       sync.Mutex
	store    store.Store
	sessions []session.Session
}

// NewManager loads the persisted session collection from st. A corrupted
// value is discarded and the manager starts empty.
func NewManager(st store.Store) *Manager {
	m := &Manager{store: st}

	raw, ok := st.Get(store.SessionsKey)
	if !ok {
		return m
	}
	if err := json.Unmarshal([]byte(raw), &m.sessions); err != nil {
		log.Printf("[registry] discarding corrupted session list: %v", err)
		m.sessions = nil
	}
	return m
}

// Sessions returns a snapshot of the session collection.
func (m *Manager) Sessions() []session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]session.Session, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// RecordMessage routes an inbound transcript event to its session, creating
// the session on first contact. Even though resolve and insert happen under
// one lock here, the insert re-checks by id: a second record for the same id
// must never be created.
func (m *Manager) RecordMessage(sessionID, text string, ts int64) session.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := session.Message{Text: text, Timestamp: ts}
	resolved, isNew := Resolve(sessionID, m.sessions)

	if !isNew {
		idx := m.indexLocked(sessionID)
		m.sessions[idx] = AppendMessage(resolved, msg)
		m.persistLocked()
		return m.sessions[idx]
	}

	if idx := m.indexLocked(sessionID); idx >= 0 {
		// A record for this id was committed between resolve and insert.
		// Fold the message into it instead of inserting a duplicate.
		m.sessions[idx] = AppendMessage(m.sessions[idx], msg)
		m.persistLocked()
		return m.sessions[idx]
	}

	m.sessions = append(m.sessions, AppendMessage(resolved, msg))
	m.persistLocked()
	return m.sessions[len(m.sessions)-1]
}

// RecordHeartbeat updates the session's liveness timestamp, synthesizing a
// placeholder session for an unseen id.
func (m *Manager) RecordHeartbeat(sessionID string, ts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = Heartbeat(m.sessions, sessionID, ts)
	m.persistLocked()
}

// Rename gives the session a manual display name.
func (m *Manager) Rename(sessionID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = Rename(m.sessions, sessionID, name)
	m.persistLocked()
}

// Recolor changes the session's palette token.
func (m *Manager) Recolor(sessionID, color string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = Recolor(m.sessions, sessionID, color)
	m.persistLocked()
}

// ClearMessages empties the session's transcript.
func (m *Manager) ClearMessages(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = ClearMessages(m.sessions, sessionID)
	m.persistLocked()
}

// Delete removes the session entirely. Its display number becomes available
// for reuse.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = Delete(m.sessions, sessionID)
	m.persistLocked()
}

func (m *Manager) indexLocked(sessionID string) int {
	for i := range m.sessions {
		if m.sessions[i].ID == sessionID {
			return i
		}
	}
	return -1
}

func (m *Manager) persistLocked() {
	data, err := json.Marshal(m.sessions)
	if err != nil {
		log.Printf("[registry] failed to marshal session list: %v", err)
		return
	}
	if err := m.store.Set(store.SessionsKey, string(data)); err != nil {
		log.Printf("[registry] failed to persist session list: %v", err)
	}
}
