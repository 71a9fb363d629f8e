// Package voices tracks manual voice-name assignments: which synthesis voice
// the user pinned to which session. The map is insertion-ordered so budget
// eviction drops the oldest assignments first.
package voices

import (
	"encoding/json"
	"log"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/voxdesk/client/internal/store"
)

// Assignments is the persisted session→voice map.
type Assignments struct {
	mu    sync.Mutex
	store store.Store
	m     *orderedmap.OrderedMap[string, string]
}

// Load reads the assignment map from st. A corrupted value is discarded and
// the map starts empty.
func Load(st store.Store) *Assignments {
	a := &Assignments{store: st, m: orderedmap.New[string, string]()}

	raw, ok := st.Get(store.VoiceAssignmentsKey)
	if !ok {
		return a
	}
	if err := json.Unmarshal([]byte(raw), a.m); err != nil {
		log.Printf("[voices] discarding corrupted assignment map: %v", err)
		a.m = orderedmap.New[string, string]()
	}
	return a
}

// Assign pins voice to the session. Re-assigning keeps the session's
// original insertion position.
func (a *Assignments) Assign(sessionID, voice string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.Set(sessionID, voice)
	a.persistLocked()
}

// Lookup returns the pinned voice for the session, if any.
func (a *Assignments) Lookup(sessionID string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.m.Get(sessionID)
}

// Remove drops the session's assignment.
func (a *Assignments) Remove(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.m.Get(sessionID); !ok {
		return
	}
	a.m.Delete(sessionID)
	a.persistLocked()
}

// All returns the assignments in insertion order.
func (a *Assignments) All() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

func (a *Assignments) persistLocked() {
	data, err := json.Marshal(a.m)
	if err != nil {
		log.Printf("[voices] failed to marshal assignment map: %v", err)
		return
	}
	if err := a.store.Set(store.VoiceAssignmentsKey, string(data)); err != nil {
		log.Printf("[voices] failed to persist assignment map: %v", err)
	}
}
