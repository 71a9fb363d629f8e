// Package governor enforces the byte budget on the persisted store. All
// trimming is deterministic and lossy: the store is kept readable at the
// price of dropping the oldest or longest data first.
package governor

import (
	"encoding/json"
	"log"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/voxdesk/client/internal/metrics"
	"github.com/voxdesk/client/internal/model/session"
	"github.com/voxdesk/client/internal/store"
)

// Defaults for the standalone trim operations.
const (
	DefaultMaxTextLen  = 2000
	DefaultMaxHistory  = 50
	DefaultMaxKeyed    = 50
	DefaultBudgetBytes = 5_000_000
)

// Budget-pass limits, tighter than the standalone defaults: once the store is
// over budget the governed collections are cut hard in a single pass.
const (
	budgetHistoryEntries  = 10
	budgetSessions        = 10
	budgetSessionMessages = 100
	budgetVoiceEntries    = 20
)

// HistoryEntry is one persisted dictation result. Absent text fields stay
// absent through trimming.
type HistoryEntry struct {
	ID           string `json:"id,omitempty"`
	Timestamp    int64  `json:"timestamp,omitempty"`
	RawText      string `json:"rawText,omitempty"`
	PolishedText string `json:"polishedText,omitempty"`
}

// VoiceMap is the insertion-ordered voice-name assignment map. Order matters:
// eviction drops the oldest assignments first.
type VoiceMap = orderedmap.OrderedMap[string, string]

// UsageBytes sums (keyLength + valueLength) × 2 over every key in the store,
// counting UTF-16 code units to match the platform's internal text encoding.
// An empty store reports 0.
func UsageBytes(s store.Store) int {
	total := 0
	for _, key := range s.Keys() {
		value, ok := s.Get(key)
		if !ok {
			continue
		}
		total += 2 * (textLen(key) + textLen(value))
	}
	return total
}

// textLen counts UTF-16 code units: one per rune below U+10000, two for the
// rest.
func textLen(s string) int {
	units := 0
	for _, r := range s {
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// Truncate caps text at maxLen characters. Over-long input becomes exactly
// maxLen characters ending in a literal "...".
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-3]) + "..."
}

// TrimHistory sorts entries by timestamp descending, keeps the first
// maxCount, and truncates each surviving entry's text fields. Entries without
// a timestamp sort after timestamped ones and keep their relative order. The
// input slice is not modified.
func TrimHistory(entries []HistoryEntry, maxCount int) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})

	if len(out) > maxCount {
		out = out[:maxCount]
	}

	for i := range out {
		if out[i].RawText != "" {
			out[i].RawText = Truncate(out[i].RawText, DefaultMaxTextLen)
		}
		if out[i].PolishedText != "" {
			out[i].PolishedText = Truncate(out[i].PolishedText, DefaultMaxTextLen)
		}
	}
	return out
}

// TrimKeyedMap keeps the last maxCount entries by insertion order, dropping
// the oldest. A map already within budget is returned as-is.
func TrimKeyedMap(m *VoiceMap, maxCount int) *VoiceMap {
	if m == nil || m.Len() <= maxCount {
		return m
	}

	skip := m.Len() - maxCount
	out := orderedmap.New[string, string]()
	i := 0
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if i >= skip {
			out.Set(pair.Key, pair.Value)
		}
		i++
	}
	return out
}

// EnforceBudget is a single synchronous maintenance pass: when UsageBytes
// exceeds capBytes, each governed collection is trimmed to its budget limits
// and re-persisted. A governed value that fails to parse is deleted outright
// rather than preserved. The pass does not re-check usage after each trim and
// never touches non-governed keys.
func EnforceBudget(s store.Store, capBytes int) {
	usage := UsageBytes(s)
	if usage <= capBytes {
		return
	}

	log.Printf("[governor] store usage %d bytes exceeds %d byte cap, trimming governed collections", usage, capBytes)
	metrics.BudgetEnforcements.Inc()

	if raw, ok := s.Get(store.HistoryKey); ok {
		var entries []HistoryEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			repairKey(s, store.HistoryKey, err)
		} else {
			persist(s, store.HistoryKey, TrimHistory(entries, budgetHistoryEntries))
		}
	}

	if raw, ok := s.Get(store.SessionsKey); ok {
		var sessions []session.Session
		if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
			repairKey(s, store.SessionsKey, err)
		} else {
			persist(s, store.SessionsKey, trimSessions(sessions))
		}
	}

	if raw, ok := s.Get(store.VoiceAssignmentsKey); ok {
		m := orderedmap.New[string, string]()
		if err := json.Unmarshal([]byte(raw), m); err != nil {
			repairKey(s, store.VoiceAssignmentsKey, err)
		} else {
			persist(s, store.VoiceAssignmentsKey, TrimKeyedMap(m, budgetVoiceEntries))
		}
	}
}

// trimSessions keeps the most-recently-active sessions and caps each
// surviving session's message list. Message lists are newest-first, so the
// cap keeps the newest messages.
func trimSessions(sessions []session.Session) []session.Session {
	out := make([]session.Session, len(sessions))
	copy(out, sessions)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity > out[j].LastActivity
	})
	if len(out) > budgetSessions {
		out = out[:budgetSessions]
	}

	for i := range out {
		if len(out[i].Messages) > budgetSessionMessages {
			out[i].Messages = out[i].Messages[:budgetSessionMessages]
		}
	}
	return out
}

func repairKey(s store.Store, key string, cause error) {
	log.Printf("[governor] deleting corrupted %s: %v", key, cause)
	metrics.KeysRepaired.Inc()
	if err := s.Delete(key); err != nil {
		log.Printf("[governor] failed to delete %s: %v", key, err)
	}
}

func persist(s store.Store, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("[governor] failed to marshal trimmed %s: %v", key, err)
		return
	}
	if err := s.Set(key, string(data)); err != nil {
		log.Printf("[governor] failed to persist trimmed %s: %v", key, err)
	}
}
