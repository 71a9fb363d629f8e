package session

// Palette is the fixed set of color tokens assigned to sessions. Auto-named
// session number N gets Palette[(N-1) % len(Palette)].
var Palette = []string{"blue", "green", "orange", "purple", "red", "teal", "pink", "amber"}

// Message is a single transcript entry. Session message lists are ordered
// newest first.
type Message struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Session groups transcript messages from one logical producer process. The
// ID is opaque and caller-assigned; exactly one Session ever exists per
// distinct ID observed. Timestamps are epoch milliseconds to match the wire
// frames and the persisted store format.
type Session struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"displayName"`
	Color         string    `json:"color"`
	Messages      []Message `json:"messages"`
	CreatedAt     int64     `json:"createdAt"`
	LastActivity  int64     `json:"lastActivity"`
	LastHeartbeat int64     `json:"lastHeartbeat,omitempty"`
	IsAutoNamed   bool      `json:"isAutoNamed"`
}
