package cache

import "time"

// EntryState describes the lifecycle of a cache entry. Transitions are
// one-way: a Live entry becomes Expired when its TTL passes, Evicted when it
// is removed under capacity pressure, or Deleted on explicit removal
// (delete, tag invalidation, clear, corruption self-heal). Expired, Evicted
// and Deleted all end in physical removal of the metadata row and blob.
type EntryState int

const (
	StateLive EntryState = iota
	StateExpired
	StateEvicted
	StateDeleted
)

func (s EntryState) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateExpired:
		return "expired"
	case StateEvicted:
		return "evicted"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Entry is the metadata stored for one cached blob.
type Entry struct {
	Key          string     `json:"key"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"` // nil means no TTL expiry
	AccessCount  int64      `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	SizeBytes    int64      `json:"size_bytes"`
	Tags         []string   `json:"tags"`
}

// stateAt classifies an entry by its expiry at the given instant. Entries
// without an expiry never expire by TTL.
func stateAt(expiresAt *time.Time, now time.Time) EntryState {
	if expiresAt != nil && now.After(*expiresAt) {
		return StateExpired
	}
	return StateLive
}
