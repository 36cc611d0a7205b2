package kv

import "time"

// Op identifies the class of operation a bearer token is checked against.
type Op int

const (
	// OpRead covers lookups.
	OpRead Op = iota
	// OpWrite covers inserts and overwrites.
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Entry is the value stored under a key.
// ModifiedAt is the zero time when the store does not track modification times.
type Entry struct {
	Value      string
	ModifiedAt time.Time
}

// HasModifiedAt reports whether the entry carries a last-write timestamp.
func (e Entry) HasModifiedAt() bool {
	return !e.ModifiedAt.IsZero()
}

// Store defines the interface for an authorized key-value store.
// Implementations of this interface can be swapped out,
// e.g. the plain in-memory store or an instrumented wrapper around it.
type Store interface {
	// Get retrieves a copy of the entry stored under key.
	// Returns the entry and true if the key exists, or a zero Entry and false if not.
	Get(key string) (Entry, bool)

	// Put replaces the entry stored under key. It always succeeds.
	Put(key, value string)

	// Authorized reports whether token grants access to operations of class op.
	Authorized(op Op, token string) bool
}
