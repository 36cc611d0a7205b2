package store

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/heysubinoy/keyvaluestore/pkg/kv"
)

// Options configures a MemStore. Tokens are fixed for the lifetime of the store.
type Options struct {
	ReadToken  string
	WriteToken string

	// TrackModified stamps every entry with the time its last write was committed.
	TrackModified bool

	// Now overrides the wall clock, mainly for tests. Defaults to time.Now.
	Now func() time.Time
}

// MemStore is an in-memory implementation of the kv.Store interface.
// A single Mutex guards the whole map; Get and Put both hold it exclusively.
type MemStore struct {
	readToken     string
	writeToken    string
	trackModified bool
	now           func() time.Time

	mu   sync.Mutex
	data map[string]kv.Entry
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// NewMemStore creates and returns a new, empty MemStore.
func NewMemStore(opts Options) *MemStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemStore{
		readToken:     opts.ReadToken,
		writeToken:    opts.WriteToken,
		trackModified: opts.TrackModified,
		now:           now,
		data:          make(map[string]kv.Entry),
	}
}

// Get retrieves the entry stored under key.
// kv.Entry is a value type, so the caller receives a snapshot.
func (s *MemStore) Get(key string) (kv.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	return e, ok
}

// Put replaces the entry stored under key.
// The timestamp is taken while the lock is held, so racing writers to the
// same key are stamped in the order they commit.
func (s *MemStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := kv.Entry{Value: value}
	if s.trackModified {
		e.ModifiedAt = s.now()
		// Keep per-key timestamps non-decreasing if the wall clock steps back.
		if prev, ok := s.data[key]; ok && e.ModifiedAt.Before(prev.ModifiedAt) {
			e.ModifiedAt = prev.ModifiedAt
		}
	}
	s.data[key] = e
}

// Authorized compares token against the configured token for op.
// An empty configured token never matches.
func (s *MemStore) Authorized(op kv.Op, token string) bool {
	var want string
	switch op {
	case kv.OpRead:
		want = s.readToken
	case kv.OpWrite:
		want = s.writeToken
	default:
		return false
	}
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 1
}

// Len returns the number of stored keys.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data)
}
