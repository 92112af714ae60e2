// Package history holds the fixed-size rolling history of snapshot
// records: newest at index 0, oldest shifted off the tail.
package history

import (
	"sync"

	"github.com/spacefrags/kopiahook/internal/snapshot"
)

// Store is an ordered sequence of exactly limit slots. Each slot holds
// either nil (never written) or a snapshot record. The length never
// changes after construction; Update is the only mutation.
type Store struct {
	mu    sync.RWMutex
	slots []snapshot.Record
	subs  []func()
}

// New creates an empty store with the given number of slots. limit must
// be at least 1; config validation enforces the real bounds upstream.
func New(limit int) *Store {
	if limit < 1 {
		limit = 1
	}
	return &Store{slots: make([]snapshot.Record, limit)}
}

// Limit returns the fixed slot count.
func (s *Store) Limit() int { return len(s.slots) }

// Update inserts rec at index 0, shifting every existing entry one slot
// toward the tail and discarding the entry previously at the last index.
// The shift walks indices in descending order; ascending would overwrite
// entries before they are copied forward. Subscribers are notified
// synchronously after the mutation. No dedup, no content validation.
func (s *Store) Update(rec snapshot.Record) {
	s.mu.Lock()
	for i := len(s.slots) - 1; i >= 1; i-- {
		s.slots[i] = s.slots[i-1]
	}
	s.slots[0] = rec
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// At returns the record at slot index i, or nil when the slot is empty
// or i is out of range.
func (s *Store) At(i int) snapshot.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i]
}

// Records returns a copy of the slot sequence, newest first. Empty slots
// appear as nil entries so indices stay aligned with display slots.
func (s *Store) Records() []snapshot.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]snapshot.Record, len(s.slots))
	copy(out, s.slots)
	return out
}

// Subscribe registers fn to run synchronously after every Update, in
// registration order. Not safe to call concurrently with Update; wire
// subscribers during startup.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
