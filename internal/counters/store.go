// Package counters keeps the running value of every synthetic counter series.
// Entries are created once, advanced on every generation and never removed.
package counters

import "sync"

// SeriesID identifies one counter series.
type SeriesID struct {
	Metric   string
	LabelKey string
}

// Store is a concurrency-safe map from series to current counter value.
type Store struct {
	mu     sync.Mutex
	values map[SeriesID]float64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{values: make(map[SeriesID]float64)}
}

// Seed creates the entry with value v unless it already exists.
// It reports whether a new entry was created.
func (s *Store) Seed(id SeriesID, v float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[id]; ok {
		return false
	}
	s.values[id] = v
	counterEntries.Inc()
	return true
}

// Has reports whether an entry exists for id.
func (s *Store) Has(id SeriesID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[id]
	return ok
}

// Advance adds delta to the entry and returns the new value. The read and
// the write happen under one lock acquisition. ok is false when no entry
// exists; nothing is created in that case.
func (s *Store) Advance(id SeriesID, delta float64) (value float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.values[id]
	if !ok {
		return 0, false
	}
	cur += delta
	s.values[id] = cur
	return cur, true
}

// Get returns the current value of the entry.
func (s *Store) Get(id SeriesID) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[id]
	return v, ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Snapshot returns a copy of all entries.
func (s *Store) Snapshot() map[SeriesID]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[SeriesID]float64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
