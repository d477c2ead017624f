package cardinality

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Tracker counts distinct keys.
type Tracker interface {
	// Add records key and reports whether it was new.
	Add(key []byte) bool

	// Count returns the number of distinct keys seen.
	Count() int64

	// Reset forgets all keys.
	Reset()

	// MemoryUsage returns approximate memory usage in bytes.
	MemoryUsage() uint64
}

// BloomTracker counts distinct keys with a Bloom filter plus a counter of
// first sightings. False positives make it undercount slightly.
type BloomTracker struct {
	filter *bloom.BloomFilter
	count  int64
	mu     sync.Mutex
}

// NewBloomTracker creates a Bloom filter tracker sized from cfg.
func NewBloomTracker(cfg Config) *BloomTracker {
	return &BloomTracker{
		filter: bloom.NewWithEstimates(cfg.ExpectedItems, cfg.FalsePositiveRate),
	}
}

func (t *BloomTracker) Add(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.filter.TestAndAdd(key) {
		return false
	}
	t.count++
	return true
}

func (t *BloomTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *BloomTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filter.ClearAll()
	t.count = 0
}

func (t *BloomTracker) MemoryUsage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint64(t.filter.Cap()) / 8
}

// ExactTracker stores every key in a map.
type ExactTracker struct {
	items map[string]struct{}
	mu    sync.Mutex
}

// NewExactTracker creates an exact tracker.
func NewExactTracker() *ExactTracker {
	return &ExactTracker{items: make(map[string]struct{})}
}

func (t *ExactTracker) Add(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := string(key)
	if _, exists := t.items[k]; exists {
		return false
	}
	t.items[k] = struct{}{}
	return true
}

func (t *ExactTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(len(t.items))
}

func (t *ExactTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]struct{})
}

// MemoryUsage estimates ~64 bytes per stored key.
func (t *ExactTracker) MemoryUsage() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint64(len(t.items)) * 64
}
