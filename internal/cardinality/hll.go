package cardinality

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// HLLTracker estimates distinct keys in fixed memory (~12KB at precision 14).
// It cannot tell whether a key is new, so Add always returns true.
type HLLTracker struct {
	sketch *hyperloglog.Sketch
	mu     sync.Mutex
}

// NewHLLTracker creates a HyperLogLog tracker.
func NewHLLTracker() *HLLTracker {
	return &HLLTracker{sketch: hyperloglog.New()}
}

func (t *HLLTracker) Add(key []byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch.Insert(key)
	return true
}

// Count returns the estimate. Estimate may merge the sparse representation,
// hence the exclusive lock.
func (t *HLLTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(t.sketch.Estimate())
}

func (t *HLLTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sketch = hyperloglog.New()
}

func (t *HLLTracker) MemoryUsage() uint64 {
	return 12288
}
