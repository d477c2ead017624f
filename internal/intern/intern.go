// Package intern deduplicates the strings the parser extracts from fixture
// files. Fixtures repeat the same metric names, label names and label values
// thousands of times, and the parsed catalog stays resident for the life of
// the process.
package intern

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Pool interns strings. Reads are lock-free via sync.Map.
type Pool struct {
	strings sync.Map
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewPool creates a new intern pool.
func NewPool() *Pool {
	return &Pool{}
}

// Intern returns the canonical copy of s. The first time a value is seen it
// is cloned, so a substring of a large file buffer does not pin the buffer.
func (p *Pool) Intern(s string) string {
	if interned, ok := p.strings.Load(s); ok {
		p.hits.Add(1)
		return interned.(string)
	}

	clone := strings.Clone(s)
	actual, loaded := p.strings.LoadOrStore(clone, clone)
	if loaded {
		p.hits.Add(1)
	} else {
		p.misses.Add(1)
	}
	return actual.(string)
}

// Stats returns hit/miss statistics.
func (p *Pool) Stats() (hits, misses uint64) {
	return p.hits.Load(), p.misses.Load()
}

// Size returns the number of interned strings.
func (p *Pool) Size() int {
	count := 0
	p.strings.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// Shared pools used by the text-format parser.
var (
	MetricNames = NewPool()
	LabelNames  = NewPool()
	LabelValues = NewPool()
)

// pools lists the shared pools by the name used in self-metrics.
var pools = map[string]*Pool{
	"metric_names": MetricNames,
	"label_names":  LabelNames,
	"label_values": LabelValues,
}
