// Package cardinality counts distinct series keys seen in the fixture corpus.
package cardinality

// Mode selects the per-scan tracker implementation.
type Mode int

const (
	// ModeExact stores every key; exact but grows with the corpus.
	ModeExact Mode = iota
	// ModeBloom uses a Bloom filter and may undercount by the false positive rate.
	ModeBloom
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeBloom:
		return "bloom"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode string. Anything other than "bloom" is exact.
func ParseMode(s string) Mode {
	if s == "bloom" {
		return ModeBloom
	}
	return ModeExact
}

// Config holds configuration for per-scan tracking.
type Config struct {
	Mode Mode

	// ExpectedItems sizes the Bloom filter.
	ExpectedItems uint

	// FalsePositiveRate is the Bloom filter target, 0.01 = 1%.
	FalsePositiveRate float64
}

// DefaultConfig returns defaults sized for fixture corpora.
func DefaultConfig() Config {
	return Config{
		Mode:              ModeExact,
		ExpectedItems:     50000,
		FalsePositiveRate: 0.01,
	}
}

// NewTracker creates a tracker for cfg.
func NewTracker(cfg Config) Tracker {
	if cfg.Mode == ModeBloom {
		return NewBloomTracker(cfg)
	}
	return NewExactTracker()
}
