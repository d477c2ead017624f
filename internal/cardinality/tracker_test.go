package cardinality

import (
	"fmt"
	"testing"
)

func TestExactTracker(t *testing.T) {
	tr := NewExactTracker()

	if !tr.Add([]byte("up{}")) {
		t.Error("first add should be new")
	}
	if tr.Add([]byte("up{}")) {
		t.Error("second add should not be new")
	}
	tr.Add([]byte(`http_requests_total{method=GET}`))

	if tr.Count() != 2 {
		t.Errorf("count = %d, want 2", tr.Count())
	}

	tr.Reset()
	if tr.Count() != 0 {
		t.Errorf("count after reset = %d, want 0", tr.Count())
	}
}

func TestBloomTracker(t *testing.T) {
	tr := NewBloomTracker(Config{Mode: ModeBloom, ExpectedItems: 10000, FalsePositiveRate: 0.001})

	for i := 0; i < 1000; i++ {
		tr.Add([]byte(fmt.Sprintf("series_%d", i)))
	}
	for i := 0; i < 1000; i++ {
		if tr.Add([]byte(fmt.Sprintf("series_%d", i))) {
			t.Fatalf("series_%d reported new on second add", i)
		}
	}

	// Undercount bounded by the false positive rate.
	if c := tr.Count(); c < 990 || c > 1000 {
		t.Errorf("count = %d, want ~1000", c)
	}
	if tr.MemoryUsage() == 0 {
		t.Error("expected non-zero memory usage")
	}

	tr.Reset()
	if tr.Count() != 0 {
		t.Errorf("count after reset = %d", tr.Count())
	}
}

func TestHLLTracker(t *testing.T) {
	tr := NewHLLTracker()
	for i := 0; i < 5000; i++ {
		tr.Add([]byte(fmt.Sprintf("series_%d", i%2500)))
	}

	c := tr.Count()
	if c < 2400 || c > 2600 {
		t.Errorf("estimate = %d, want ~2500", c)
	}
}

func TestNewTracker(t *testing.T) {
	if _, ok := NewTracker(Config{Mode: ModeExact}).(*ExactTracker); !ok {
		t.Error("expected exact tracker")
	}
	if _, ok := NewTracker(DefaultConfig()).(*ExactTracker); !ok {
		t.Error("expected exact tracker for defaults")
	}
	cfg := DefaultConfig()
	cfg.Mode = ModeBloom
	if _, ok := NewTracker(cfg).(*BloomTracker); !ok {
		t.Error("expected bloom tracker")
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("bloom") != ModeBloom {
		t.Error("bloom")
	}
	if ParseMode("exact") != ModeExact || ParseMode("") != ModeExact {
		t.Error("exact")
	}
	if ModeBloom.String() != "bloom" || ModeExact.String() != "exact" {
		t.Error("String()")
	}
}
