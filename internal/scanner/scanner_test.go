package scanner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/szibis/mock-exporter/internal/cardinality"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScanner(t *testing.T, cfg Config) (*Scanner, *fakeClock) {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	return s, clock
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for empty dir")
	}
	if _, err := New(Config{Dir: "x", Include: []string{"[unterminated"}}); err == nil {
		t.Error("expected error for invalid pattern")
	}

	s, err := New(Config{Dir: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", s.Interval(), DefaultInterval)
	}
	if s.Dir() != "x" {
		t.Errorf("Dir() = %q", s.Dir())
	}
}

func TestRefresh_Scenario(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "http.prom", `# TYPE http_requests_total counter
http_requests_total{method="GET"} 10
http_requests_total{method="GET"} 20
`)
	s, _ := newTestScanner(t, Config{Dir: dir})

	res, err := s.Refresh(false)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	m := res.Catalog["http_requests_total"]
	if m == nil {
		t.Fatal("metric missing from catalog")
	}
	if m.Stats.Mean != 15 || m.Stats.Min != 10 || m.Stats.Max != 20 {
		t.Errorf("unexpected stats %+v", m.Stats)
	}
	if res.Files != 1 || res.Samples != 2 || res.Series != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRefresh_Throttled(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", "up 1\n")
	s, clock := newTestScanner(t, Config{Dir: dir, Interval: time.Minute})

	if res, err := s.Refresh(false); err != nil || res == nil {
		t.Fatalf("first refresh: res=%v err=%v", res, err)
	}

	throttledBefore := testutil.ToFloat64(scansTotal.WithLabelValues("throttled"))
	clock.Advance(30 * time.Second)
	res, err := s.Refresh(false)
	if err != nil || res != nil {
		t.Errorf("expected throttled no-op, got res=%v err=%v", res, err)
	}
	if got := testutil.ToFloat64(scansTotal.WithLabelValues("throttled")) - throttledBefore; got != 1 {
		t.Errorf("throttled counter delta = %v, want 1", got)
	}

	clock.Advance(30 * time.Second)
	if res, err := s.Refresh(false); err != nil || res == nil {
		t.Errorf("expected refresh after interval, got res=%v err=%v", res, err)
	}
}

func TestRefresh_ForceBypassesThrottle(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", "up 1\n")
	s, _ := newTestScanner(t, Config{Dir: dir})

	if _, err := s.Refresh(false); err != nil {
		t.Fatal(err)
	}
	writeFixture(t, dir, "b.prom", "down 0\n")

	res, err := s.Refresh(true)
	if err != nil || res == nil {
		t.Fatalf("forced refresh: res=%v err=%v", res, err)
	}
	if _, ok := res.Catalog["down"]; !ok {
		t.Error("forced refresh did not pick up new file")
	}
}

func TestRefresh_MergesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", "# HELP temp_c first\n# TYPE temp_c gauge\ntemp_c 5\n")
	writeFixture(t, dir, "b.prom", "# HELP temp_c second\ntemp_c 15\ntemp_c 10\n")
	s, _ := newTestScanner(t, Config{Dir: dir})

	res, err := s.Refresh(true)
	if err != nil {
		t.Fatal(err)
	}
	m := res.Catalog["temp_c"]
	if len(m.Samples) != 3 {
		t.Fatalf("expected 3 merged samples, got %d", len(m.Samples))
	}
	if m.Help != "second" {
		t.Errorf("help = %q, want last file to win", m.Help)
	}
	if m.Type != "gauge" {
		t.Errorf("type = %q, want gauge", m.Type)
	}
	if m.Stats.Min != 5 || m.Stats.Max != 15 || m.Stats.Mean != 10 {
		t.Errorf("stats not recomputed after merge: %+v", m.Stats)
	}
}

func TestRefresh_SelectsBySuffixAndPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", "a 1\n")
	writeFixture(t, dir, "b.txt", "b 1\n")
	writeFixture(t, dir, "skip.prom", "skip 1\n")
	writeFixture(t, dir, "nested/c.prom", "c 1\n")

	s, _ := newTestScanner(t, Config{Dir: dir, Exclude: []string{"skip.*"}})
	res, err := s.Refresh(true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Catalog["a"]; !ok {
		t.Error("a.prom should be selected")
	}
	for _, name := range []string{"b", "skip", "c"} {
		if _, ok := res.Catalog[name]; ok {
			t.Errorf("%s should not be selected", name)
		}
	}
}

func TestRefresh_Recursive(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", "a 1\n")
	writeFixture(t, dir, "nested/deeper/c.prom", "c 1\n")
	writeFixture(t, dir, "vendor/v.prom", "v 1\n")

	s, _ := newTestScanner(t, Config{Dir: dir, Recursive: true, Exclude: []string{"vendor/**"}})
	res, err := s.Refresh(true)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Catalog["c"]; !ok {
		t.Error("nested fixture should be selected")
	}
	if _, ok := res.Catalog["v"]; ok {
		t.Error("excluded subtree should be skipped")
	}
	if res.Files != 2 {
		t.Errorf("files = %d, want 2", res.Files)
	}
}

func TestRefresh_MissingDirectory(t *testing.T) {
	s, clock := newTestScanner(t, Config{Dir: filepath.Join(t.TempDir(), "missing")})

	if _, err := s.Refresh(false); err == nil {
		t.Fatal("expected listing error")
	}
	// A failed attempt still starts a new throttle window.
	clock.Advance(time.Second)
	if res, err := s.Refresh(false); res != nil || err != nil {
		t.Errorf("expected throttled no-op after failure, got res=%v err=%v", res, err)
	}
}

func TestRefresh_UnreadableFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "good.prom", "good 1\n")
	// A dangling symlink is listed but cannot be read.
	if err := os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(dir, "bad.prom")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s, _ := newTestScanner(t, Config{Dir: dir})
	res, err := s.Refresh(true)
	if err != nil {
		t.Fatalf("per-file errors must not fail the scan: %v", err)
	}
	if _, ok := res.Catalog["good"]; !ok {
		t.Error("readable file should still be parsed")
	}
	if res.FileErrors != 1 || res.Files != 1 {
		t.Errorf("files=%d file_errors=%d, want 1/1", res.Files, res.FileErrors)
	}
}

func TestRefresh_EmptyDirectory(t *testing.T) {
	s, _ := newTestScanner(t, Config{Dir: t.TempDir()})
	res, err := s.Refresh(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Catalog) != 0 {
		t.Errorf("expected empty catalog, got %d metrics", len(res.Catalog))
	}
}

func TestRefresh_CountsDistinctSeries(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", `x{a="1",b="2"} 1
x{b="2",a="1"} 2
x{a="2"} 3
y 4
`)
	for _, mode := range []string{"exact", "bloom"} {
		t.Run(mode, func(t *testing.T) {
			cfg := Config{Dir: dir}
			cfg.Cardinality.Mode = cardinality.ParseMode(mode)
			s, _ := newTestScanner(t, cfg)
			res, err := s.Refresh(true)
			if err != nil {
				t.Fatal(err)
			}
			if res.Series != 3 {
				t.Errorf("series = %d, want 3", res.Series)
			}
		})
	}
}

func TestRefresh_PublishesCatalogGauges(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.prom", "x{a=\"1\"} 1\nx{a=\"2\"} 2\ny 3\n")
	s, _ := newTestScanner(t, Config{Dir: dir})
	if _, err := s.Refresh(true); err != nil {
		t.Fatal(err)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]float64{
		"mock_exporter_catalog_metrics": 2,
		"mock_exporter_catalog_series":  3,
	}
	found := 0
	for _, mf := range families {
		v, ok := want[mf.GetName()]
		if !ok {
			continue
		}
		found++
		if mf.GetType() != dto.MetricType_GAUGE {
			t.Errorf("%s type = %s, want GAUGE", mf.GetName(), mf.GetType())
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != v {
			t.Errorf("%s = %v, want %v", mf.GetName(), got, v)
		}
	}
	if found != len(want) {
		t.Errorf("found %d of %d catalog gauges", found, len(want))
	}
}
