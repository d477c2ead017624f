package textformat

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/szibis/mock-exporter/internal/catalog"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		kind   LineKind
		metric string
		value  float64
		labels catalog.Labels
	}{
		{"blank", "   ", LineBlank, "", 0, nil},
		{"comment", "# just a comment", LineComment, "", 0, nil},
		{"help without text", "# HELP lonely", LineComment, "", 0, nil},
		{"plain sample", "up 1", LineSample, "up", 1, nil},
		{"colon name", "job:rate5m 0.25", LineSample, "job:rate5m", 0.25, nil},
		{"labels", `http_requests_total{method="GET",code="200"} 10`, LineSample, "http_requests_total", 10,
			catalog.Labels{"method": "GET", "code": "200"}},
		{"timestamp discarded", `x{a="b"} 3.5 1712345678000`, LineSample, "x", 3.5, catalog.Labels{"a": "b"}},
		{"negative exponent", "x -1.5e-3", LineSample, "x", -1.5e-3, nil},
		{"plus sign", "x +7", LineSample, "x", 7, nil},
		{"leading dot", "x .5", LineSample, "x", 0.5, nil},
		{"value with comma inside label", `x{path="/a,b"} 2`, LineSample, "x", 2, catalog.Labels{"path": "/a,b"}},
		{"brace inside label", `x{tpl="{id}"} 2`, LineSample, "x", 2, catalog.Labels{"tpl": "{id}"}},
		{"empty label block", `x{} 4`, LineSample, "x", 4, nil},
		{"malformed", "not a valid metric line ###", LineMalformed, "", 0, nil},
		{"bad name", "9metric 1", LineMalformed, "", 0, nil},
		{"no value", "metric_only", LineMalformed, "", 0, nil},
		{"NaN unsupported", "x NaN", LineMalformed, "", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.in)
			if got.Kind != tt.kind {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.kind)
			}
			if tt.kind != LineSample {
				return
			}
			if got.Name != tt.metric {
				t.Errorf("name = %q, want %q", got.Name, tt.metric)
			}
			if got.Sample.Value != tt.value {
				t.Errorf("value = %v, want %v", got.Sample.Value, tt.value)
			}
			if got.Sample.Labels.Key() != tt.labels.Key() {
				t.Errorf("labels = %q, want %q", got.Sample.Labels.Key(), tt.labels.Key())
			}
		})
	}
}

func TestParseLine_Metadata(t *testing.T) {
	help := ParseLine("# HELP http_requests_total Total HTTP requests served.")
	if help.Kind != LineHelp || help.Name != "http_requests_total" || help.Text != "Total HTTP requests served." {
		t.Errorf("unexpected help line %+v", help)
	}

	typ := ParseLine("# TYPE http_requests_total counter")
	if typ.Kind != LineType || typ.Name != "http_requests_total" || typ.Text != "counter" {
		t.Errorf("unexpected type line %+v", typ)
	}
}

func TestParse_Scenario(t *testing.T) {
	content := `# HELP http_requests_total Total requests
# TYPE http_requests_total counter
http_requests_total{method="GET"} 10
http_requests_total{method="GET"} 20
`
	res := Parse(content)

	m, ok := res.Metrics["http_requests_total"]
	if !ok {
		t.Fatal("metric not parsed")
	}
	if !m.IsCounter() {
		t.Error("expected counter kind")
	}
	if m.Help != "Total requests" {
		t.Errorf("help = %q", m.Help)
	}
	if m.Stats.Mean != 15 || m.Stats.Min != 10 || m.Stats.Max != 20 {
		t.Errorf("unexpected stats %+v", m.Stats)
	}
	if res.Samples != 2 {
		t.Errorf("samples = %d, want 2", res.Samples)
	}
}

func TestParse_MalformedLineDoesNotStopParsing(t *testing.T) {
	content := `# TYPE temp_c gauge
temp_c 5
not a valid metric line ###
temp_c 10
temp_c 15
`
	res := Parse(content)

	m := res.Metrics["temp_c"]
	if m == nil {
		t.Fatal("metric not parsed")
	}
	if len(m.Samples) != 3 {
		t.Errorf("expected 3 samples, got %d", len(m.Samples))
	}
	if res.Malformed != 1 {
		t.Errorf("malformed = %d, want 1", res.Malformed)
	}
}

func TestParse_MetadataOnlyMetric(t *testing.T) {
	res := Parse("# HELP orphan Declared but never sampled\n# TYPE orphan gauge\n")

	m := res.Metrics["orphan"]
	if m == nil {
		t.Fatal("expected definition for metadata-only metric")
	}
	if m.HasStats() {
		t.Error("metadata-only metric must not have stats")
	}
}

func TestParse_TypeOverwritten(t *testing.T) {
	res := Parse("# TYPE m gauge\n# TYPE m counter\nm 1\n")
	if !res.Metrics["m"].IsCounter() {
		t.Error("later TYPE line should overwrite earlier one")
	}
}

func TestRoundTrip_NameValueLabels(t *testing.T) {
	lines := []string{
		`http_requests_total{method="GET",code="200"} 10`,
		`temp_c 21.375`,
		`bytes_total{dir="rx"} 1.2345678901234567e+21`,
		`ratio -0.000123`,
		`x{b="2",a="1"} 3`,
	}
	for _, in := range lines {
		first := ParseLine(in)
		if first.Kind != LineSample {
			t.Fatalf("%q did not parse", in)
		}
		out := FormatSample(first.Name, first.Sample.Labels, first.Sample.Value)
		second := ParseLine(out)
		if second.Kind != LineSample {
			t.Fatalf("re-serialized %q did not parse", out)
		}
		if second.Name != first.Name {
			t.Errorf("name %q != %q", second.Name, first.Name)
		}
		if second.Sample.Value != first.Sample.Value {
			t.Errorf("value %v != %v", second.Sample.Value, first.Sample.Value)
		}
		if second.Sample.Labels.Key() != first.Sample.Labels.Key() {
			t.Errorf("labels %q != %q", second.Sample.Labels.Key(), first.Sample.Labels.Key())
		}
	}
}

func TestFormatSample(t *testing.T) {
	if got := FormatSample("up", nil, 1); got != "up 1" {
		t.Errorf("got %q", got)
	}
	got := FormatSample("x", catalog.Labels{"b": "2", "a": "1"}, 0.5)
	if got != `x{a="1",b="2"} 0.5` {
		t.Errorf("got %q", got)
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.prom"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.prom")
	if err := os.WriteFile(path, []byte("node_load1 0.5\nnode_load1 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(res.Metrics["node_load1"].Samples); got != 2 {
		t.Errorf("samples = %d, want 2", got)
	}
}
