package prw

import (
	"bytes"
	"reflect"
	"testing"
	"time"

	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/generator"
)

func testSeries() []generator.Series {
	return []generator.Series{
		{Name: "http_requests_total", Help: "Total requests", Type: "counter", Kind: catalog.KindCounter,
			Labels: catalog.Labels{"method": "GET", "code": "200"}, Key: "code=200,method=GET", Value: 21.5},
		{Name: "http_requests_total", Help: "Total requests", Type: "counter", Kind: catalog.KindCounter,
			Labels: catalog.Labels{"method": "POST", "code": "200"}, Key: "code=200,method=POST", Value: 3},
		{Name: "temp_c", Type: "gauge", Kind: catalog.KindGauge, Labels: catalog.Labels{"instance": "fixture"}, Value: 9.25},
	}
}

func TestFromSeries(t *testing.T) {
	now := time.UnixMilli(1712345678000)
	req := FromSeries(testSeries(), map[string]string{"instance": "mock", "job": "mock-exporter"}, now)

	if len(req.Timeseries) != 3 {
		t.Fatalf("timeseries = %d, want 3", len(req.Timeseries))
	}
	first := req.Timeseries[0]
	want := []Label{
		{"__name__", "http_requests_total"},
		{"code", "200"},
		{"instance", "mock"},
		{"job", "mock-exporter"},
		{"method", "GET"},
	}
	if !reflect.DeepEqual(first.Labels, want) {
		t.Errorf("labels = %v\nwant %v", first.Labels, want)
	}
	if first.Samples[0] != (Sample{Value: 21.5, Timestamp: 1712345678000}) {
		t.Errorf("sample = %+v", first.Samples[0])
	}

	// series labels win over external labels
	if got := labelValue(req.Timeseries[2], "instance"); got != "fixture" {
		t.Errorf("instance = %q, want fixture", got)
	}

	if len(req.Metadata) != 2 {
		t.Fatalf("metadata = %d, want one per metric", len(req.Metadata))
	}
	if req.Metadata[0].Type != MetricTypeCounter || req.Metadata[0].Help != "Total requests" {
		t.Errorf("metadata[0] = %+v", req.Metadata[0])
	}
	if req.Metadata[1].MetricFamilyName != "temp_c" || req.Metadata[1].Type != MetricTypeGauge {
		t.Errorf("metadata[1] = %+v", req.Metadata[1])
	}
	if req.TotalSamples() != 3 {
		t.Errorf("TotalSamples = %d", req.TotalSamples())
	}
}

func labelValue(ts TimeSeries, name string) string {
	for _, l := range ts.Labels {
		if l.Name == name {
			return l.Value
		}
	}
	return ""
}

func TestMarshal_WireFormat(t *testing.T) {
	req := &WriteRequest{Timeseries: []TimeSeries{{
		Labels:  []Label{{Name: "a", Value: "b"}},
		Samples: []Sample{{Value: 1, Timestamp: 2}},
	}}}
	got := req.Marshal()
	want := []byte{
		0x0a, 0x15, // timeseries, 21 bytes
		0x0a, 0x06, 0x0a, 0x01, 'a', 0x12, 0x01, 'b', // label
		0x12, 0x0b, // sample, 11 bytes
		0x09, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f, // value 1.0
		0x10, 0x02, // timestamp 2
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal() = % x\nwant        % x", got, want)
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	req := FromSeries(testSeries(), map[string]string{"job": "mock"}, time.UnixMilli(42))
	var decoded WriteRequest
	if err := decoded.Unmarshal(req.Marshal()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(&decoded, req) {
		t.Errorf("decoded request differs\n got %+v\nwant %+v", decoded, *req)
	}
	if decoded.Timeseries[1].MetricName() != "http_requests_total" {
		t.Errorf("MetricName = %q", decoded.Timeseries[1].MetricName())
	}
}

func TestUnmarshal_Truncated(t *testing.T) {
	data := FromSeries(testSeries(), nil, time.Now()).Marshal()
	var req WriteRequest
	if err := req.Unmarshal(data[:len(data)-3]); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestMetricTypeString(t *testing.T) {
	for typ, want := range map[MetricType]string{
		MetricTypeCounter: "counter",
		MetricTypeGauge:   "gauge",
		MetricTypeUnknown: "unknown",
	} {
		if typ.String() != want {
			t.Errorf("%d.String() = %q, want %q", typ, typ.String(), want)
		}
	}
}
