package prw

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from prometheus/prompb remote.proto and types.proto.
const (
	fieldWriteRequestTimeseries = 1
	fieldWriteRequestMetadata   = 3

	fieldTimeSeriesLabels  = 1
	fieldTimeSeriesSamples = 2

	fieldLabelName  = 1
	fieldLabelValue = 2

	fieldSampleValue     = 1
	fieldSampleTimestamp = 2

	fieldMetadataType             = 1
	fieldMetadataMetricFamilyName = 2
	fieldMetadataHelp             = 4
	fieldMetadataUnit             = 5
)

var errTruncated = errors.New("prw: truncated message")

// Marshal encodes the request in protobuf wire format.
func (req *WriteRequest) Marshal() []byte {
	var buf []byte
	for i := range req.Timeseries {
		buf = protowire.AppendTag(buf, fieldWriteRequestTimeseries, protowire.BytesType)
		buf = protowire.AppendBytes(buf, req.Timeseries[i].marshal())
	}
	for i := range req.Metadata {
		buf = protowire.AppendTag(buf, fieldWriteRequestMetadata, protowire.BytesType)
		buf = protowire.AppendBytes(buf, req.Metadata[i].marshal())
	}
	return buf
}

func (ts *TimeSeries) marshal() []byte {
	var buf []byte
	for _, l := range ts.Labels {
		var lb []byte
		lb = appendString(lb, fieldLabelName, l.Name)
		lb = appendString(lb, fieldLabelValue, l.Value)
		buf = protowire.AppendTag(buf, fieldTimeSeriesLabels, protowire.BytesType)
		buf = protowire.AppendBytes(buf, lb)
	}
	for _, s := range ts.Samples {
		var sb []byte
		sb = protowire.AppendTag(sb, fieldSampleValue, protowire.Fixed64Type)
		sb = protowire.AppendFixed64(sb, math.Float64bits(s.Value))
		sb = protowire.AppendTag(sb, fieldSampleTimestamp, protowire.VarintType)
		sb = protowire.AppendVarint(sb, uint64(s.Timestamp))
		buf = protowire.AppendTag(buf, fieldTimeSeriesSamples, protowire.BytesType)
		buf = protowire.AppendBytes(buf, sb)
	}
	return buf
}

func (md *MetricMetadata) marshal() []byte {
	var buf []byte
	if md.Type != MetricTypeUnknown {
		buf = protowire.AppendTag(buf, fieldMetadataType, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(md.Type))
	}
	buf = appendString(buf, fieldMetadataMetricFamilyName, md.MetricFamilyName)
	buf = appendString(buf, fieldMetadataHelp, md.Help)
	buf = appendString(buf, fieldMetadataUnit, md.Unit)
	return buf
}

// appendString omits empty strings, matching proto3 defaults.
func appendString(buf []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return buf
	}
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendString(buf, s)
}

// Unmarshal decodes a request. Unknown fields are skipped.
func (req *WriteRequest) Unmarshal(data []byte) error {
	req.Timeseries = nil
	req.Metadata = nil
	return walk(data, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		switch {
		case num == fieldWriteRequestTimeseries && typ == protowire.BytesType:
			var ts TimeSeries
			if err := ts.unmarshal(v); err != nil {
				return fmt.Errorf("timeseries: %w", err)
			}
			req.Timeseries = append(req.Timeseries, ts)
		case num == fieldWriteRequestMetadata && typ == protowire.BytesType:
			var md MetricMetadata
			if err := md.unmarshal(v); err != nil {
				return fmt.Errorf("metadata: %w", err)
			}
			req.Metadata = append(req.Metadata, md)
		}
		return nil
	})
}

func (ts *TimeSeries) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
		if typ != protowire.BytesType {
			return nil
		}
		switch num {
		case fieldTimeSeriesLabels:
			var l Label
			err := walk(v, func(n protowire.Number, t protowire.Type, b []byte, _ uint64) error {
				if t != protowire.BytesType {
					return nil
				}
				switch n {
				case fieldLabelName:
					l.Name = string(b)
				case fieldLabelValue:
					l.Value = string(b)
				}
				return nil
			})
			if err != nil {
				return err
			}
			ts.Labels = append(ts.Labels, l)
		case fieldTimeSeriesSamples:
			var s Sample
			err := walk(v, func(n protowire.Number, t protowire.Type, _ []byte, x uint64) error {
				switch {
				case n == fieldSampleValue && t == protowire.Fixed64Type:
					s.Value = math.Float64frombits(x)
				case n == fieldSampleTimestamp && t == protowire.VarintType:
					s.Timestamp = int64(x)
				}
				return nil
			})
			if err != nil {
				return err
			}
			ts.Samples = append(ts.Samples, s)
		}
		return nil
	})
}

func (md *MetricMetadata) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == fieldMetadataType && typ == protowire.VarintType:
			md.Type = MetricType(x)
		case num == fieldMetadataMetricFamilyName && typ == protowire.BytesType:
			md.MetricFamilyName = string(v)
		case num == fieldMetadataHelp && typ == protowire.BytesType:
			md.Help = string(v)
		case num == fieldMetadataUnit && typ == protowire.BytesType:
			md.Unit = string(v)
		}
		return nil
	})
}

// walk calls fn for every field in data. Length-delimited payloads arrive
// in v; varint and fixed values arrive in x.
func walk(data []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(data)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(data)
		case protowire.Fixed32Type:
			var x32 uint32
			x32, n = protowire.ConsumeFixed32(data)
			x = uint64(x32)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			if len(data) == 0 {
				return errTruncated
			}
			return protowire.ParseError(n)
		}
		data = data[n:]

		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return nil
}
