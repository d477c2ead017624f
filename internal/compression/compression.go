// Package compression encodes scrape responses and OTLP payloads and picks an
// encoding from an HTTP Accept-Encoding header.
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type represents a compression algorithm.
type Type string

const (
	// TypeNone means no compression.
	TypeNone Type = "none"
	// TypeGzip uses gzip compression.
	TypeGzip Type = "gzip"
	// TypeZstd uses zstd compression.
	TypeZstd Type = "zstd"
	// TypeDeflate uses raw deflate compression.
	TypeDeflate Type = "deflate"
)

// Level represents compression level settings.
type Level int

const (
	// LevelDefault uses the default compression level for the algorithm.
	LevelDefault Level = 0
	// LevelFastest uses the fastest compression (lowest ratio).
	LevelFastest Level = 1
	// LevelBest uses the best compression (highest ratio).
	LevelBest Level = 9
)

// Config holds compression configuration.
type Config struct {
	Type  Type
	Level Level
}

// ParseType parses a compression type string.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "identity":
		return TypeNone, nil
	case "gzip", "x-gzip":
		return TypeGzip, nil
	case "zstd":
		return TypeZstd, nil
	case "deflate":
		return TypeDeflate, nil
	default:
		return TypeNone, fmt.Errorf("unsupported compression type: %s", s)
	}
}

// ContentEncoding returns the HTTP Content-Encoding header value for the type.
func (t Type) ContentEncoding() string {
	switch t {
	case TypeGzip, TypeZstd, TypeDeflate:
		return string(t)
	default:
		return ""
	}
}

// Negotiate picks an encoding from an Accept-Encoding header, restricted to
// allowed and honouring q-values. Ties keep the order of allowed. An empty
// header, "identity" or nothing acceptable yields TypeNone.
func Negotiate(acceptEncoding string, allowed []Type) Type {
	if acceptEncoding == "" || len(allowed) == 0 {
		return TypeNone
	}

	q := make(map[Type]float64)
	wildcard := -1.0
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		weight := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			weight = f
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "*" {
			wildcard = weight
			continue
		}
		t, err := ParseType(name)
		if err != nil || t == TypeNone {
			continue
		}
		q[t] = weight
	}

	type candidate struct {
		t     Type
		q     float64
		order int
	}
	var cands []candidate
	for i, t := range allowed {
		w, ok := q[t]
		if !ok {
			w = wildcard
		}
		if w > 0 {
			cands = append(cands, candidate{t, w, i})
		}
	}
	if len(cands) == 0 {
		return TypeNone
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].q > cands[j].q })
	return cands[0].t
}

var (
	compressionPoolGets     atomic.Int64
	compressionPoolNews     atomic.Int64
	compressionBytesIn      atomic.Int64
	compressionBytesOut     atomic.Int64
	zstdEncoderPool         sync.Pool
	gzipWriterPool          sync.Pool
	zstdDecoder, zstdDecErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Compress compresses data using the configured type and level.
func Compress(data []byte, cfg Config) ([]byte, error) {
	if cfg.Type == TypeNone || cfg.Type == "" {
		return data, nil
	}

	var (
		out []byte
		err error
	)
	switch cfg.Type {
	case TypeGzip:
		out, err = compressGzip(data, cfg.Level)
	case TypeZstd:
		out, err = compressZstd(data, cfg.Level)
	case TypeDeflate:
		out, err = compressDeflate(data, cfg.Level)
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	compressionBytesIn.Add(int64(len(data)))
	compressionBytesOut.Add(int64(len(out)))
	return out, nil
}

// Decompress decompresses data of the given type.
func Decompress(data []byte, t Type) ([]byte, error) {
	switch t {
	case TypeNone, "":
		return data, nil
	case TypeGzip:
		gr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case TypeZstd:
		if zstdDecErr != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", zstdDecErr)
		}
		return zstdDecoder.DecodeAll(data, nil)
	case TypeDeflate:
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		return io.ReadAll(fr)
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

func compressGzip(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	if level != LevelDefault {
		gw, err := gzip.NewWriterLevel(&buf, int(level))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return finish(&buf, gw, data, "gzip")
	}

	compressionPoolGets.Add(1)
	gw, ok := gzipWriterPool.Get().(*gzip.Writer)
	if !ok {
		compressionPoolNews.Add(1)
		gw = gzip.NewWriter(&buf)
	} else {
		gw.Reset(&buf)
	}
	defer gzipWriterPool.Put(gw)
	return finish(&buf, gw, data, "gzip")
}

func compressZstd(data []byte, level Level) ([]byte, error) {
	if level != LevelDefault {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(int(level))))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	}

	compressionPoolGets.Add(1)
	enc, ok := zstdEncoderPool.Get().(*zstd.Encoder)
	if !ok {
		compressionPoolNews.Add(1)
		var err error
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func compressDeflate(data []byte, level Level) ([]byte, error) {
	flLevel := flate.DefaultCompression
	if level != LevelDefault {
		flLevel = int(level)
	}
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}
	return finish(&buf, fw, data, "deflate")
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte, name string) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write %s data: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s writer: %w", name, err)
	}
	return buf.Bytes(), nil
}
