package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/snappy"

	"github.com/szibis/mock-exporter/internal/auth"
	"github.com/szibis/mock-exporter/internal/prw"
	tlscfg "github.com/szibis/mock-exporter/internal/tls"
)

const remoteWriteVersion = "0.1.0"

// RemoteWriteConfig holds Prometheus remote write settings.
type RemoteWriteConfig struct {
	// URL is the full receiver URL, e.g. http://prometheus:9090/api/v1/write.
	URL     string
	Timeout time.Duration
	Headers map[string]string
	// ExternalLabels are added to every series that does not carry them.
	ExternalLabels map[string]string
	TLS            tlscfg.ClientConfig
	Auth           auth.ClientConfig
}

// RemoteWriteExporter pushes batches with the remote write 1.0 protocol.
type RemoteWriteExporter struct {
	url      string
	timeout  time.Duration
	headers  map[string]string
	external map[string]string
	client   *http.Client
}

// NewRemoteWrite creates a remote write sink. TLS settings apply to https
// URLs only.
func NewRemoteWrite(cfg RemoteWriteConfig) (*RemoteWriteExporter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("remote write: URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	tlsConfig, err := tlscfg.NewClientConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &RemoteWriteExporter{
		url:      cfg.URL,
		timeout:  cfg.Timeout,
		headers:  cfg.Headers,
		external: cfg.ExternalLabels,
		client:   &http.Client{Transport: auth.HTTPTransport(cfg.Auth, transport), Timeout: cfg.Timeout},
	}, nil
}

// Name implements Sink.
func (e *RemoteWriteExporter) Name() string {
	return "remote_write"
}

// Push sends one sample per series stamped with b.Now.
func (e *RemoteWriteExporter) Push(ctx context.Context, b Batch) error {
	return e.Send(ctx, prw.FromSeries(b.Series, e.external, b.Now))
}

// Send encodes req, compresses it with snappy block format and posts it.
// Errors are *ExportError.
func (e *RemoteWriteExporter) Send(ctx context.Context, req *prw.WriteRequest) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body := snappy.Encode(nil, req.Marshal())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", remoteWriteVersion)
	httpReq.Header.Set("User-Agent", "mock-exporter")
	for k, v := range e.headers {
		httpReq.Header.Set(k, v)
	}

	remoteWriteRequestsTotal.Inc()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return newExportError(fmt.Errorf("failed to send request: %w", err), classifyError(err), 0)
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newExportError(fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, bytes.TrimSpace(msg)),
			classifyHTTPStatusCode(resp.StatusCode), resp.StatusCode)
	}

	remoteWriteBytesTotal.Add(float64(len(body)))
	remoteWriteSamplesTotal.Add(float64(req.TotalSamples()))
	return nil
}

// Close releases idle connections.
func (e *RemoteWriteExporter) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
