// Package exporter pushes synthetic series for pipelines that ingest instead
// of scraping: OTLP over gRPC or HTTP/protobuf, and Prometheus remote write.
package exporter

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	"golang.org/x/net/http2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"

	"github.com/szibis/mock-exporter/internal/auth"
	"github.com/szibis/mock-exporter/internal/compression"
	tlscfg "github.com/szibis/mock-exporter/internal/tls"
)

// Protocol represents the export protocol.
type Protocol string

const (
	// ProtocolGRPC uses OTLP gRPC protocol.
	ProtocolGRPC Protocol = "grpc"
	// ProtocolHTTP uses OTLP HTTP protocol with protobuf bodies.
	ProtocolHTTP Protocol = "http"
)

// ParseProtocol parses a protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grpc":
		return ProtocolGRPC, nil
	case "http", "http/protobuf":
		return ProtocolHTTP, nil
	default:
		return "", fmt.Errorf("unsupported protocol: %s", s)
	}
}

// Config holds the exporter configuration.
type Config struct {
	// Endpoint is host:port for gRPC, or a URL or host:port for HTTP.
	Endpoint string
	Protocol Protocol
	// Insecure disables TLS.
	Insecure bool
	// TLS is used unless Insecure is set.
	TLS      tlscfg.ClientConfig
	Auth     auth.ClientConfig
	Timeout  time.Duration
	// Headers are sent with every request (gRPC metadata for gRPC).
	Headers map[string]string
	// Compression applies to HTTP bodies; for gRPC only gzip is honoured.
	Compression compression.Config
}

// OTLPExporter exports metrics via OTLP.
type OTLPExporter struct {
	protocol    Protocol
	timeout     time.Duration
	headers     map[string]string
	compression compression.Config

	grpcConn   *grpc.ClientConn
	grpcClient colmetricspb.MetricsServiceClient
	grpcOpts   []grpc.CallOption

	httpClient   *http.Client
	httpEndpoint string
}

// New creates an exporter for cfg.Protocol. gRPC connections are lazy, so
// New does not contact the receiver.
func New(cfg Config) (*OTLPExporter, error) {
	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolGRPC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var tlsConfig *tls.Config
	if !cfg.Insecure {
		var err error
		if tlsConfig, err = tlscfg.NewClientConfig(cfg.TLS); err != nil {
			return nil, err
		}
	}

	switch cfg.Protocol {
	case ProtocolGRPC:
		return newGRPCExporter(cfg, tlsConfig)
	case ProtocolHTTP:
		return newHTTPExporter(cfg, tlsConfig), nil
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", cfg.Protocol)
	}
}

func newGRPCExporter(cfg Config, tlsConfig *tls.Config) (*OTLPExporter, error) {
	var opts []grpc.DialOption
	if tlsConfig == nil {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	}

	opts = append(opts, grpc.WithUnaryInterceptor(auth.GRPCClientInterceptor(cfg.Auth)))

	conn, err := grpc.NewClient(cfg.Endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc client for %s: %w", cfg.Endpoint, err)
	}

	var callOpts []grpc.CallOption
	if cfg.Compression.Type == compression.TypeGzip {
		callOpts = append(callOpts, grpc.UseCompressor(gzip.Name))
	}

	return &OTLPExporter{
		protocol:   ProtocolGRPC,
		timeout:    cfg.Timeout,
		headers:    cfg.Headers,
		grpcConn:   conn,
		grpcClient: colmetricspb.NewMetricsServiceClient(conn),
		grpcOpts:   callOpts,
	}, nil
}

func newHTTPExporter(cfg Config, tlsConfig *tls.Config) *OTLPExporter {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
		if h2, err := http2.ConfigureTransports(transport); err == nil {
			h2.ReadIdleTimeout = 30 * time.Second
			h2.PingTimeout = 15 * time.Second
		}
	}

	return &OTLPExporter{
		protocol:     ProtocolHTTP,
		timeout:      cfg.Timeout,
		headers:      cfg.Headers,
		compression:  cfg.Compression,
		httpClient:   &http.Client{Transport: auth.HTTPTransport(cfg.Auth, transport), Timeout: cfg.Timeout},
		httpEndpoint: httpEndpoint(cfg.Endpoint, cfg.Insecure),
	}
}

// httpEndpoint adds a scheme and the /v1/metrics path when missing.
func httpEndpoint(endpoint string, insecure bool) string {
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		scheme := "https"
		if insecure {
			scheme = "http"
		}
		endpoint = scheme + "://" + endpoint
	}
	_, rest, _ := strings.Cut(endpoint, "://")
	if !strings.Contains(rest, "/") {
		endpoint += "/v1/metrics"
	}
	return endpoint
}

// Export sends req to the receiver. Errors are *ExportError.
func (e *OTLPExporter) Export(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	otlpExportRequestsTotal.WithLabelValues(string(e.protocol)).Inc()
	var err error
	switch e.protocol {
	case ProtocolGRPC:
		err = e.exportGRPC(ctx, req)
	default:
		err = e.exportHTTP(ctx, req)
	}
	if err != nil {
		return err
	}
	otlpExportDatapointsTotal.Add(float64(countDatapoints(req)))
	return nil
}

func (e *OTLPExporter) exportGRPC(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error {
	for k, v := range e.headers {
		ctx = metadata.AppendToOutgoingContext(ctx, k, v)
	}
	if _, err := e.grpcClient.Export(ctx, req, e.grpcOpts...); err != nil {
		return newExportError(err, classifyGRPCError(err), 0)
	}
	otlpExportBytesTotal.WithLabelValues("grpc").Add(float64(proto.Size(req)))
	return nil
}

func (e *OTLPExporter) exportHTTP(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) error {
	body, err := proto.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	label := "none"
	if e.compression.Type != compression.TypeNone && e.compression.Type != "" {
		body, err = compression.Compress(body, e.compression)
		if err != nil {
			return fmt.Errorf("failed to compress request: %w", err)
		}
		label = string(e.compression.Type)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.httpEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	if enc := e.compression.Type.ContentEncoding(); enc != "" {
		httpReq.Header.Set("Content-Encoding", enc)
	}
	for k, v := range e.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return newExportError(fmt.Errorf("failed to send request: %w", err), classifyError(err), 0)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newExportError(fmt.Errorf("unexpected status code: %d", resp.StatusCode),
			classifyHTTPStatusCode(resp.StatusCode), resp.StatusCode)
	}

	otlpExportBytesTotal.WithLabelValues(label).Add(float64(len(body)))
	return nil
}

// Name implements Sink.
func (e *OTLPExporter) Name() string {
	return "otlp"
}

// Push converts b to an OTLP request and exports it.
func (e *OTLPExporter) Push(ctx context.Context, b Batch) error {
	return e.Export(ctx, ToRequest(b.Series, b.Resource, b.Start, b.Now))
}

// Close releases the connection.
func (e *OTLPExporter) Close() error {
	if e.grpcConn != nil {
		return e.grpcConn.Close()
	}
	if e.httpClient != nil {
		e.httpClient.CloseIdleConnections()
	}
	return nil
}

func countDatapoints(req *colmetricspb.ExportMetricsServiceRequest) int {
	n := 0
	for _, rm := range req.ResourceMetrics {
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch data := m.Data.(type) {
				case *metricspb.Metric_Gauge:
					n += len(data.Gauge.GetDataPoints())
				case *metricspb.Metric_Sum:
					n += len(data.Sum.GetDataPoints())
				}
			}
		}
	}
	return n
}
