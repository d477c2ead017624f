// Package server exposes the synthetic exposition and process probes over HTTP.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/szibis/mock-exporter/internal/auth"
	"github.com/szibis/mock-exporter/internal/compression"
	"github.com/szibis/mock-exporter/internal/health"
	"github.com/szibis/mock-exporter/internal/logging"
)

// ContentType is the exposition content type served on /metrics.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// Renderer produces one exposition per call.
type Renderer interface {
	Render() string
}

// Config holds HTTP server settings.
type Config struct {
	Addr string
	// MaxConnections caps concurrently accepted connections. Zero means no cap.
	MaxConnections    int
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// Compression lists the encodings offered to scrapers, in preference
	// order. Empty disables response compression.
	Compression []compression.Type
	// InternalMetrics serves the process's own metrics on /internal/metrics.
	InternalMetrics bool
	// TLS, when set, makes Serve terminate TLS.
	TLS *tls.Config
	// Auth guards /metrics and /internal/metrics. Probes stay open.
	Auth auth.ServerConfig
}

// Server is the scrape endpoint.
type Server struct {
	cfg      Config
	renderer Renderer
	health   *health.Checker
	srv      *http.Server
}

// New creates a server. Nothing listens until Serve is called.
func New(cfg Config, renderer Renderer, checker *health.Checker) *Server {
	s := &Server{cfg: cfg, renderer: renderer, health: checker}

	mux := http.NewServeMux()
	mux.Handle("/metrics", auth.HTTPMiddleware(cfg.Auth, http.HandlerFunc(s.handleMetrics)))
	mux.HandleFunc("/health", checker.TextHandler())
	mux.HandleFunc("/live", checker.LiveHandler())
	mux.HandleFunc("/ready", checker.ReadyHandler())
	if cfg.InternalMetrics {
		mux.Handle("/internal/metrics", auth.HTTPMiddleware(cfg.Auth, promhttp.Handler()))
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		TLSConfig:         cfg.TLS,
	}
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Listen opens the configured address.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	logging.Info("HTTP server listening", logging.F(
		"addr", ln.Addr().String(),
		"max_connections", s.cfg.MaxConnections,
		"tls", s.cfg.TLS != nil,
	))
	var err error
	if s.cfg.TLS != nil {
		err = s.srv.ServeTLS(ln, "", "")
	} else {
		err = s.srv.Serve(ln)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the process as draining and stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetShuttingDown()
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	body := []byte(s.renderer.Render())

	enc := compression.Negotiate(r.Header.Get("Accept-Encoding"), s.cfg.Compression)
	if enc != compression.TypeNone {
		compressed, err := compression.Compress(body, compression.Config{Type: enc})
		if err != nil {
			logging.Warn("response compression failed, sending identity", logging.F(
				"encoding", string(enc),
				"error", err.Error(),
			))
			enc = compression.TypeNone
		} else {
			body = compressed
		}
	}

	h := w.Header()
	h.Set("Content-Type", ContentType)
	if len(s.cfg.Compression) > 0 {
		h.Add("Vary", "Accept-Encoding")
	}
	if ce := enc.ContentEncoding(); ce != "" {
		h.Set("Content-Encoding", ce)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(body)
	}

	encLabel := string(enc)
	scrapesTotal.WithLabelValues(encLabel).Inc()
	scrapeBytes.WithLabelValues(encLabel).Observe(float64(len(body)))
	scrapeDuration.Observe(time.Since(start).Seconds())
}
