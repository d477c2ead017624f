package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/szibis/mock-exporter/internal/compression"
	"github.com/szibis/mock-exporter/internal/exporter"
)

var labelNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if c.MetricsDir == "" {
		add("metrics-dir: must not be empty")
	}
	if c.ScanInterval < 0 {
		add("scan-interval: must not be negative, got %s", c.ScanInterval)
	}
	if len(c.Include) == 0 {
		add("include: at least one pattern is required")
	}
	for _, p := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			add("include/exclude: invalid pattern %q", p)
		}
	}
	if c.ParseConcurrency < 1 {
		add("parse-concurrency: must be at least 1, got %d", c.ParseConcurrency)
	}
	switch c.CardinalityMode {
	case "exact", "bloom":
	default:
		add("cardinality-mode: must be exact or bloom, got %q", c.CardinalityMode)
	}
	if c.Watch && c.WatchDebounce <= 0 {
		add("watch-debounce: must be positive when watch is enabled")
	}

	if c.ListenAddr == "" {
		add("listen-addr: must not be empty")
	}
	if c.MaxConnections < 0 {
		add("max-connections: must not be negative, got %d", c.MaxConnections)
	}
	for _, t := range []struct {
		flag string
		d    time.Duration
	}{
		{"read-header-timeout", c.ReadHeaderTimeout},
		{"read-timeout", c.ReadTimeout},
		{"write-timeout", c.WriteTimeout},
		{"idle-timeout", c.IdleTimeout},
		{"shutdown-timeout", c.ShutdownTimeout},
	} {
		if t.d < 0 {
			add("%s: must not be negative, got %s", t.flag, t.d)
		}
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		add("tls-cert-file/tls-key-file: both must be set together")
	}
	if c.TLSClientCAFile != "" && c.TLSCertFile == "" {
		add("tls-client-ca-file: requires tls-cert-file")
	}
	if c.AuthBearerToken != "" && c.AuthBasicUsername != "" {
		add("auth-bearer-token/auth-basic-username: choose one scrape authentication method")
	}
	if c.AuthBasicPassword != "" && c.AuthBasicUsername == "" {
		add("auth-basic-password: requires auth-basic-username")
	}
	for _, enc := range c.ResponseCompression {
		if _, err := compression.ParseType(enc); err != nil {
			add("response-compression: %v", err)
		}
	}

	if c.PushEnabled() {
		if _, err := exporter.ParseProtocol(c.PushProtocol); err != nil {
			add("push-protocol: %v", err)
		}
		if c.PushInterval <= 0 {
			add("push-interval: must be positive, got %s", c.PushInterval)
		}
		if c.PushTimeout <= 0 {
			add("push-timeout: must be positive, got %s", c.PushTimeout)
		}
		if _, err := compression.ParseType(c.PushCompression); err != nil {
			add("push-compression: %v", err)
		}
		if (c.PushTLSCertFile == "") != (c.PushTLSKeyFile == "") {
			add("push-tls-cert-file/push-tls-key-file: both must be set together")
		}
	}

	if c.RemoteWriteEnabled() {
		if u, err := url.Parse(c.RemoteWriteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("remote-write-url: must be an http(s) URL, got %q", c.RemoteWriteURL)
		}
		if c.RemoteWriteInterval <= 0 {
			add("remote-write-interval: must be positive, got %s", c.RemoteWriteInterval)
		}
		for name := range c.RemoteWriteExternalLabels {
			if !labelNameRe.MatchString(name) {
				add("remote-write-external-labels: invalid label name %q", name)
			}
		}
	}

	if c.TelemetryEndpoint != "" {
		switch c.TelemetryProtocol {
		case "grpc", "http":
		default:
			add("telemetry-protocol: must be grpc or http, got %q", c.TelemetryProtocol)
		}
		switch c.TelemetryCompression {
		case "", "gzip":
		default:
			add("telemetry-compression: must be gzip or empty, got %q", c.TelemetryCompression)
		}
		if c.TelemetryPushInterval <= 0 {
			add("telemetry-push-interval: must be positive, got %s", c.TelemetryPushInterval)
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log-level: must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.MemoryLimitRatio < 0 || c.MemoryLimitRatio > 1 {
		add("memory-limit-ratio: must be between 0.0 and 1.0, got %v", c.MemoryLimitRatio)
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
