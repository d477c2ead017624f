// Package config loads mock-exporter settings from defaults, an optional YAML
// file, environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/szibis/mock-exporter/internal/auth"
	"github.com/szibis/mock-exporter/internal/cardinality"
	"github.com/szibis/mock-exporter/internal/compression"
	"github.com/szibis/mock-exporter/internal/engine"
	"github.com/szibis/mock-exporter/internal/exporter"
	"github.com/szibis/mock-exporter/internal/scanner"
	"github.com/szibis/mock-exporter/internal/server"
	"github.com/szibis/mock-exporter/internal/telemetry"
	tlscfg "github.com/szibis/mock-exporter/internal/tls"
	"github.com/szibis/mock-exporter/internal/watcher"
)

// version is set at build time via ldflags
var version = "dev"

// Version returns the build version.
func Version() string {
	return version
}

// Config holds the application configuration.
type Config struct {
	// Fixture corpus
	MetricsDir       string
	ScanInterval     time.Duration
	Include          []string
	Exclude          []string
	Recursive        bool
	ParseConcurrency int
	CardinalityMode  string
	Watch            bool
	WatchDebounce    time.Duration

	// Generator
	Seed uint64

	// HTTP server
	ListenAddr          string
	MaxConnections      int
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	ShutdownTimeout     time.Duration
	ResponseCompression []string
	InternalMetrics     bool
	TLSCertFile         string
	TLSKeyFile          string
	TLSClientCAFile     string
	AuthBearerToken     string
	AuthBasicUsername   string
	AuthBasicPassword   string

	// OTLP push of synthetic series
	PushEndpoint    string
	PushProtocol    string
	PushInsecure    bool
	PushInterval    time.Duration
	PushTimeout     time.Duration
	PushCompression string
	PushHeaders     map[string]string

	PushTLSCAFile     string
	PushTLSCertFile   string
	PushTLSKeyFile    string
	PushTLSServerName string
	PushTLSSkipVerify bool

	PushBearerToken   string
	PushBasicUsername string
	PushBasicPassword string

	// Prometheus remote write of synthetic series
	RemoteWriteURL            string
	RemoteWriteInterval       time.Duration
	RemoteWriteTimeout        time.Duration
	RemoteWriteHeaders        map[string]string
	RemoteWriteExternalLabels map[string]string
	RemoteWriteBearerToken    string
	RemoteWriteTLSCAFile      string
	RemoteWriteTLSSkipVerify  bool

	// OTLP self-telemetry
	TelemetryEndpoint     string
	TelemetryProtocol     string
	TelemetryInsecure     bool
	TelemetryPushInterval time.Duration
	TelemetryCompression  string
	TelemetryHeaders      map[string]string

	// Process
	LogLevel         string
	MemoryLimitRatio float64

	ShowHelp    bool
	ShowVersion bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetricsDir:       "/metrics",
		ScanInterval:     scanner.DefaultInterval,
		Include:          []string{"*.prom"},
		ParseConcurrency: 4,
		CardinalityMode:  "exact",
		Watch:            false,
		WatchDebounce:    watcher.DefaultDebounce,

		ListenAddr:          ":9090",
		MaxConnections:      100,
		ReadHeaderTimeout:   10 * time.Second,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        30 * time.Second,
		IdleTimeout:         2 * time.Minute,
		ShutdownTimeout:     10 * time.Second,
		ResponseCompression: []string{"zstd", "gzip"},
		InternalMetrics:     true,

		PushProtocol:    "grpc",
		PushInsecure:    true,
		PushInterval:    15 * time.Second,
		PushTimeout:     10 * time.Second,
		PushCompression: "none",

		RemoteWriteInterval: 15 * time.Second,
		RemoteWriteTimeout:  10 * time.Second,

		TelemetryProtocol:     "grpc",
		TelemetryInsecure:     true,
		TelemetryPushInterval: 30 * time.Second,

		LogLevel:         "info",
		MemoryLimitRatio: 0.9,
	}
}

// ParseFlags parses os.Args and the process environment. It exits on a
// malformed command line or an unreadable config file.
func ParseFlags() *Config {
	cfg, err := Parse(os.Args[1:], os.LookupEnv)
	if err == flag.ErrHelp {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Parse builds the configuration from args and lookupEnv. Defaults are
// overlaid by the YAML file named by -config, then by environment
// variables, then by flags that were set explicitly on the command line.
func Parse(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	fs := flag.NewFlagSet("mock-exporter", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var configFile string
	fs.StringVar(&configFile, "config", "", "Path to YAML configuration file")
	parsed := DefaultConfig()
	bindFlags(fs, parsed)
	fs.Usage = func() { PrintUsage(os.Stderr) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			PrintUsage(os.Stderr)
		}
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := DefaultConfig()
	if configFile != "" {
		y, err := LoadYAML(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
		cfg = y.ToConfig()
	}

	over := flag.NewFlagSet("overrides", flag.ContinueOnError)
	over.SetOutput(io.Discard)
	bindFlags(over, cfg)

	if err := applyEnv(over, lookupEnv); err != nil {
		return nil, err
	}

	var setErr error
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || setErr != nil {
			return
		}
		if err := over.Set(f.Name, f.Value.String()); err != nil {
			setErr = fmt.Errorf("flag -%s: %w", f.Name, err)
		}
	})
	if setErr != nil {
		return nil, setErr
	}
	return cfg, nil
}

// ScannerConfig returns the corpus scanner configuration.
func (c *Config) ScannerConfig() scanner.Config {
	card := cardinality.DefaultConfig()
	card.Mode = cardinality.ParseMode(c.CardinalityMode)
	return scanner.Config{
		Dir:         c.MetricsDir,
		Include:     c.Include,
		Exclude:     c.Exclude,
		Recursive:   c.Recursive,
		Interval:    c.ScanInterval,
		Concurrency: c.ParseConcurrency,
		Cardinality: card,
	}
}

// EngineConfig returns the engine configuration.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{Scanner: c.ScannerConfig(), Seed: c.Seed}
}

// WatcherConfig returns the fixture watcher configuration.
func (c *Config) WatcherConfig() watcher.Config {
	return watcher.Config{Dir: c.MetricsDir, Recursive: c.Recursive, Debounce: c.WatchDebounce}
}

// ServerConfig returns the HTTP server configuration. Unknown compression
// names are rejected by Validate.
func (c *Config) ServerConfig() server.Config {
	var types []compression.Type
	for _, name := range c.ResponseCompression {
		if t, err := compression.ParseType(name); err == nil && t != compression.TypeNone {
			types = append(types, t)
		}
	}
	return server.Config{
		Addr:              c.ListenAddr,
		MaxConnections:    c.MaxConnections,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
		ReadTimeout:       c.ReadTimeout,
		WriteTimeout:      c.WriteTimeout,
		IdleTimeout:       c.IdleTimeout,
		Compression:       types,
		InternalMetrics:   c.InternalMetrics,
		Auth: auth.ServerConfig{
			BearerToken:       c.AuthBearerToken,
			BasicAuthUsername: c.AuthBasicUsername,
			BasicAuthPassword: c.AuthBasicPassword,
		},
	}
}

// ServerTLSConfig returns the scrape listener TLS settings.
func (c *Config) ServerTLSConfig() tlscfg.ServerConfig {
	return tlscfg.ServerConfig{
		CertFile:     c.TLSCertFile,
		KeyFile:      c.TLSKeyFile,
		ClientCAFile: c.TLSClientCAFile,
	}
}

// PushEnabled reports whether OTLP push of synthetic series is configured.
func (c *Config) PushEnabled() bool {
	return c.PushEndpoint != ""
}

// ExporterConfig returns the OTLP push exporter configuration.
func (c *Config) ExporterConfig() exporter.Config {
	protocol, _ := exporter.ParseProtocol(c.PushProtocol)
	ct, _ := compression.ParseType(c.PushCompression)
	return exporter.Config{
		Endpoint:    c.PushEndpoint,
		Protocol:    protocol,
		Insecure:    c.PushInsecure,
		Timeout:     c.PushTimeout,
		Headers:     c.PushHeaders,
		Compression: compression.Config{Type: ct},
		TLS: tlscfg.ClientConfig{
			CAFile:             c.PushTLSCAFile,
			CertFile:           c.PushTLSCertFile,
			KeyFile:            c.PushTLSKeyFile,
			ServerName:         c.PushTLSServerName,
			InsecureSkipVerify: c.PushTLSSkipVerify,
		},
		Auth: auth.ClientConfig{
			BearerToken:       c.PushBearerToken,
			BasicAuthUsername: c.PushBasicUsername,
			BasicAuthPassword: c.PushBasicPassword,
		},
	}
}

// RemoteWriteEnabled reports whether remote write of synthetic series is
// configured.
func (c *Config) RemoteWriteEnabled() bool {
	return c.RemoteWriteURL != ""
}

// RemoteWriteConfig returns the remote write sink configuration.
func (c *Config) RemoteWriteConfig() exporter.RemoteWriteConfig {
	return exporter.RemoteWriteConfig{
		URL:            c.RemoteWriteURL,
		Timeout:        c.RemoteWriteTimeout,
		Headers:        c.RemoteWriteHeaders,
		ExternalLabels: c.RemoteWriteExternalLabels,
		TLS: tlscfg.ClientConfig{
			CAFile:             c.RemoteWriteTLSCAFile,
			InsecureSkipVerify: c.RemoteWriteTLSSkipVerify,
		},
		Auth: auth.ClientConfig{BearerToken: c.RemoteWriteBearerToken},
	}
}

// TelemetryConfig returns the OTLP self-telemetry configuration.
func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Endpoint:        c.TelemetryEndpoint,
		Protocol:        c.TelemetryProtocol,
		Insecure:        c.TelemetryInsecure,
		PushInterval:    c.TelemetryPushInterval,
		Compression:     c.TelemetryCompression,
		Headers:         c.TelemetryHeaders,
		ShutdownTimeout: c.ShutdownTimeout,
		Retry:           telemetry.RetryConfig{Enabled: true},
	}
}

// PrintUsage prints the help message.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, `mock-exporter - synthetic Prometheus metrics from fixture files

USAGE:
    mock-exporter [OPTIONS]

DESCRIPTION:
    Reads Prometheus text-format fixtures, learns per-metric value ranges and
    serves ever-changing synthetic samples on /metrics: counters keep rising,
    gauges stay within the observed range.

OPTIONS:
    Configuration:
        -config <path>                   Path to YAML configuration file
                                         Environment and CLI flags override it

    Fixtures:
        -metrics-dir <path>              Fixture directory (default: "/metrics", env METRICS_DIR)
        -scan-interval <dur>             Minimum time between rescans (default: 60s)
        -include <globs>                 Comma-separated include patterns (default: "*.prom")
        -exclude <globs>                 Comma-separated exclude patterns
        -recursive                       Descend into subdirectories (default: false)
        -parse-concurrency <n>           Files parsed in parallel (default: 4)
        -cardinality-mode <mode>         Series counting: exact or bloom (default: "exact")
        -watch                           Rescan on fixture changes (default: false)
        -watch-debounce <dur>            Quiet period before a watch rescan (default: 500ms)

    Generator:
        -seed <n>                        Fixed random seed, 0 for random (default: 0)

    Server:
        -listen-addr <addr>              Listen address (default: ":9090", env PORT)
        -max-connections <n>             Concurrent connection cap, 0 for none (default: 100)
        -read-header-timeout <dur>       (default: 10s)
        -read-timeout <dur>              (default: 30s)
        -write-timeout <dur>             (default: 30s)
        -idle-timeout <dur>              (default: 2m)
        -shutdown-timeout <dur>          Graceful shutdown limit (default: 10s)
        -response-compression <list>     Offered encodings: zstd, gzip, deflate (default: "zstd,gzip")
        -internal-metrics                Serve own metrics on /internal/metrics (default: true)
        -tls-cert-file <path>            Serve TLS with this certificate
        -tls-key-file <path>             Private key for -tls-cert-file
        -tls-client-ca-file <path>       Require client certificates signed by this CA
        -auth-bearer-token <token>       Require this bearer token on /metrics
        -auth-basic-username <user>      Require basic auth on /metrics
        -auth-basic-password <pass>

    OTLP push:
        -push-endpoint <addr>            Receiver endpoint, empty disables push
        -push-protocol <proto>           grpc or http (default: "grpc")
        -push-insecure                   Disable TLS (default: true)
        -push-interval <dur>             (default: 15s)
        -push-timeout <dur>              (default: 10s)
        -push-compression <type>         none, gzip, zstd, deflate (default: "none")
        -push-headers <k=v,...>          Extra request headers
        -push-tls-ca-file <path>         CA bundle for verifying the receiver
        -push-tls-cert-file <path>       Client certificate
        -push-tls-key-file <path>        Client private key
        -push-tls-server-name <name>     Override the verified server name
        -push-tls-skip-verify            Skip receiver certificate verification
        -push-bearer-token <token>       Bearer token sent to the receiver
        -push-basic-username <user>      Basic auth sent to the receiver
        -push-basic-password <pass>

    Remote write:
        -remote-write-url <url>          Receiver URL, e.g. http://prometheus:9090/api/v1/write
        -remote-write-interval <dur>     (default: 15s)
        -remote-write-timeout <dur>      (default: 10s)
        -remote-write-headers <k=v,...>  Extra request headers
        -remote-write-external-labels <k=v,...>
                                         Labels added to every pushed series
        -remote-write-bearer-token <t>   Bearer token sent to the receiver
        -remote-write-tls-ca-file <path> CA bundle for verifying the receiver
        -remote-write-tls-skip-verify    Skip receiver certificate verification

    Self telemetry:
        -telemetry-endpoint <addr>       OTLP collector for own logs and metrics, empty disables
        -telemetry-protocol <proto>      grpc or http (default: "grpc")
        -telemetry-insecure              Disable TLS (default: true)
        -telemetry-push-interval <dur>   (default: 30s)
        -telemetry-compression <type>    gzip or empty
        -telemetry-headers <k=v,...>     Extra request headers

    Process:
        -log-level <level>               debug, info, warn, error (default: "info")
        -memory-limit-ratio <f>          GOMEMLIMIT as a share of the cgroup limit (default: 0.9)
        -h, -help                        Show this help
        -v, -version                     Show version

ENVIRONMENT:
    METRICS_DIR and PORT are honoured. Every flag can also be set as
    MOCK_EXPORTER_<FLAG>, e.g. MOCK_EXPORTER_SCAN_INTERVAL=30s.
`)
}

// PrintVersion prints the version.
func PrintVersion() {
	fmt.Printf("mock-exporter version %s\n", version)
}
