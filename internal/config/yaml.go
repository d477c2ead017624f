package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the YAML configuration file structure.
type YAMLConfig struct {
	LogLevel         string  `yaml:"log_level"`
	MemoryLimitRatio float64 `yaml:"memory_limit_ratio"`

	Scan        ScanYAMLConfig        `yaml:"scan"`
	Generator   GeneratorYAMLConfig   `yaml:"generator"`
	Server      ServerYAMLConfig      `yaml:"server"`
	Push        PushYAMLConfig        `yaml:"push"`
	RemoteWrite RemoteWriteYAMLConfig `yaml:"remote_write"`
	Telemetry   TelemetryYAMLConfig   `yaml:"telemetry"`
}

// ScanYAMLConfig holds fixture discovery settings.
type ScanYAMLConfig struct {
	Dir             string   `yaml:"dir"`
	Interval        Duration `yaml:"interval"`
	Include         []string `yaml:"include"`
	Exclude         []string `yaml:"exclude"`
	Recursive       bool     `yaml:"recursive"`
	Concurrency     int      `yaml:"concurrency"`
	CardinalityMode string   `yaml:"cardinality_mode"` // "exact" or "bloom"
	Watch           bool     `yaml:"watch"`
	WatchDebounce   Duration `yaml:"watch_debounce"`
}

// GeneratorYAMLConfig holds value generation settings.
type GeneratorYAMLConfig struct {
	Seed uint64 `yaml:"seed"` // 0 = random
}

// ServerYAMLConfig holds HTTP server settings.
type ServerYAMLConfig struct {
	Address           string   `yaml:"address"`
	MaxConnections    *int     `yaml:"max_connections"` // 0 = unlimited (default: 100)
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ReadTimeout       Duration `yaml:"read_timeout"`
	WriteTimeout      Duration `yaml:"write_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	Compression       []string `yaml:"compression"`      // offered encodings in preference order
	InternalMetrics   *bool    `yaml:"internal_metrics"` // default: true

	TLS  ServerTLSYAMLConfig `yaml:"tls"`
	Auth AuthYAMLConfig      `yaml:"auth"`
}

// AuthYAMLConfig holds bearer or basic credentials.
type AuthYAMLConfig struct {
	BearerToken   string `yaml:"bearer_token"`
	BasicUsername string `yaml:"basic_username"`
	BasicPassword string `yaml:"basic_password"`
}

// ServerTLSYAMLConfig holds scrape listener TLS settings.
type ServerTLSYAMLConfig struct {
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	ClientCAFile string `yaml:"client_ca_file"` // enables mTLS
}

// PushYAMLConfig holds OTLP push settings for synthetic series.
type PushYAMLConfig struct {
	Endpoint    string            `yaml:"endpoint"` // empty = disabled
	Protocol    string            `yaml:"protocol"`
	Insecure    *bool             `yaml:"insecure"` // default: true
	Interval    Duration          `yaml:"interval"`
	Timeout     Duration          `yaml:"timeout"`
	Compression string            `yaml:"compression"`
	Headers     map[string]string `yaml:"headers"`

	TLS  PushTLSYAMLConfig `yaml:"tls"`
	Auth AuthYAMLConfig    `yaml:"auth"`
}

// PushTLSYAMLConfig holds OTLP push client TLS settings.
type PushTLSYAMLConfig struct {
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// RemoteWriteYAMLConfig holds Prometheus remote write settings.
type RemoteWriteYAMLConfig struct {
	URL            string            `yaml:"url"` // empty = disabled
	Interval       Duration          `yaml:"interval"`
	Timeout        Duration          `yaml:"timeout"`
	Headers        map[string]string `yaml:"headers"`
	ExternalLabels map[string]string `yaml:"external_labels"`
	BearerToken    string            `yaml:"bearer_token"`
	TLSCAFile      string            `yaml:"tls_ca_file"`
	TLSSkipVerify  bool              `yaml:"tls_skip_verify"`
}

// TelemetryYAMLConfig holds OTLP self-monitoring telemetry configuration.
type TelemetryYAMLConfig struct {
	Endpoint     string            `yaml:"endpoint"` // empty = disabled
	Protocol     string            `yaml:"protocol"`
	Insecure     *bool             `yaml:"insecure"` // default: true
	PushInterval Duration          `yaml:"push_interval"`
	Compression  string            `yaml:"compression"` // "gzip" or ""
	Headers      map[string]string `yaml:"headers"`
}

// Duration is a wrapper for time.Duration that supports YAML unmarshaling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// ParseYAML parses YAML configuration from bytes. Unknown keys are rejected.
func ParseYAML(data []byte) (*YAMLConfig, error) {
	cfg := &YAMLConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults sets default values for unspecified fields.
func (y *YAMLConfig) ApplyDefaults() {
	d := DefaultConfig()

	if y.LogLevel == "" {
		y.LogLevel = d.LogLevel
	}
	if y.MemoryLimitRatio == 0 {
		y.MemoryLimitRatio = d.MemoryLimitRatio
	}

	if y.Scan.Dir == "" {
		y.Scan.Dir = d.MetricsDir
	}
	if y.Scan.Interval == 0 {
		y.Scan.Interval = Duration(d.ScanInterval)
	}
	if len(y.Scan.Include) == 0 {
		y.Scan.Include = d.Include
	}
	if y.Scan.Concurrency == 0 {
		y.Scan.Concurrency = d.ParseConcurrency
	}
	if y.Scan.CardinalityMode == "" {
		y.Scan.CardinalityMode = d.CardinalityMode
	}
	if y.Scan.WatchDebounce == 0 {
		y.Scan.WatchDebounce = Duration(d.WatchDebounce)
	}

	if y.Server.Address == "" {
		y.Server.Address = d.ListenAddr
	}
	if y.Server.MaxConnections == nil {
		y.Server.MaxConnections = &d.MaxConnections
	}
	if y.Server.ReadHeaderTimeout == 0 {
		y.Server.ReadHeaderTimeout = Duration(d.ReadHeaderTimeout)
	}
	if y.Server.ReadTimeout == 0 {
		y.Server.ReadTimeout = Duration(d.ReadTimeout)
	}
	if y.Server.WriteTimeout == 0 {
		y.Server.WriteTimeout = Duration(d.WriteTimeout)
	}
	if y.Server.IdleTimeout == 0 {
		y.Server.IdleTimeout = Duration(d.IdleTimeout)
	}
	if y.Server.ShutdownTimeout == 0 {
		y.Server.ShutdownTimeout = Duration(d.ShutdownTimeout)
	}
	if y.Server.Compression == nil {
		y.Server.Compression = d.ResponseCompression
	}
	if y.Server.InternalMetrics == nil {
		y.Server.InternalMetrics = &d.InternalMetrics
	}

	if y.Push.Protocol == "" {
		y.Push.Protocol = d.PushProtocol
	}
	if y.Push.Insecure == nil {
		y.Push.Insecure = &d.PushInsecure
	}
	if y.Push.Interval == 0 {
		y.Push.Interval = Duration(d.PushInterval)
	}
	if y.Push.Timeout == 0 {
		y.Push.Timeout = Duration(d.PushTimeout)
	}
	if y.Push.Compression == "" {
		y.Push.Compression = d.PushCompression
	}

	if y.RemoteWrite.Interval == 0 {
		y.RemoteWrite.Interval = Duration(d.RemoteWriteInterval)
	}
	if y.RemoteWrite.Timeout == 0 {
		y.RemoteWrite.Timeout = Duration(d.RemoteWriteTimeout)
	}

	if y.Telemetry.Protocol == "" {
		y.Telemetry.Protocol = d.TelemetryProtocol
	}
	if y.Telemetry.Insecure == nil {
		y.Telemetry.Insecure = &d.TelemetryInsecure
	}
	if y.Telemetry.PushInterval == 0 {
		y.Telemetry.PushInterval = Duration(d.TelemetryPushInterval)
	}
}

// ToConfig converts YAMLConfig to the flat Config. ApplyDefaults must have
// run first.
func (y *YAMLConfig) ToConfig() *Config {
	return &Config{
		MetricsDir:       y.Scan.Dir,
		ScanInterval:     time.Duration(y.Scan.Interval),
		Include:          y.Scan.Include,
		Exclude:          y.Scan.Exclude,
		Recursive:        y.Scan.Recursive,
		ParseConcurrency: y.Scan.Concurrency,
		CardinalityMode:  y.Scan.CardinalityMode,
		Watch:            y.Scan.Watch,
		WatchDebounce:    time.Duration(y.Scan.WatchDebounce),

		Seed: y.Generator.Seed,

		ListenAddr:          y.Server.Address,
		MaxConnections:      *y.Server.MaxConnections,
		ReadHeaderTimeout:   time.Duration(y.Server.ReadHeaderTimeout),
		ReadTimeout:         time.Duration(y.Server.ReadTimeout),
		WriteTimeout:        time.Duration(y.Server.WriteTimeout),
		IdleTimeout:         time.Duration(y.Server.IdleTimeout),
		ShutdownTimeout:     time.Duration(y.Server.ShutdownTimeout),
		ResponseCompression: y.Server.Compression,
		InternalMetrics:     *y.Server.InternalMetrics,
		TLSCertFile:         y.Server.TLS.CertFile,
		TLSKeyFile:          y.Server.TLS.KeyFile,
		TLSClientCAFile:     y.Server.TLS.ClientCAFile,
		AuthBearerToken:     y.Server.Auth.BearerToken,
		AuthBasicUsername:   y.Server.Auth.BasicUsername,
		AuthBasicPassword:   y.Server.Auth.BasicPassword,

		PushEndpoint:    y.Push.Endpoint,
		PushProtocol:    y.Push.Protocol,
		PushInsecure:    *y.Push.Insecure,
		PushInterval:    time.Duration(y.Push.Interval),
		PushTimeout:     time.Duration(y.Push.Timeout),
		PushCompression: y.Push.Compression,
		PushHeaders:     y.Push.Headers,

		PushTLSCAFile:     y.Push.TLS.CAFile,
		PushTLSCertFile:   y.Push.TLS.CertFile,
		PushTLSKeyFile:    y.Push.TLS.KeyFile,
		PushTLSServerName: y.Push.TLS.ServerName,
		PushTLSSkipVerify: y.Push.TLS.InsecureSkipVerify,
		PushBearerToken:   y.Push.Auth.BearerToken,
		PushBasicUsername: y.Push.Auth.BasicUsername,
		PushBasicPassword: y.Push.Auth.BasicPassword,

		RemoteWriteURL:            y.RemoteWrite.URL,
		RemoteWriteInterval:       time.Duration(y.RemoteWrite.Interval),
		RemoteWriteTimeout:        time.Duration(y.RemoteWrite.Timeout),
		RemoteWriteHeaders:        y.RemoteWrite.Headers,
		RemoteWriteExternalLabels: y.RemoteWrite.ExternalLabels,
		RemoteWriteBearerToken:    y.RemoteWrite.BearerToken,
		RemoteWriteTLSCAFile:      y.RemoteWrite.TLSCAFile,
		RemoteWriteTLSSkipVerify:  y.RemoteWrite.TLSSkipVerify,

		TelemetryEndpoint:     y.Telemetry.Endpoint,
		TelemetryProtocol:     y.Telemetry.Protocol,
		TelemetryInsecure:     *y.Telemetry.Insecure,
		TelemetryPushInterval: time.Duration(y.Telemetry.PushInterval),
		TelemetryCompression:  y.Telemetry.Compression,
		TelemetryHeaders:      y.Telemetry.Headers,

		LogLevel:         y.LogLevel,
		MemoryLimitRatio: y.MemoryLimitRatio,
	}
}
