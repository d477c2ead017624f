package config

import (
	"flag"
	"fmt"
	"sort"
	"strings"
)

// EnvPrefix prefixes the environment variable form of every flag.
const EnvPrefix = "MOCK_EXPORTER_"

// stringList is a comma-separated list flag.
type stringList []string

func (s *stringList) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = nil
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// keyValues is a comma-separated key=value flag used for request headers.
type keyValues map[string]string

func (kv *keyValues) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	keys := make([]string, 0, len(*kv))
	for k := range *kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + (*kv)[k]
	}
	return strings.Join(parts, ",")
}

func (kv *keyValues) Set(v string) error {
	out := make(map[string]string)
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, val, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return fmt.Errorf("invalid key=value pair %q", part)
		}
		out[k] = strings.TrimSpace(val)
	}
	*kv = out
	return nil
}

// bindFlags registers every setting on fs with cfg's current values as
// defaults.
func bindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.MetricsDir, "metrics-dir", cfg.MetricsDir, "Fixture directory")
	fs.DurationVar(&cfg.ScanInterval, "scan-interval", cfg.ScanInterval, "Minimum time between rescans")
	fs.Var((*stringList)(&cfg.Include), "include", "Comma-separated include patterns")
	fs.Var((*stringList)(&cfg.Exclude), "exclude", "Comma-separated exclude patterns")
	fs.BoolVar(&cfg.Recursive, "recursive", cfg.Recursive, "Descend into subdirectories")
	fs.IntVar(&cfg.ParseConcurrency, "parse-concurrency", cfg.ParseConcurrency, "Files parsed in parallel")
	fs.StringVar(&cfg.CardinalityMode, "cardinality-mode", cfg.CardinalityMode, "Series counting mode: exact or bloom")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "Rescan on fixture changes")
	fs.DurationVar(&cfg.WatchDebounce, "watch-debounce", cfg.WatchDebounce, "Quiet period before a watch rescan")

	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Fixed random seed, 0 for random")

	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "Listen address")
	fs.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Concurrent connection cap")
	fs.DurationVar(&cfg.ReadHeaderTimeout, "read-header-timeout", cfg.ReadHeaderTimeout, "Read header timeout")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Read timeout")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Write timeout")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Idle timeout")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown limit")
	fs.Var((*stringList)(&cfg.ResponseCompression), "response-compression", "Offered response encodings")
	fs.BoolVar(&cfg.InternalMetrics, "internal-metrics", cfg.InternalMetrics, "Serve own metrics on /internal/metrics")
	fs.StringVar(&cfg.TLSCertFile, "tls-cert-file", cfg.TLSCertFile, "Server certificate file")
	fs.StringVar(&cfg.TLSKeyFile, "tls-key-file", cfg.TLSKeyFile, "Server private key file")
	fs.StringVar(&cfg.TLSClientCAFile, "tls-client-ca-file", cfg.TLSClientCAFile, "CA for client certificate verification")
	fs.StringVar(&cfg.AuthBearerToken, "auth-bearer-token", cfg.AuthBearerToken, "Bearer token required on /metrics")
	fs.StringVar(&cfg.AuthBasicUsername, "auth-basic-username", cfg.AuthBasicUsername, "Basic auth username required on /metrics")
	fs.StringVar(&cfg.AuthBasicPassword, "auth-basic-password", cfg.AuthBasicPassword, "Basic auth password required on /metrics")

	fs.StringVar(&cfg.PushEndpoint, "push-endpoint", cfg.PushEndpoint, "OTLP push endpoint")
	fs.StringVar(&cfg.PushProtocol, "push-protocol", cfg.PushProtocol, "OTLP push protocol: grpc or http")
	fs.BoolVar(&cfg.PushInsecure, "push-insecure", cfg.PushInsecure, "Disable TLS for OTLP push")
	fs.DurationVar(&cfg.PushInterval, "push-interval", cfg.PushInterval, "OTLP push interval")
	fs.DurationVar(&cfg.PushTimeout, "push-timeout", cfg.PushTimeout, "OTLP push timeout")
	fs.StringVar(&cfg.PushCompression, "push-compression", cfg.PushCompression, "OTLP push compression")
	fs.Var((*keyValues)(&cfg.PushHeaders), "push-headers", "OTLP push headers (k=v,...)")
	fs.StringVar(&cfg.PushTLSCAFile, "push-tls-ca-file", cfg.PushTLSCAFile, "CA for receiver verification")
	fs.StringVar(&cfg.PushTLSCertFile, "push-tls-cert-file", cfg.PushTLSCertFile, "OTLP push client certificate")
	fs.StringVar(&cfg.PushTLSKeyFile, "push-tls-key-file", cfg.PushTLSKeyFile, "OTLP push client private key")
	fs.StringVar(&cfg.PushTLSServerName, "push-tls-server-name", cfg.PushTLSServerName, "Receiver server name override")
	fs.BoolVar(&cfg.PushTLSSkipVerify, "push-tls-skip-verify", cfg.PushTLSSkipVerify, "Skip receiver certificate verification")
	fs.StringVar(&cfg.PushBearerToken, "push-bearer-token", cfg.PushBearerToken, "Bearer token sent to the OTLP receiver")
	fs.StringVar(&cfg.PushBasicUsername, "push-basic-username", cfg.PushBasicUsername, "Basic auth username sent to the OTLP receiver")
	fs.StringVar(&cfg.PushBasicPassword, "push-basic-password", cfg.PushBasicPassword, "Basic auth password sent to the OTLP receiver")

	fs.StringVar(&cfg.RemoteWriteURL, "remote-write-url", cfg.RemoteWriteURL, "Remote write receiver URL")
	fs.DurationVar(&cfg.RemoteWriteInterval, "remote-write-interval", cfg.RemoteWriteInterval, "Remote write interval")
	fs.DurationVar(&cfg.RemoteWriteTimeout, "remote-write-timeout", cfg.RemoteWriteTimeout, "Remote write timeout")
	fs.Var((*keyValues)(&cfg.RemoteWriteHeaders), "remote-write-headers", "Remote write headers (k=v,...)")
	fs.Var((*keyValues)(&cfg.RemoteWriteExternalLabels), "remote-write-external-labels", "Labels added to remote write series (k=v,...)")
	fs.StringVar(&cfg.RemoteWriteBearerToken, "remote-write-bearer-token", cfg.RemoteWriteBearerToken, "Bearer token sent to the remote write receiver")
	fs.StringVar(&cfg.RemoteWriteTLSCAFile, "remote-write-tls-ca-file", cfg.RemoteWriteTLSCAFile, "CA for remote write receiver verification")
	fs.BoolVar(&cfg.RemoteWriteTLSSkipVerify, "remote-write-tls-skip-verify", cfg.RemoteWriteTLSSkipVerify, "Skip remote write receiver certificate verification")

	fs.StringVar(&cfg.TelemetryEndpoint, "telemetry-endpoint", cfg.TelemetryEndpoint, "OTLP self-telemetry endpoint")
	fs.StringVar(&cfg.TelemetryProtocol, "telemetry-protocol", cfg.TelemetryProtocol, "Self-telemetry protocol: grpc or http")
	fs.BoolVar(&cfg.TelemetryInsecure, "telemetry-insecure", cfg.TelemetryInsecure, "Disable TLS for self-telemetry")
	fs.DurationVar(&cfg.TelemetryPushInterval, "telemetry-push-interval", cfg.TelemetryPushInterval, "Self-telemetry push interval")
	fs.StringVar(&cfg.TelemetryCompression, "telemetry-compression", cfg.TelemetryCompression, "Self-telemetry compression")
	fs.Var((*keyValues)(&cfg.TelemetryHeaders), "telemetry-headers", "Self-telemetry headers (k=v,...)")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	fs.Float64Var(&cfg.MemoryLimitRatio, "memory-limit-ratio", cfg.MemoryLimitRatio, "GOMEMLIMIT ratio of the container limit")

	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version")
}

// envName maps a flag name to its environment variable.
func envName(flagName string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// legacyEnv maps the historical unprefixed variables onto flags.
var legacyEnv = []struct {
	env, flag string
	convert   func(string) string
}{
	{"METRICS_DIR", "metrics-dir", nil},
	{"PORT", "listen-addr", func(port string) string { return ":" + port }},
}

// applyEnv sets flags on fs from the environment. Prefixed variables win
// over legacy ones.
func applyEnv(fs *flag.FlagSet, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		return nil
	}
	for _, l := range legacyEnv {
		v, ok := lookupEnv(l.env)
		if !ok || v == "" {
			continue
		}
		if l.convert != nil {
			v = l.convert(v)
		}
		if err := fs.Set(l.flag, v); err != nil {
			return fmt.Errorf("env %s: %w", l.env, err)
		}
	}

	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "h", "help", "v", "version":
			return
		}
		name := envName(f.Name)
		v, ok := lookupEnv(name)
		if !ok {
			return
		}
		if setErr := fs.Set(f.Name, v); setErr != nil {
			err = fmt.Errorf("env %s: %w", name, setErr)
		}
	})
	return err
}
