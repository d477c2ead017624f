// Package auth guards the scrape endpoint with bearer or basic credentials
// and attaches credentials to outgoing OTLP and remote write requests.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/szibis/mock-exporter/internal/logging"
)

// ServerConfig holds credentials required from scrapers. A bearer token
// takes precedence over basic auth when both are set.
type ServerConfig struct {
	BearerToken       string
	BasicAuthUsername string
	BasicAuthPassword string
}

// Enabled reports whether any credential is configured.
func (c ServerConfig) Enabled() bool {
	return c.BearerToken != "" || c.BasicAuthUsername != ""
}

// ClientConfig holds credentials sent to the OTLP receiver.
type ClientConfig struct {
	BearerToken       string
	BasicAuthUsername string
	BasicAuthPassword string
}

// header returns the Authorization value, or "" when none is configured.
func (c ClientConfig) header() string {
	switch {
	case c.BearerToken != "":
		return "Bearer " + c.BearerToken
	case c.BasicAuthUsername != "":
		return "Basic " + basicAuthEncoded(c.BasicAuthUsername, c.BasicAuthPassword)
	default:
		return ""
	}
}

// HTTPMiddleware rejects requests without the configured credentials.
// With an empty cfg it returns next unchanged.
func HTTPMiddleware(cfg ServerConfig, next http.Handler) http.Handler {
	if !cfg.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reason := check(cfg, r.Header.Get("Authorization")); reason != "" {
			authFailuresTotal.WithLabelValues(reason).Inc()
			logging.Debug("scrape rejected", logging.F(
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"reason", reason,
			))
			if cfg.BearerToken == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="mock-exporter"`)
			} else {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check returns the failure reason, or "" if the header is acceptable.
func check(cfg ServerConfig, header string) string {
	if header == "" {
		return "missing"
	}
	if cfg.BearerToken != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "bad_scheme"
		}
		if !equal(token, cfg.BearerToken) {
			return "bad_credentials"
		}
		return ""
	}

	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return "bad_scheme"
	}
	if !equal(encoded, basicAuthEncoded(cfg.BasicAuthUsername, cfg.BasicAuthPassword)) {
		return "bad_credentials"
	}
	return ""
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GRPCClientInterceptor adds the Authorization metadata to unary calls.
func GRPCClientInterceptor(cfg ClientConfig) grpc.UnaryClientInterceptor {
	value := cfg.header()
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if value != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", value)
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// HTTPTransport returns a RoundTripper that sets the Authorization header.
// It returns base unchanged when cfg carries no credentials.
func HTTPTransport(cfg ClientConfig, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	value := cfg.header()
	if value == "" {
		return base
	}
	return &authTransport{base: base, value: value}
}

type authTransport struct {
	base  http.RoundTripper
	value string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.value)
	return t.base.RoundTrip(clone)
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *authTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

func basicAuthEncoded(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
