// Package tls builds crypto/tls configurations from file paths for the
// /metrics listener and the push clients.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// ServerConfig holds TLS settings for the scrape endpoint. TLS is enabled
// when CertFile is set.
type ServerConfig struct {
	CertFile string
	KeyFile  string
	// ClientCAFile turns on mutual TLS: scrapers must present a certificate
	// signed by one of these CAs.
	ClientCAFile string
}

// Enabled reports whether the listener should serve TLS.
func (c ServerConfig) Enabled() bool {
	return c.CertFile != ""
}

// ClientConfig holds TLS settings for the OTLP push client.
type ClientConfig struct {
	// CAFile replaces the system roots for receiver verification.
	CAFile string
	// CertFile and KeyFile present a client certificate.
	CertFile           string
	KeyFile            string
	ServerName         string
	InsecureSkipVerify bool
}

// NewServerConfig returns nil when cfg is not enabled.
func NewServerConfig(cfg ServerConfig) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if cfg.KeyFile == "" {
		return nil, errors.New("tls: key file is required with a certificate")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("tls: load server certificate: %w", err)
	}
	out := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadPool(cfg.ClientCAFile)
		if err != nil {
			return nil, err
		}
		out.ClientCAs = pool
		out.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return out, nil
}

// NewClientConfig always returns a config; with an empty cfg it verifies
// against the system roots.
func NewClientConfig(cfg ClientConfig) (*tls.Config, error) {
	out := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in via -push-tls-skip-verify
	}

	if cfg.CertFile != "" || cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pool, err := loadPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		out.RootCAs = pool
	}
	return out, nil
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tls: read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("tls: no certificates found in %s", path)
	}
	return pool, nil
}
