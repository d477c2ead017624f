package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeSelfSigned writes a self-signed CA certificate valid for localhost
// and returns the cert and key paths.
func writeSelfSigned(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "mock-exporter-test"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestNewServerConfig_Disabled(t *testing.T) {
	cfg, err := NewServerConfig(ServerConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Error("expected nil TLS config when disabled")
	}
}

func TestNewServerConfig_MissingKey(t *testing.T) {
	if _, err := NewServerConfig(ServerConfig{CertFile: "cert.pem"}); err == nil {
		t.Error("expected error without key file")
	}
}

func TestNewServerConfig_MissingFiles(t *testing.T) {
	_, err := NewServerConfig(ServerConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"})
	if err == nil {
		t.Error("expected error for missing certificate files")
	}
}

func TestNewServerConfig_ClientCA(t *testing.T) {
	cert, key := writeSelfSigned(t)
	cfg, err := NewServerConfig(ServerConfig{CertFile: cert, KeyFile: key, ClientCAFile: cert})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientAuth != tls.RequireAndVerifyClientCert || cfg.ClientCAs == nil {
		t.Error("client CA should require verified client certificates")
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x", cfg.MinVersion)
	}
}

func TestNewClientConfig_Defaults(t *testing.T) {
	cfg, err := NewClientConfig(ClientConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootCAs != nil || len(cfg.Certificates) != 0 || cfg.InsecureSkipVerify {
		t.Error("empty client config should use system roots without client cert")
	}
}

func TestNewClientConfig_BadCA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewClientConfig(ClientConfig{CAFile: path}); err == nil {
		t.Error("expected error for CA file without certificates")
	}
	if _, err := NewClientConfig(ClientConfig{CAFile: "/nonexistent/ca.pem"}); err == nil {
		t.Error("expected error for missing CA file")
	}
}

func TestNewClientConfig_KeyWithoutCert(t *testing.T) {
	_, key := writeSelfSigned(t)
	if _, err := NewClientConfig(ClientConfig{KeyFile: key}); err == nil {
		t.Error("expected error for key without certificate")
	}
}

func TestMutualTLSHandshake(t *testing.T) {
	cert, key := writeSelfSigned(t)

	serverCfg, err := NewServerConfig(ServerConfig{CertFile: cert, KeyFile: key, ClientCAFile: cert})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "up 1\n")
	}))
	srv.TLS = serverCfg
	srv.StartTLS()
	defer srv.Close()

	clientCfg, err := NewClientConfig(ClientConfig{CAFile: cert, CertFile: cert, KeyFile: key, ServerName: "localhost"})
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: clientCfg}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("mutual TLS request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "up 1\n" {
		t.Errorf("body = %q", body)
	}

	noCert, err := NewClientConfig(ClientConfig{CAFile: cert, ServerName: "localhost"})
	if err != nil {
		t.Fatal(err)
	}
	anon := &http.Client{Transport: &http.Transport{TLSClientConfig: noCert}}
	if resp, err := anon.Get(srv.URL); err == nil {
		resp.Body.Close()
		t.Error("request without client certificate should fail")
	}
}
