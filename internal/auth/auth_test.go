package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(t *testing.T, h http.Handler, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPMiddleware_Disabled(t *testing.T) {
	if rec := request(t, HTTPMiddleware(ServerConfig{}, okHandler), ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHTTPMiddleware_Bearer(t *testing.T) {
	h := HTTPMiddleware(ServerConfig{BearerToken: "s3cret"}, okHandler)

	tests := []struct {
		name   string
		header string
		code   int
		reason string
	}{
		{"valid", "Bearer s3cret", http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, "missing"},
		{"wrong scheme", "Token s3cret", http.StatusUnauthorized, "bad_scheme"},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, "bad_credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before float64
			if tt.reason != "" {
				before = testutil.ToFloat64(authFailuresTotal.WithLabelValues(tt.reason))
			}
			rec := request(t, h, tt.header)
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if tt.reason == "" {
				return
			}
			if got := testutil.ToFloat64(authFailuresTotal.WithLabelValues(tt.reason)) - before; got != 1 {
				t.Errorf("failure counter delta = %v, want 1", got)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("WWW-Authenticate = %q", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestHTTPMiddleware_Basic(t *testing.T) {
	h := HTTPMiddleware(ServerConfig{BasicAuthUsername: "prom", BasicAuthPassword: "pw"}, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "pw")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid basic auth: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected basic challenge")
	}
}

func TestHTTPTransport(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	client := &http.Client{Transport: HTTPTransport(ClientConfig{BearerToken: "tok"}, nil)}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}

	base := http.DefaultTransport
	if HTTPTransport(ClientConfig{}, base) != base {
		t.Error("empty client config should return base transport")
	}
}

func TestGRPCClientInterceptor(t *testing.T) {
	var md metadata.MD
	invoker := func(ctx context.Context, _ string, _, _ interface{}, _ *grpc.ClientConn, _ ...grpc.CallOption) error {
		md, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}

	ic := GRPCClientInterceptor(ClientConfig{BasicAuthUsername: "u", BasicAuthPassword: "p"})
	if err := ic(context.Background(), "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if v := md.Get("authorization"); len(v) != 1 || v[0] != "Basic dTpw" {
		t.Errorf("authorization metadata = %v", v)
	}

	md = nil
	if err := GRPCClientInterceptor(ClientConfig{})(context.Background(), "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if len(md.Get("authorization")) != 0 {
		t.Error("no credentials should add no metadata")
	}
}
