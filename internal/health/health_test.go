package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h http.HandlerFunc, path string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
	}
	return rec, resp
}

func TestTextHandler(t *testing.T) {
	c := New()
	c.SetShuttingDown()

	rec, _ := serve(t, c.TextHandler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}

func TestLiveHandler(t *testing.T) {
	c := New()
	rec, resp := serve(t, c.LiveHandler(), "/live")
	if rec.Code != http.StatusOK || resp.Status != StatusUp {
		t.Fatalf("got %d %s, want 200 up", rec.Code, resp.Status)
	}
	if resp.Timestamp == "" {
		t.Error("missing timestamp")
	}

	c.SetShuttingDown()
	rec, resp = serve(t, c.LiveHandler(), "/live")
	if rec.Code != http.StatusServiceUnavailable || resp.Status != StatusDown {
		t.Fatalf("got %d %s, want 503 down", rec.Code, resp.Status)
	}
	if resp.Components["process"].Message != "shutting down" {
		t.Errorf("unexpected components %v", resp.Components)
	}
}

func TestReadyHandler_AllReady(t *testing.T) {
	c := New()
	c.RegisterReadiness("catalog", func() error { return nil })
	c.RegisterReadiness("listener", func() error { return nil })

	rec, resp := serve(t, c.ReadyHandler(), "/ready")
	if rec.Code != http.StatusOK || resp.Status != StatusUp {
		t.Fatalf("got %d %s, want 200 up", rec.Code, resp.Status)
	}
	if len(resp.Components) != 2 {
		t.Errorf("expected 2 components, got %d", len(resp.Components))
	}
}

func TestReadyHandler_OneFailing(t *testing.T) {
	c := New()
	c.RegisterReadiness("catalog", func() error { return errors.New("metric catalog not loaded yet") })
	c.RegisterReadiness("listener", func() error { return nil })

	rec, resp := serve(t, c.ReadyHandler(), "/ready")
	if rec.Code != http.StatusServiceUnavailable || resp.Status != StatusDown {
		t.Fatalf("got %d %s, want 503 down", rec.Code, resp.Status)
	}
	cc := resp.Components["catalog"]
	if cc.Status != StatusDown || cc.Message != "metric catalog not loaded yet" {
		t.Errorf("unexpected catalog component %+v", cc)
	}
	if resp.Components["listener"].Status != StatusUp {
		t.Error("healthy component reported down")
	}
}

func TestReadyHandler_NoChecks(t *testing.T) {
	rec, resp := serve(t, New().ReadyHandler(), "/ready")
	if rec.Code != http.StatusOK || resp.Status != StatusUp {
		t.Errorf("got %d %s, want 200 up", rec.Code, resp.Status)
	}
}

func TestReadyHandler_ShuttingDownSkipsChecks(t *testing.T) {
	c := New()
	called := false
	c.RegisterReadiness("catalog", func() error { called = true; return nil })
	c.SetShuttingDown()

	rec, _ := serve(t, c.ReadyHandler(), "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if called {
		t.Error("checks should not run while shutting down")
	}
}

func TestRegisterReadiness_Replaces(t *testing.T) {
	c := New()
	c.RegisterReadiness("catalog", func() error { return errors.New("x") })
	c.RegisterReadiness("catalog", func() error { return nil })

	if resp := c.Evaluate(); resp.Status != StatusUp {
		t.Errorf("replaced check still failing: %+v", resp)
	}
}
