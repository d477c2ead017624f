package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startWatcher(t *testing.T, cfg Config, refresh RefreshFunc) {
	t.Helper()
	w, err := New(cfg, refresh)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWatcher_ForcesRefreshOnChange(t *testing.T) {
	dir := t.TempDir()
	var calls, forced atomic.Int32
	startWatcher(t, Config{Dir: dir, Debounce: 20 * time.Millisecond}, func(force bool) error {
		calls.Add(1)
		if force {
			forced.Add(1)
		}
		return nil
	})

	if err := os.WriteFile(filepath.Join(dir, "a.prom"), []byte("up 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	if forced.Load() != calls.Load() {
		t.Error("watcher refresh must be forced")
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, Config{Dir: dir, Debounce: 200 * time.Millisecond}, func(bool) error {
		calls.Add(1)
		return nil
	})

	path := filepath.Join(dir, "burst.prom")
	for i := 0; i < 10; i++ {
		if err := os.WriteFile(path, []byte("up 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 refresh for a burst, got %d", got)
	}
}

func TestWatcher_RecursivePicksUpNewDirectories(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	startWatcher(t, Config{Dir: dir, Recursive: true, Debounce: 20 * time.Millisecond}, func(bool) error {
		calls.Add(1)
		return nil
	})

	sub := filepath.Join(dir, "team")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })

	before := calls.Load()
	// The watch on sub is registered asynchronously; retry the write.
	waitFor(t, func() bool {
		_ = os.WriteFile(filepath.Join(sub, "x.prom"), []byte("x 1\n"), 0o644)
		time.Sleep(50 * time.Millisecond)
		return calls.Load() > before
	})
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, func(bool) error { return nil })
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	w, err := New(Config{Dir: t.TempDir()}, func(bool) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); err != nil {
		t.Errorf("Run() = %v, want nil", err)
	}
}
