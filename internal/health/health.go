// Package health serves process probes: a plain-text /health that always
// answers while the process runs, and JSON /live and /ready probes.
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response is the JSON body returned by /live and /ready.
type Response struct {
	Status        Status                    `json:"status"`
	Components    map[string]ComponentCheck `json:"components,omitempty"`
	UptimeSeconds int64                     `json:"uptime_seconds"`
	Timestamp     string                    `json:"timestamp"`
}

// CheckFunc returns nil if the component is ready, or an error describing why not.
type CheckFunc func() error

// Checker aggregates readiness checks and tracks shutdown.
type Checker struct {
	mu           sync.RWMutex
	checks       map[string]CheckFunc
	started      time.Time
	shuttingDown atomic.Bool
}

// New creates a Checker.
func New() *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		started: time.Now(),
	}
}

// RegisterReadiness registers a named readiness check, replacing any check
// with the same name. Checks run on every /ready request.
func (c *Checker) RegisterReadiness(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// SetShuttingDown marks the process as draining. /live and /ready return 503
// afterwards; /health keeps answering.
func (c *Checker) SetShuttingDown() {
	c.shuttingDown.Store(true)
}

// TextHandler answers "OK" with a plain-text content type.
func (c *Checker) TextHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}
}

// LiveHandler reports whether the process is running and not draining.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.shuttingDown.Load() {
			c.writeJSON(w, http.StatusServiceUnavailable, c.draining())
			return
		}
		c.writeJSON(w, http.StatusOK, Response{Status: StatusUp})
	}
}

// ReadyHandler runs every registered check; any failure yields 503.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c.shuttingDown.Load() {
			c.writeJSON(w, http.StatusServiceUnavailable, c.draining())
			return
		}

		resp := c.Evaluate()
		code := http.StatusOK
		if resp.Status == StatusDown {
			code = http.StatusServiceUnavailable
		}
		c.writeJSON(w, code, resp)
	}
}

// Evaluate runs the readiness checks in name order.
func (c *Checker) Evaluate() Response {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks[name] = check
	}
	c.mu.RUnlock()
	sort.Strings(names)

	resp := Response{Status: StatusUp, Components: make(map[string]ComponentCheck, len(names))}
	for _, name := range names {
		if err := checks[name](); err != nil {
			resp.Status = StatusDown
			resp.Components[name] = ComponentCheck{Status: StatusDown, Message: err.Error()}
			continue
		}
		resp.Components[name] = ComponentCheck{Status: StatusUp}
	}
	return resp
}

func (c *Checker) draining() Response {
	return Response{
		Status: StatusDown,
		Components: map[string]ComponentCheck{
			"process": {Status: StatusDown, Message: "shutting down"},
		},
	}
}

func (c *Checker) writeJSON(w http.ResponseWriter, code int, resp Response) {
	now := time.Now()
	resp.Timestamp = now.UTC().Format(time.RFC3339)
	resp.UptimeSeconds = int64(now.Sub(c.started).Seconds())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
