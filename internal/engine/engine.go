// Package engine owns the metric catalog and the counter store and serializes
// every operation on them. Transports and exporters hold an *Engine and call
// Render, Snapshot or Refresh.
package engine

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/counters"
	"github.com/szibis/mock-exporter/internal/generator"
	"github.com/szibis/mock-exporter/internal/logging"
	"github.com/szibis/mock-exporter/internal/scanner"
)

// ErrNotLoaded is returned by Ready until the first successful scan.
var ErrNotLoaded = errors.New("metric catalog not loaded yet")

// Config holds engine configuration.
type Config struct {
	Scanner scanner.Config
	// Seed fixes the random source when non-zero.
	Seed uint64
}

// Engine is the synthetic metrics engine.
type Engine struct {
	mu      sync.Mutex
	scanner *scanner.Scanner
	store   *counters.Store
	gen     *generator.Generator
	catalog catalog.Catalog
	loaded  bool
}

// New creates an engine. No scan happens until Refresh or Render is called.
func New(cfg Config) (*Engine, error) {
	sc, err := scanner.New(cfg.Scanner)
	if err != nil {
		return nil, err
	}

	seed1, seed2 := cfg.Seed, cfg.Seed
	if cfg.Seed == 0 {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}
	store := counters.NewStore()
	return &Engine{
		scanner: sc,
		store:   store,
		gen:     generator.New(store, rand.New(rand.NewPCG(seed1, seed2))),
		catalog: make(catalog.Catalog),
	}, nil
}

// Refresh rescans the corpus. Unless force is set the scan is throttled; a
// throttled call changes nothing. On success the catalog is replaced as a
// whole and counter entries are seeded for new counter series only. On
// failure the previous catalog stays in use.
func (e *Engine) Refresh(force bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshLocked(force)
}

func (e *Engine) refreshLocked(force bool) error {
	res, err := e.scanner.Refresh(force)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}

	e.catalog = res.Catalog
	e.loaded = true
	if n := e.gen.SeedCounters(e.catalog); n > 0 {
		logging.Debug("seeded counter series", logging.F("created", n, "total", e.store.Len()))
	}
	return nil
}

// Render attempts a throttled refresh and returns one freshly generated
// sample per series as exposition text. A failed refresh is already logged
// by the scanner; rendering continues with the previous catalog.
func (e *Engine) Render() string {
	start := time.Now()
	defer func() { renderDuration.Observe(time.Since(start).Seconds()) }()

	return generator.Render(e.generate())
}

// Snapshot attempts a throttled refresh and returns one freshly generated
// sample per series. Counters advance exactly as they do for Render.
func (e *Engine) Snapshot() []generator.Series {
	return e.generate()
}

func (e *Engine) generate() []generator.Series {
	e.mu.Lock()
	defer e.mu.Unlock()

	_ = e.refreshLocked(false)
	series := e.gen.Generate(e.catalog)
	renderedSeries.Set(float64(len(series)))
	return series
}

// Ready returns nil once a scan has completed successfully.
func (e *Engine) Ready() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return ErrNotLoaded
	}
	return nil
}

// Dir returns the fixture directory being served.
func (e *Engine) Dir() string {
	return e.scanner.Dir()
}

// Stats reports catalog and counter store sizes.
func (e *Engine) Stats() (metrics, series, counterEntries int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.catalog), e.catalog.SeriesCount(), e.store.Len()
}
