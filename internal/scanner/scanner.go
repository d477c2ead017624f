// Package scanner discovers fixture files, parses them and merges the result
// into a fresh metric catalog. Refreshes are throttled to a minimum interval.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/szibis/mock-exporter/internal/cardinality"
	"github.com/szibis/mock-exporter/internal/catalog"
	"github.com/szibis/mock-exporter/internal/logging"
	"github.com/szibis/mock-exporter/internal/textformat"
)

// DefaultInterval is the minimum time between two unforced refreshes.
const DefaultInterval = 60 * time.Second

var errEmptyDir = errors.New("scanner: directory is required")

// Config holds scanner configuration.
type Config struct {
	// Dir is the fixture directory.
	Dir string
	// Include lists doublestar patterns matched against the path relative
	// to Dir. Defaults to "*.prom".
	Include []string
	// Exclude lists doublestar patterns that drop otherwise included files.
	Exclude []string
	// Recursive descends into subdirectories.
	Recursive bool
	// Interval is the refresh throttle. Zero means DefaultInterval.
	Interval time.Duration
	// Concurrency bounds parallel file parsing. Zero or less means 4.
	Concurrency int
	// Cardinality configures the per-scan series tracker.
	Cardinality cardinality.Config
}

// Result describes one completed scan.
type Result struct {
	Catalog    catalog.Catalog
	Files      int
	FileErrors int
	Samples    int
	Malformed  int
	Series     int64
	Duration   time.Duration
}

// Scanner builds catalogs from the fixture directory. It is not safe for
// concurrent use; the engine serializes calls.
type Scanner struct {
	cfg      Config
	now      func() time.Time
	lastScan time.Time
	scanned  bool

	series   cardinality.Tracker
	lifetime *cardinality.HLLTracker
}

// New creates a scanner.
func New(cfg Config) (*Scanner, error) {
	if cfg.Dir == "" {
		return nil, errEmptyDir
	}
	if len(cfg.Include) == 0 {
		cfg.Include = []string{"*.prom"}
	}
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("scanner: invalid pattern %q", p)
		}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Cardinality.ExpectedItems == 0 {
		mode := cfg.Cardinality.Mode
		cfg.Cardinality = cardinality.DefaultConfig()
		cfg.Cardinality.Mode = mode
	}
	return &Scanner{
		cfg:      cfg,
		now:      time.Now,
		series:   cardinality.NewTracker(cfg.Cardinality),
		lifetime: cardinality.NewHLLTracker(),
	}, nil
}

// Dir returns the fixture directory.
func (s *Scanner) Dir() string {
	return s.cfg.Dir
}

// Interval returns the effective throttle interval.
func (s *Scanner) Interval() time.Duration {
	return s.cfg.Interval
}

// Due reports whether an unforced refresh would run now.
func (s *Scanner) Due() bool {
	return !s.scanned || s.now().Sub(s.lastScan) >= s.cfg.Interval
}

// Refresh scans the directory and returns the merged catalog. Unless force
// is set, a call within the throttle interval of the previous attempt does
// nothing and returns (nil, nil). The throttle window restarts on every
// attempt, including failed ones, so a broken directory is not hammered.
//
// Per-file errors are logged and skip that file. A directory listing error
// is logged and returned; the caller keeps its previous catalog.
func (s *Scanner) Refresh(force bool) (*Result, error) {
	if !force && !s.Due() {
		scansTotal.WithLabelValues("throttled").Inc()
		return nil, nil
	}

	began := time.Now()
	start := s.now()
	s.lastScan = start
	s.scanned = true

	files, err := s.listFiles()
	if err != nil {
		scansTotal.WithLabelValues("error").Inc()
		logging.Error("failed to list fixture directory", logging.F(
			"dir", s.cfg.Dir,
			"error", err.Error(),
		))
		return nil, fmt.Errorf("list %s: %w", s.cfg.Dir, err)
	}

	res := s.parseAll(files)
	res.Duration = time.Since(began)

	scansTotal.WithLabelValues("success").Inc()
	scanDuration.Observe(res.Duration.Seconds())
	catalogMetrics.Set(float64(len(res.Catalog)))
	catalogSeries.Set(float64(res.Series))
	seriesSeenEstimate.Set(float64(s.lifetime.Count()))
	lastScanTimestamp.Set(float64(start.Unix()))

	logging.Info("fixture corpus scanned", logging.F(
		"dir", s.cfg.Dir,
		"files", res.Files,
		"file_errors", res.FileErrors,
		"metrics", len(res.Catalog),
		"series", res.Series,
		"samples", res.Samples,
		"malformed_lines", res.Malformed,
		"duration_ms", res.Duration.Milliseconds(),
	))
	return res, nil
}

// isFile accepts regular files and symlinks. Mounted config volumes expose
// fixtures as symlinks.
func isFile(d fs.DirEntry) bool {
	return d.Type().IsRegular() || d.Type()&fs.ModeSymlink != 0
}

// listFiles returns matching files in sorted order.
func (s *Scanner) listFiles() ([]string, error) {
	var files []string

	if !s.cfg.Recursive {
		entries, err := os.ReadDir(s.cfg.Dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if isFile(e) && s.selected(e.Name()) {
				files = append(files, filepath.Join(s.cfg.Dir, e.Name()))
			}
		}
		return files, nil
	}

	err := filepath.WalkDir(s.cfg.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.cfg.Dir {
				return err
			}
			logging.Warn("skipping unreadable path", logging.F("path", path, "error", err.Error()))
			return nil
		}
		if !isFile(d) {
			return nil
		}
		rel, err := filepath.Rel(s.cfg.Dir, path)
		if err != nil {
			return nil
		}
		if s.selected(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// selected matches rel against include patterns, then exclude patterns.
// Include patterns without a slash also match the base name, so "*.prom"
// selects fixtures at any depth.
func (s *Scanner) selected(rel string) bool {
	base := filepath.Base(rel)
	match := func(patterns []string) bool {
		for _, p := range patterns {
			if ok, _ := doublestar.Match(p, rel); ok {
				return true
			}
			if ok, _ := doublestar.Match(p, base); ok {
				return true
			}
		}
		return false
	}
	return match(s.cfg.Include) && !match(s.cfg.Exclude)
}

type fileResult struct {
	path string
	res  textformat.Result
	err  error
}

// parseAll parses files concurrently and merges them in path order.
func (s *Scanner) parseAll(files []string) *Result {
	results := make([]fileResult, len(files))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, path := range files {
		g.Go(func() error {
			res, err := textformat.ParseFile(path)
			results[i] = fileResult{path: path, res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := &Result{Catalog: make(catalog.Catalog)}
	for _, fr := range results {
		if fr.err != nil {
			out.FileErrors++
			fileErrorsTotal.Inc()
			logging.Error("failed to parse fixture file", logging.F(
				"path", fr.path,
				"error", fr.err.Error(),
			))
			continue
		}
		out.Files++
		out.Samples += fr.res.Samples
		out.Malformed += fr.res.Malformed
		filesParsedTotal.Inc()
		malformedLinesTotal.Add(float64(fr.res.Malformed))
		out.Catalog.Merge(fr.res.Metrics)
	}

	s.series.Reset()
	for name, m := range out.Catalog {
		for _, sg := range m.Series() {
			key := []byte(name + "{" + sg.Key + "}")
			s.series.Add(key)
			s.lifetime.Add(key)
		}
	}
	out.Series = s.series.Count()
	return out
}
