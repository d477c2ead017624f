package exporter

import (
	"context"
	"errors"
	"time"

	"github.com/szibis/mock-exporter/internal/generator"
	"github.com/szibis/mock-exporter/internal/logging"
)

// Source yields one fresh generation per call.
type Source interface {
	Snapshot() []generator.Series
}

// Batch is one generation handed to a sink.
type Batch struct {
	Series []generator.Series
	// Resource describes the producing process.
	Resource map[string]string
	// Start is when the pusher started; counters report it as their start
	// time.
	Start time.Time
	Now   time.Time
}

// Sink delivers batches to a receiver.
type Sink interface {
	// Name labels metrics and logs, e.g. "otlp".
	Name() string
	Push(ctx context.Context, b Batch) error
	Close() error
}

// Pusher periodically generates series and hands them to a sink.
type Pusher struct {
	source   Source
	sink     Sink
	interval time.Duration
	resource map[string]string
	start    time.Time
}

// NewPusher creates a pusher. resource is passed along with every batch.
func NewPusher(source Source, sink Sink, interval time.Duration, resource map[string]string) *Pusher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Pusher{
		source:   source,
		sink:     sink,
		interval: interval,
		resource: resource,
		start:    time.Now(),
	}
}

// Run pushes once per interval until ctx is cancelled, then closes the
// sink. Failed pushes are logged and not retried; the next tick carries
// fresh values anyway.
func (p *Pusher) Run(ctx context.Context) error {
	defer func() {
		if err := p.sink.Close(); err != nil {
			logging.Warn("failed to close push sink", logging.F("sink", p.sink.Name(), "error", err.Error()))
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	logging.Info("push started", logging.F("sink", p.sink.Name(), "interval", p.interval.String()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = p.PushOnce(ctx)
		}
	}
}

// PushOnce generates and pushes one batch.
func (p *Pusher) PushOnce(ctx context.Context) error {
	name := p.sink.Name()
	began := time.Now()
	defer func() { pushDuration.WithLabelValues(name).Observe(time.Since(began).Seconds()) }()

	series := p.source.Snapshot()
	if len(series) == 0 {
		return nil
	}
	err := p.sink.Push(ctx, Batch{Series: series, Resource: p.resource, Start: p.start, Now: time.Now()})
	if err == nil {
		logging.Debug("push complete", logging.F("sink", name, "series", len(series)))
		return nil
	}

	fields := logging.F("sink", name, "series", len(series), "error", err.Error())
	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		fields["error_type"] = string(exportErr.Type)
		if exportErr.IsRetryable() {
			logging.Warn("push failed, will retry next interval", fields)
			return err
		}
	}
	logging.Error("push failed", fields)
	return err
}
