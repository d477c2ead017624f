package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"golang.org/x/sync/errgroup"

	"github.com/szibis/mock-exporter/internal/config"
	"github.com/szibis/mock-exporter/internal/engine"
	"github.com/szibis/mock-exporter/internal/exporter"
	"github.com/szibis/mock-exporter/internal/health"
	"github.com/szibis/mock-exporter/internal/logging"
	"github.com/szibis/mock-exporter/internal/server"
	"github.com/szibis/mock-exporter/internal/telemetry"
	tlscfg "github.com/szibis/mock-exporter/internal/tls"
	"github.com/szibis/mock-exporter/internal/watcher"
)

const serviceName = "mock-exporter"

func main() {
	cfg := config.ParseFlags()

	if cfg.ShowHelp {
		config.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	if cfg.ShowVersion {
		config.PrintVersion()
		os.Exit(0)
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	hostname, _ := os.Hostname()
	resource := map[string]string{
		"service.name":    serviceName,
		"service.version": config.Version(),
		"host.name":       hostname,
	}
	logging.SetResource(resource)

	if err := cfg.Validate(); err != nil {
		logging.Fatal("invalid configuration", logging.F("error", err.Error()))
	}

	if cfg.MemoryLimitRatio > 0 {
		limit, err := memlimit.SetGoMemLimitWithOpts(
			memlimit.WithRatio(cfg.MemoryLimitRatio),
			memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
		)
		if err != nil {
			logging.Warn("failed to set memory limit", logging.F("error", err.Error()))
		} else if limit > 0 {
			logging.Info("memory limit set", logging.F("gomemlimit_bytes", limit, "ratio", cfg.MemoryLimitRatio))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, cfg.TelemetryConfig(), telemetry.Service{
		Name:       serviceName,
		Version:    config.Version(),
		Attributes: map[string]string{"host.name": hostname},
	})
	if err != nil {
		logging.Fatal("failed to initialize telemetry", logging.F("error", err.Error()))
	}
	if tel.Enabled() {
		logging.SetHook(tel.NewLogHook())
		logging.Info("OTLP self-telemetry enabled", logging.F(
			"endpoint", cfg.TelemetryEndpoint,
			"protocol", cfg.TelemetryProtocol,
		))
	}

	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		logging.Fatal("failed to create engine", logging.F("error", err.Error()))
	}
	// A missing directory at startup is not fatal; readiness reports it
	// until a later refresh succeeds.
	_ = eng.Refresh(true)

	checker := health.New()
	checker.RegisterReadiness("catalog", eng.Ready)

	srvCfg := cfg.ServerConfig()
	if srvCfg.TLS, err = tlscfg.NewServerConfig(cfg.ServerTLSConfig()); err != nil {
		logging.Fatal("failed to load TLS configuration", logging.F("error", err.Error()))
	}
	srv := server.New(srvCfg, eng, checker)
	ln, err := srv.Listen()
	if err != nil {
		logging.Fatal("failed to listen", logging.F("addr", cfg.ListenAddr, "error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		logging.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Watch {
		w, err := watcher.New(cfg.WatcherConfig(), eng.Refresh)
		if err != nil {
			logging.Warn("fixture watcher disabled", logging.F("dir", cfg.MetricsDir, "error", err.Error()))
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	if cfg.PushEnabled() {
		exp, err := exporter.New(cfg.ExporterConfig())
		if err != nil {
			logging.Fatal("failed to create OTLP exporter", logging.F("error", err.Error()))
		}
		pusher := exporter.NewPusher(eng, exp, cfg.PushInterval, resource)
		g.Go(func() error { return pusher.Run(gctx) })
	}

	if cfg.RemoteWriteEnabled() {
		rw, err := exporter.NewRemoteWrite(cfg.RemoteWriteConfig())
		if err != nil {
			logging.Fatal("failed to create remote write exporter", logging.F("error", err.Error()))
		}
		pusher := exporter.NewPusher(eng, rw, cfg.RemoteWriteInterval, resource)
		g.Go(func() error { return pusher.Run(gctx) })
	}

	metrics, series, _ := eng.Stats()
	logging.Info("mock-exporter started", logging.F(
		"version", config.Version(),
		"addr", ln.Addr().String(),
		"tls", srvCfg.TLS != nil,
		"metrics_dir", eng.Dir(),
		"metrics", metrics,
		"series", series,
		"watch", cfg.Watch,
		"push_endpoint", cfg.PushEndpoint,
		"remote_write_url", cfg.RemoteWriteURL,
	))

	err = g.Wait()

	if tel.Enabled() {
		logging.SetHook(nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tel.ShutdownTimeout())
		if serr := tel.Shutdown(shutdownCtx); serr != nil {
			logging.Warn("telemetry shutdown error", logging.F("error", serr.Error()))
		}
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal("server error", logging.F("error", err.Error()))
	}
	logging.Info("shutdown complete")
}
