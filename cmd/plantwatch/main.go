package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plantwatch/plantwatch/internal/actuator"
	"github.com/plantwatch/plantwatch/internal/alertstate"
	"github.com/plantwatch/plantwatch/internal/api"
	"github.com/plantwatch/plantwatch/internal/auth"
	"github.com/plantwatch/plantwatch/internal/config"
	"github.com/plantwatch/plantwatch/internal/engine"
	"github.com/plantwatch/plantwatch/internal/history"
	"github.com/plantwatch/plantwatch/internal/metrics"
	"github.com/plantwatch/plantwatch/internal/notify"
	"github.com/plantwatch/plantwatch/internal/telemetry"
	"github.com/plantwatch/plantwatch/internal/ws"
	"github.com/plantwatch/plantwatch/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (.yaml or .toml)")
	flag.Parse()

	level := new(slog.LevelVar)
	slog.SetDefault(newLogger(os.Stdout, "json", level))

	slog.Info("plantwatch starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log.Format, level))
	setLevel(level, cfg.Log.Level)

	slog.Info("config loaded",
		"telemetry_type", cfg.Telemetry.Type,
		"telemetry_endpoint", cfg.Telemetry.Endpoint,
		"poll_interval", cfg.Telemetry.PollInterval,
		"actuator_endpoint", cfg.Actuator.Endpoint,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hot-reload only adjusts the log level; everything else needs a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			setLevel(level, updated.Log.Level)
			slog.Info("config hot-reloaded", "log_level", updated.Log.Level)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	reg := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(reg); err != nil {
		slog.Error("failed to register metrics", "err", err)
		os.Exit(1)
	}

	provider, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		slog.Error("failed to build telemetry provider", "err", err)
		os.Exit(1)
	}
	src := telemetry.NewSource(provider,
		telemetry.WithInterval(cfg.Telemetry.PollInterval.Std()),
		telemetry.WithTimeout(cfg.Telemetry.Timeout.Std()),
		telemetry.WithObserver(m.ObservePoll),
	)

	act, err := actuator.NewFromConfig(cfg.Actuator)
	if err != nil {
		slog.Error("failed to build actuator client", "err", err)
		os.Exit(1)
	}
	disp := actuator.NewDispatcher(act,
		actuator.WithTimeout(cfg.Actuator.Timeout.Std()),
		actuator.WithObserver(m.ObserveActuation),
	)

	notifier, err := notify.New(cfg.Alerts)
	if err != nil {
		slog.Error("failed to build alert notifiers", "err", err)
		os.Exit(1)
	}
	defer notifier.Close()
	slog.Info("alert notifiers ready", "sinks", notifier.Len())

	alerts := alertstate.New(alertstate.Options{
		MaxVisible:  cfg.Alerts.MaxVisible,
		ActionGrace: cfg.Alerts.ActionGrace.Std(),
		OnSurface: func(surfaced []types.Alert) {
			m.ObserveSurfaced(surfaced)
			notifier.Surface(surfaced)
		},
	})

	// The hub reads from the engine, so it is bound after construction. No
	// change fires before eng.Run starts the source.
	var hub *ws.Hub
	eng := engine.New(src, disp, alerts,
		engine.WithHistory(history.New(cfg.Telemetry.HistorySize, cfg.Telemetry.HistoryRetention.Std())),
		engine.OnSnapshot(m.ObserveSnapshot),
		engine.OnChange(m.ObserveView),
		engine.OnChange(func(v types.View) { hub.Notify(v) }),
	)
	hub = ws.New(eng, cfg.Server.StreamInterval.Std())

	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()
	go hub.Run(ctx)

	requireKey := auth.APIKey(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(eng, src, requireKey))
	httpMux.Handle("/ws/stream", requireKey(hub))
	httpMux.Handle("/metrics", metrics.Handler(reg))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("plantwatch shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
	<-done
	notifier.Wait()
}

func newLogger(w io.Writer, format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func setLevel(v *slog.LevelVar, name string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		slog.Warn("ignoring unknown log level", "level", name)
		return
	}
	v.Set(l)
}
