// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DimitriGilbert/LiteChat-sub000/internal/config"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/controller"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/events"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/logging"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/metrics"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/render"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/replay"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/server"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/storage"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/store"
	"github.com/DimitriGilbert/LiteChat-sub000/internal/telemetry"
)

// =============================================================================
// APP
// =============================================================================

// App owns one engine instance: storage, bus, store and the components
// attached to them. Close releases everything in reverse order.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Metrics    *metrics.Metrics
	Bus        *events.Bus
	Gateway    storage.Gateway
	Store      *store.Store
	Controller *controller.Controller

	mu      sync.Mutex
	closers []func(context.Context) error
	closed  bool
}

// Options configures New.
type Options struct {
	// Config defaults to config.Global()
	Config *config.Config

	// LogOutput defaults to stderr
	LogOutput io.Writer

	// TraceOutput receives exported spans when tracing is enabled; defaults
	// to stderr
	TraceOutput io.Writer
}

// New wires an engine from opts. On error everything already opened is
// closed again.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Global()
	}

	log := logging.InitGlobal(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: opts.LogOutput,
	})

	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	traceOut := opts.TraceOutput
	if traceOut == nil {
		traceOut = os.Stderr
	}
	shutdown, err := telemetry.InitTracer(cfg.Tracing.Enabled, traceOut, logging.Component(log, "telemetry"))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.onClose(shutdown)

	a.Bus = events.NewBus(
		events.WithLogger(logging.Component(log, "bus")),
		events.WithObserver(func(name events.Name) { a.Metrics.EventPublished(string(name)) }),
	)

	gw, err := storage.Open(storage.Options{
		Backend: cfg.Storage.Backend,
		Path:    cfg.Storage.Path,
		DSN:     cfg.Storage.DSN,
	})
	if err != nil {
		_ = a.Close(context.Background())
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.Gateway = gw
	a.onClose(func(context.Context) error { return gw.Close() })

	a.Store = store.New(gw, a.Bus,
		store.WithLogger(logging.Component(log, "store")),
		store.WithMetrics(a.Metrics),
	)
	a.Controller = controller.New(a.Store, logging.Component(log, "controller"))
	unbind := a.Controller.Bind(context.Background(), a.Bus)
	a.onClose(func(context.Context) error { unbind(); return nil })

	log.Debug().Str("backend", cfg.Storage.Backend).Msg("engine ready")
	return a, nil
}

// onClose registers fn to run on Close, before everything registered earlier.
func (a *App) onClose(fn func(context.Context) error) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// Close stops attached components and closes storage. It is safe to call
// more than once.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// ATTACHED COMPONENTS
// =============================================================================

// Intervals returns the throttle intervals from the configured frame rates.
func (a *App) Intervals() render.Intervals {
	return render.IntervalsFromFPS(a.Config.Stream.TextFPS, a.Config.Stream.CodeFPS)
}

// NewPresenter starts a presenter delivering throttled snapshots to sink.
// It is closed with the app.
func (a *App) NewPresenter(sink func(render.Snapshot), opts ...render.PresenterOption) *render.Presenter {
	base := []render.PresenterOption{
		render.WithIntervals(a.Intervals()),
		render.WithLogger(logging.Component(a.Log, "render")),
		render.WithMetrics(a.Metrics),
	}
	p := render.NewPresenter(a.Bus, a.Store, sink, append(base, opts...)...)
	p.Start()
	a.onClose(func(context.Context) error { p.Close(); return nil })
	return p
}

// Producer returns a replay producer writing into the store at the
// configured chunk cadence.
func (a *App) Producer() *replay.Producer {
	delay := time.Duration(a.Config.UI.ReplayChunkMs) * time.Millisecond
	return replay.NewProducer(a.Store, delay, logging.Component(a.Log, "replay"))
}

// StartServer serves /metrics and /healthz when metrics are enabled. It
// returns nil, nil when they are disabled.
func (a *App) StartServer() (*server.Server, error) {
	if !a.Config.Metrics.Enabled {
		return nil, nil
	}
	srv := server.New(a.Config.Metrics.ListenAddr, a.Store, a.Metrics, logging.Component(a.Log, "server"))
	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("start metrics server: %w", err)
	}
	a.onClose(srv.Shutdown)
	return srv, nil
}

// WatchConfig reloads path on change and applies new frame rates to the
// presenters. Other settings take effect on the next start.
func (a *App) WatchConfig(ctx context.Context, path string, presenters ...*render.Presenter) error {
	w, err := config.NewWatcher(path, logging.Component(a.Log, "config"), func(cfg *config.Config) {
		iv := render.IntervalsFromFPS(cfg.Stream.TextFPS, cfg.Stream.CodeFPS)
		for _, p := range presenters {
			p.SetIntervals(iv)
		}
		config.SetGlobal(cfg)
		a.Log.Info().
			Int("text_fps", cfg.Stream.TextFPS).
			Int("code_fps", cfg.Stream.CodeFPS).
			Msg("stream rates reloaded")
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	a.onClose(func(context.Context) error { return w.Close() })
	return nil
}
