package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prabalesh/droidinsight/internal/collector"
	"github.com/prabalesh/droidinsight/internal/config"
	"github.com/prabalesh/droidinsight/internal/metrics"
	"github.com/prabalesh/droidinsight/internal/models"
	"github.com/prabalesh/droidinsight/internal/store"
	"github.com/prabalesh/droidinsight/internal/stream"
	"github.com/prabalesh/droidinsight/internal/usage"
	"github.com/prabalesh/droidinsight/internal/widget"
	"github.com/prabalesh/droidinsight/internal/worker"
)

// runtime wires the collectors, shared streams and background work for the
// long-running commands.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	collector *collector.StatsCollector
	battery   *stream.Shared[models.BatteryInfo]
	system    *stream.Shared[models.SystemInfo]
	network   *stream.Shared[models.NetworkRate]

	names     *usage.NameResolver
	ranker    *usage.Ranker
	widget    *widget.Widget
	scheduler *worker.Scheduler
	metrics   *metrics.Recorder

	closeStore func()
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewRecorder(),
	}

	rt.collector = collector.NewStatsCollector(collector.Options{
		StoragePath:     cfg.StoragePath,
		PowerSupplyPath: cfg.PowerSupplyPath,
		Logger:          logger,
	})
	sampler := collector.NewSampler(collector.IOCounterSource{}, cfg.Intervals.Network)

	rt.battery = stream.NewShared(models.NewBatteryInfo(), cfg.StreamGrace, func(ctx context.Context) <-chan models.BatteryInfo {
		return rt.collector.ObserveBattery(ctx, cfg.Intervals.Battery)
	})
	rt.system = stream.NewShared(models.NewSystemInfo(), cfg.StreamGrace, func(ctx context.Context) <-chan models.SystemInfo {
		return rt.collector.WatchSystemInfo(ctx, cfg.Intervals.System)
	})
	rt.network = stream.NewShared(models.NetworkRate{}, cfg.StreamGrace, sampler.Observe)

	ranker, closeStore, err := newRanker(ctx, cfg, logger, rt.metrics.CacheError)
	if err != nil {
		return nil, err
	}
	rt.ranker, rt.names, rt.closeStore = ranker, ranker.Names, closeStore

	rt.widget = widget.New(cfg.Widget.StateFile, cfg.Widget.OutputFile, rt.collector, logger)

	rt.scheduler = worker.NewScheduler(logger)
	rt.scheduler.Interval = cfg.Intervals.Widget
	rt.scheduler.MaxRetries = cfg.Retries()
	rt.scheduler.Backoff = cfg.Job.Backoff
	rt.scheduler.Hooks = worker.Hooks{
		OnAttempt: rt.metrics.JobAttempt,
		OnFailure: rt.metrics.JobFailure,
	}
	return rt, nil
}

// newRanker builds the usage pipeline. A cache that cannot be opened is
// logged and skipped; ranking works without it.
func newRanker(ctx context.Context, cfg *config.Config, logger *slog.Logger, onCacheError func(error)) (*usage.Ranker, func(), error) {
	source, err := usage.NewSource(cfg.Usage.Source)
	if err != nil {
		return nil, nil, err
	}

	ranker := &usage.Ranker{
		Source:       source,
		Names:        usage.NewNameResolver(cfg.Usage.AppNames),
		Icons:        usage.IconResolver{Dir: cfg.Usage.IconDir},
		Logger:       logger,
		OnCacheError: onCacheError,
	}

	closeStore := func() {}
	if cfg.CacheEnabled() {
		s, err := store.Open(ctx, cfg.Cache.Driver, cfg.Cache.DSN)
		if err != nil {
			logger.Warn("usage cache unavailable", "driver", cfg.Cache.Driver, "error", err)
		} else {
			ranker.Store = s
			closeStore = func() {
				if err := s.Close(); err != nil {
					logger.Warn("close usage cache", "error", err)
				}
			}
		}
	}
	return ranker, closeStore, nil
}

func newWidget(cfg *config.Config, logger *slog.Logger) *widget.Widget {
	c := collector.NewStatsCollector(collector.Options{
		StoragePath:     cfg.StoragePath,
		PowerSupplyPath: cfg.PowerSupplyPath,
		Logger:          logger,
	})
	return widget.New(cfg.Widget.StateFile, cfg.Widget.OutputFile, c, logger)
}

// startBackground schedules the widget job, which also runs once right away,
// and serves metrics with live device gauges when an address is configured.
func (rt *runtime) startBackground(ctx context.Context) {
	rt.scheduler.Schedule(ctx, worker.WidgetJob{Widget: rt.widget})

	if rt.cfg.Metrics.Addr != "" {
		go rt.exportReadings(ctx)
		go func() {
			if err := rt.metrics.Serve(ctx, rt.cfg.Metrics.Addr, rt.logger); err != nil {
				rt.logger.Error("metrics server exited", "error", err)
			}
		}()
	}
}

// watchConfig reloads app name labels when the config file changes.
func (rt *runtime) watchConfig(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	w, err := config.NewWatcher(path, config.DefaultWatchDebounce,
		func(cfg *config.Config) {
			rt.names.SetLabels(cfg.Usage.AppNames)
			rt.logger.Info("config reloaded", "app_names", len(cfg.Usage.AppNames))
		},
		func(err error) {
			rt.logger.Warn("config reload failed", "error", err)
		},
	)
	if err != nil {
		rt.logger.Warn("config watch disabled", "error", err)
		return
	}
	go w.Run(ctx)
}

// exportReadings keeps the device gauges current for the metrics endpoint.
func (rt *runtime) exportReadings(ctx context.Context) {
	battery := rt.battery.Subscribe()
	system := rt.system.Subscribe()
	network := rt.network.Subscribe()
	defer battery.Close()
	defer system.Close()
	defer network.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-battery.C:
			if ok {
				rt.metrics.ObserveBattery(v)
			}
		case v, ok := <-system.C:
			if ok {
				rt.metrics.ObserveSystem(v)
			}
		case v, ok := <-network.C:
			if ok {
				rt.metrics.ObserveNetwork(v)
			}
		}
	}
}

func (rt *runtime) Close() {
	rt.battery.Close()
	rt.system.Close()
	rt.network.Close()
	rt.closeStore()
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

func newFileLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := newLogger(cfg, f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, func() { f.Close() }, nil
}
