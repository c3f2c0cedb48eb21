package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prabalesh/droidinsight/internal/models"
)

// Recorder exports device readings and background job outcomes.
type Recorder struct {
	registry *prometheus.Registry

	batteryLevel    prometheus.Gauge
	batteryCharging prometheus.Gauge
	batteryTemp     prometheus.Gauge
	ramUsage        prometheus.Gauge
	storageUsage    prometheus.Gauge
	downloadRate    prometheus.Gauge
	uploadRate      prometheus.Gauge
	jobRuns         *prometheus.CounterVec
	jobFailures     *prometheus.CounterVec
	cacheErrors     prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		batteryLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_battery_level_percent",
			Help: "Battery charge level.",
		}),
		batteryCharging: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_battery_charging",
			Help: "1 while the battery is charging or full.",
		}),
		batteryTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_battery_temperature_celsius",
			Help: "Battery temperature.",
		}),
		ramUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_ram_usage_ratio",
			Help: "Used RAM over total RAM.",
		}),
		storageUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_storage_usage_ratio",
			Help: "Used storage over total storage.",
		}),
		downloadRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_download_bytes_per_second",
			Help: "Current download throughput.",
		}),
		uploadRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "droidinsight_upload_bytes_per_second",
			Help: "Current upload throughput.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "droidinsight_job_attempts_total",
			Help: "Background job attempts by outcome.",
		}, []string{"job", "result"}),
		jobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "droidinsight_job_failures_total",
			Help: "Background jobs that exhausted their retries.",
		}, []string{"job"}),
		cacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "droidinsight_usage_cache_errors_total",
			Help: "Failed usage cache writes.",
		}),
	}

	r.registry.MustRegister(
		r.batteryLevel, r.batteryCharging, r.batteryTemp,
		r.ramUsage, r.storageUsage,
		r.downloadRate, r.uploadRate,
		r.jobRuns, r.jobFailures, r.cacheErrors,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveBattery(info models.BatteryInfo) {
	r.batteryLevel.Set(float64(info.Level))
	r.batteryTemp.Set(info.Temperature)
	if info.IsCharging {
		r.batteryCharging.Set(1)
	} else {
		r.batteryCharging.Set(0)
	}
}

func (r *Recorder) ObserveSystem(info models.SystemInfo) {
	r.ramUsage.Set(info.RAMUsagePercent())
	r.storageUsage.Set(info.StorageUsagePercent())
}

func (r *Recorder) ObserveNetwork(rate models.NetworkRate) {
	r.downloadRate.Set(float64(rate.DownloadSpeed))
	r.uploadRate.Set(float64(rate.UploadSpeed))
}

// JobAttempt matches worker.Hooks.OnAttempt.
func (r *Recorder) JobAttempt(name string, _ int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.jobRuns.WithLabelValues(name, result).Inc()
}

// JobFailure matches worker.Hooks.OnFailure.
func (r *Recorder) JobFailure(name string, _ error) {
	r.jobFailures.WithLabelValues(name).Inc()
}

func (r *Recorder) CacheError(error) {
	r.cacheErrors.Inc()
}

// Handler serves /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
