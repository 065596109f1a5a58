package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Recorder tracks frame and step counters on a private registry so several
// instances can coexist in one process.
type Recorder struct {
	Registry *prometheus.Registry

	Frames        prometheus.Counter
	Steps         prometheus.Counter
	SkippedFrames prometheus.Counter
	Step          prometheus.Gauge
	StepDuration  prometheus.Histogram
}

// NewRecorder registers the simulation metrics, labelled with backend.
func NewRecorder(backend string) *Recorder {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"backend": backend}
	r := &Recorder{
		Registry: reg,
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "life_frames_total",
			Help:        "Display frames delivered to the animation driver",
			ConstLabels: labels,
		}),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "life_steps_total",
			Help:        "Simulation steps submitted to the device",
			ConstLabels: labels,
		}),
		SkippedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "life_frames_skipped_total",
			Help:        "Frames where the step interval had not yet elapsed",
			ConstLabels: labels,
		}),
		Step: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "life_step",
			Help:        "Current step counter",
			ConstLabels: labels,
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "life_step_duration_seconds",
			Help:        "Time spent encoding and submitting one step",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
	reg.MustRegister(r.Frames, r.Steps, r.SkippedFrames, r.Step, r.StepDuration)
	return r
}

// ObserveStep records one executed step ending at counter step.
func (r *Recorder) ObserveStep(step uint64, took time.Duration) {
	if r == nil {
		return
	}
	r.Frames.Inc()
	r.Steps.Inc()
	r.Step.Set(float64(step))
	r.StepDuration.Observe(took.Seconds())
}

// ObserveSkip records a frame that did not step.
func (r *Recorder) ObserveSkip() {
	if r == nil {
		return
	}
	r.Frames.Inc()
	r.SkippedFrames.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// NewServer builds the metrics HTTP server.
func NewServer(addr string, r *Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}

// Serve runs srv until ctx is cancelled.
func Serve(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("metrics listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
