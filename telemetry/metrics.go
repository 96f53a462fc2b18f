// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesIngested *prometheus.CounterVec // by platform
	MessagesRelayed  *prometheus.CounterVec // by source platform
	CommandsHandled  prometheus.Counter
	AICalls          prometheus.Counter
	AIFailures       prometheus.Counter
	TTSJobsEnqueued  prometheus.Counter
	TTSJobsFailed    prometheus.Counter
	TTSJobsWritten   prometheus.Counter

	// Histograms (seconds)
	AIReplyDuration  prometheus.Observer
	TTSSynthDuration prometheus.Observer
	TTSQueueWait     prometheus.Observer

	// Gauges
	TTSQueueDepth prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{Name: "sharkbot_messages_ingested_total", Help: "Chat messages ingested"}, []string{"platform"})
		MessagesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "sharkbot_messages_relayed_total", Help: "Chat messages relayed across platforms"}, []string{"source"})
		CommandsHandled = promauto.NewCounter(prometheus.CounterOpts{Name: "sharkbot_commands_handled_total", Help: "Chat commands handled"})
		AICalls = promauto.NewCounter(prometheus.CounterOpts{Name: "sharkbot_ai_calls_total", Help: "AI responder invocations"})
		AIFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "sharkbot_ai_failures_total", Help: "AI responder failures"})
		TTSJobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{Name: "sharkbot_tts_jobs_enqueued_total", Help: "TTS jobs enqueued"})
		TTSJobsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "sharkbot_tts_jobs_failed_total", Help: "TTS jobs failed after retries"})
		TTSJobsWritten = promauto.NewCounter(prometheus.CounterOpts{Name: "sharkbot_tts_jobs_written_total", Help: "TTS audio files written"})
		AIReplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "sharkbot_ai_reply_duration_seconds", Help: "AI reply latency seconds", Buckets: prometheus.DefBuckets})
		TTSSynthDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "sharkbot_tts_synth_duration_seconds", Help: "TTS synthesis duration seconds", Buckets: prometheus.DefBuckets})
		TTSQueueWait = promauto.NewHistogram(prometheus.HistogramOpts{Name: "sharkbot_tts_queue_wait_seconds", Help: "Time a TTS job waits behind prior playback", Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60}})
		TTSQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "sharkbot_tts_queue_depth", Help: "Queued TTS jobs not yet synthesized"})
	})
}

// SetTTSQueueDepth records the current queue backlog.
func SetTTSQueueDepth(n int) {
	if TTSQueueDepth != nil {
		TTSQueueDepth.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
