package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the effect box. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Cycle metrics
	Cycles       prometheus.Counter
	SilentCycles prometheus.Counter
	EngineState  prometheus.Gauge
	CycleLength  prometheus.Histogram

	// Capture metrics
	ChunksRead     prometheus.Counter
	ActiveChunks   prometheus.Counter
	CaptureErrors  prometheus.Counter
	CaptureSamples prometheus.Histogram

	// Detector metrics
	DetectorActiveCount prometheus.Histogram

	// Compression metrics
	CompressedSamples prometheus.Histogram

	// Playback metrics
	PlaybackAttempts prometheus.Counter
	PlaybackRetries  prometheus.Counter
	PlaybackFailures prometheus.Counter
	PlaybackDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Cycle metrics
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_cycles_total",
			Help: "Total number of capture cycles started",
		}),
		SilentCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_silent_cycles_total",
			Help: "Total number of cycles whose first chunk was already silent",
		}),
		EngineState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chatterdog_engine_state",
			Help: "Current engine state (0 idle, 1 capturing, 2 compressing, 3 playing)",
		}),
		CycleLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatterdog_cycle_duration_seconds",
			Help:    "Wall-clock duration of a full capture/compress/play cycle",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		}),

		// Capture metrics
		ChunksRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_chunks_read_total",
			Help: "Total number of chunks read from the capture device",
		}),
		ActiveChunks: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_active_chunks_total",
			Help: "Total number of chunks classified as active",
		}),
		CaptureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_capture_errors_total",
			Help: "Total number of failed or short capture reads",
		}),
		CaptureSamples: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatterdog_capture_samples",
			Help:    "Number of active samples captured per cycle",
			Buckets: prometheus.ExponentialBuckets(15000, 2, 6), // one chunk to ~480k samples
		}),

		// Detector metrics
		DetectorActiveCount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatterdog_detector_active_count",
			Help:    "Samples above threshold per evaluated chunk",
			Buckets: prometheus.ExponentialBuckets(10, 4, 7), // 10 to ~40k
		}),

		// Compression metrics
		CompressedSamples: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatterdog_compressed_samples",
			Help:    "Number of samples produced by compression per cycle",
			Buckets: prometheus.ExponentialBuckets(10000, 2, 6),
		}),

		// Playback metrics
		PlaybackAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_playback_attempts_total",
			Help: "Total number of playback writes attempted",
		}),
		PlaybackRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_playback_retries_total",
			Help: "Total number of playback writes retried after a failure",
		}),
		PlaybackFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatterdog_playback_failures_total",
			Help: "Total number of playbacks abandoned after all retries failed",
		}),
		PlaybackDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chatterdog_playback_duration_seconds",
			Help:    "Time spent writing compressed bursts to the playback device",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~13s
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatterdog_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chatterdog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatterdog_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordCycleStarted increments the cycle counter
func (m *Metrics) RecordCycleStarted() {
	if m == nil {
		return
	}
	m.Cycles.Inc()
}

// RecordCycleFinished records the duration of a cycle and whether it was silent
func (m *Metrics) RecordCycleFinished(durationSeconds float64, silent bool) {
	if m == nil {
		return
	}
	if silent {
		m.SilentCycles.Inc()
	}
	m.CycleLength.Observe(durationSeconds)
}

// SetEngineState sets the current engine state gauge
func (m *Metrics) SetEngineState(state int) {
	if m == nil {
		return
	}
	m.EngineState.Set(float64(state))
}

// RecordChunk records one chunk read and its detection outcome
func (m *Metrics) RecordChunk(active bool, activeCount int) {
	if m == nil {
		return
	}
	m.ChunksRead.Inc()
	if active {
		m.ActiveChunks.Inc()
	}
	m.DetectorActiveCount.Observe(float64(activeCount))
}

// RecordCaptureError increments the capture error counter
func (m *Metrics) RecordCaptureError() {
	if m == nil {
		return
	}
	m.CaptureErrors.Inc()
}

// RecordCapture records the number of active samples captured in a cycle
func (m *Metrics) RecordCapture(samples int) {
	if m == nil {
		return
	}
	m.CaptureSamples.Observe(float64(samples))
}

// RecordCompression records the length produced by the compressor
func (m *Metrics) RecordCompression(samples int) {
	if m == nil {
		return
	}
	m.CompressedSamples.Observe(float64(samples))
}

// RecordPlaybackAttempt increments the playback attempt counter
func (m *Metrics) RecordPlaybackAttempt() {
	if m == nil {
		return
	}
	m.PlaybackAttempts.Inc()
}

// RecordPlaybackRetry increments the playback retry counter
func (m *Metrics) RecordPlaybackRetry() {
	if m == nil {
		return
	}
	m.PlaybackRetries.Inc()
}

// RecordPlaybackFinished records playback duration and final outcome
func (m *Metrics) RecordPlaybackFinished(durationSeconds float64, failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.PlaybackFailures.Inc()
	}
	m.PlaybackDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
