package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice assistant service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Inbound gateway events
	InboundEvents *prometheus.CounterVec

	// Conversation turns
	Turns        *prometheus.CounterVec
	TurnDuration *prometheus.HistogramVec

	// Session store
	ActiveSessions  prometheus.Gauge
	SessionsEvicted prometheus.Counter

	// Transcoder invocations
	TranscoderRuns     *prometheus.CounterVec
	TranscoderFailures *prometheus.CounterVec
	TranscoderDuration *prometheus.HistogramVec

	// Speech synthesis
	SynthesisChunks   prometheus.Counter
	SynthesisSegments prometheus.Counter
	SynthesisFailures prometheus.Counter
	SynthesisDuration prometheus.Histogram
	ArtifactDuration  prometheus.Histogram

	// Transcription
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionRetries   prometheus.Counter
	TranscriptionFallbacks prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Translation
	TranslationRequests  prometheus.Counter
	TranslationFallbacks prometheus.Counter

	// Outbound replies
	RepliesSent   *prometheus.CounterVec
	ReplyFailures prometheus.Counter

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		InboundEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_inbound_events_total",
			Help: "Total number of inbound gateway events by media kind",
		}, []string{"kind"}),

		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_turns_total",
			Help: "Total number of conversation turns by kind and outcome",
		}, []string{"kind", "outcome"}),
		TurnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rxvoice_turn_duration_seconds",
			Help:    "Duration of conversation turns",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2 minutes
		}, []string{"kind"}),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "rxvoice_active_sessions",
			Help: "Current number of conversation sessions held in memory",
		}),
		SessionsEvicted: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_sessions_evicted_total",
			Help: "Total number of sessions evicted for idleness or capacity",
		}),

		TranscoderRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_transcoder_runs_total",
			Help: "Total number of external transcoder invocations by stage",
		}, []string{"stage"}),
		TranscoderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_transcoder_failures_total",
			Help: "Total number of failed transcoder invocations by stage",
		}, []string{"stage"}),
		TranscoderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rxvoice_transcoder_duration_seconds",
			Help:    "Duration of transcoder invocations",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		}, []string{"stage"}),

		SynthesisChunks: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_synthesis_chunks_total",
			Help: "Total number of text chunks sent to the TTS service",
		}),
		SynthesisSegments: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_synthesis_segments_total",
			Help: "Total number of audio segments produced by the TTS service",
		}),
		SynthesisFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_synthesis_failures_total",
			Help: "Total number of aborted speech syntheses",
		}),
		SynthesisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rxvoice_synthesis_duration_seconds",
			Help:    "Duration of complete speech syntheses",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
		ArtifactDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rxvoice_artifact_audio_seconds",
			Help:    "Playback length of assembled audio artifacts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 9), // 1s to ~4 minutes
		}),

		TranscriptionRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),
		TranscriptionFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_transcription_fallbacks_total",
			Help: "Total number of turns that used the fallback transcript",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rxvoice_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),

		TranslationRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_translation_requests_total",
			Help: "Total number of translation requests",
		}),
		TranslationFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_translation_fallbacks_total",
			Help: "Total number of translations that fell back to the source text",
		}),

		RepliesSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_replies_sent_total",
			Help: "Total number of outbound replies by type",
		}, []string{"type"}),
		ReplyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rxvoice_reply_failures_total",
			Help: "Total number of outbound replies the gateway rejected",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rxvoice_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rxvoice_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordInboundEvent increments the inbound events counter
func (m *Metrics) RecordInboundEvent(kind string) {
	if m == nil {
		return
	}
	m.InboundEvents.WithLabelValues(kind).Inc()
}

// RecordTurn records a completed conversation turn
func (m *Metrics) RecordTurn(kind, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(kind, outcome).Inc()
	m.TurnDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// SetActiveSessions sets the current number of sessions
func (m *Metrics) SetActiveSessions(count int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionEvicted increments the evicted sessions counter
func (m *Metrics) RecordSessionEvicted() {
	if m == nil {
		return
	}
	m.SessionsEvicted.Inc()
}

// RecordTranscoderRun records one transcoder invocation
func (m *Metrics) RecordTranscoderRun(stage string, failed bool, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscoderRuns.WithLabelValues(stage).Inc()
	if failed {
		m.TranscoderFailures.WithLabelValues(stage).Inc()
	}
	m.TranscoderDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordSynthesisChunk records one TTS call and the segments it produced
func (m *Metrics) RecordSynthesisChunk(segments int) {
	if m == nil {
		return
	}
	m.SynthesisChunks.Inc()
	m.SynthesisSegments.Add(float64(segments))
}

// RecordSynthesis records a finished synthesis
func (m *Metrics) RecordSynthesis(failed bool, durationSeconds float64) {
	if m == nil {
		return
	}
	if failed {
		m.SynthesisFailures.Inc()
	}
	m.SynthesisDuration.Observe(durationSeconds)
}

// RecordArtifact records the playback length of an assembled artifact
func (m *Metrics) RecordArtifact(audioSeconds float64) {
	if m == nil {
		return
	}
	m.ArtifactDuration.Observe(audioSeconds)
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	if m == nil {
		return
	}
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	if m == nil {
		return
	}
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	if m == nil {
		return
	}
	m.TranscriptionRetries.Inc()
}

// RecordTranscriptionFallback increments the fallback transcript counter
func (m *Metrics) RecordTranscriptionFallback() {
	if m == nil {
		return
	}
	m.TranscriptionFallbacks.Inc()
}

// RecordTranslation records a translation and whether it fell back
func (m *Metrics) RecordTranslation(fellBack bool) {
	if m == nil {
		return
	}
	m.TranslationRequests.Inc()
	if fellBack {
		m.TranslationFallbacks.Inc()
	}
}

// RecordReply records an outbound reply
func (m *Metrics) RecordReply(replyType string, failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.ReplyFailures.Inc()
		return
	}
	m.RepliesSent.WithLabelValues(replyType).Inc()
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
