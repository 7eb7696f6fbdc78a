// Package observe provides application-wide observability primitives for
// lingvox: OpenTelemetry metrics, tracing helpers, and the Prometheus
// exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the optional /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all lingvox metrics.
const meterName = "github.com/MrWong99/lingvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// STTDuration tracks speech-to-text transcription latency per utterance.
	STTDuration metric.Float64Histogram

	// TranslationDuration tracks machine-translation latency per utterance.
	TranslationDuration metric.Float64Histogram

	// TTSDuration tracks speech-synthesis latency per utterance.
	TTSDuration metric.Float64Histogram

	// UtteranceDuration tracks the audio length of dispatched utterances.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts dispatched utterance buffers. Use with attribute:
	//   attribute.String("status", "ok"|"empty"|"error")
	Utterances metric.Int64Counter

	// FramesCaptured counts frames delivered by the audio source.
	FramesCaptured metric.Int64Counter

	// ProviderErrors counts provider failures. Use with attribute:
	//   attribute.String("kind", "stt"|"translation"|"tts")
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of captured frames awaiting segmentation.
	QueueDepth metric.Int64UpDownCounter

	// ActiveSessions tracks the number of live capture sessions (0 or 1 for
	// the CLI, kept as a gauge so embedders can run several).
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for speech-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("lingvox.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranslationDuration, err = m.Float64Histogram("lingvox.translation.duration",
		metric.WithDescription("Latency of machine translation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("lingvox.tts.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("lingvox.utterance.duration",
		metric.WithDescription("Audio length of dispatched utterance buffers."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("lingvox.utterances",
		metric.WithDescription("Total dispatched utterances by status."),
	); err != nil {
		return nil, err
	}
	if met.FramesCaptured, err = m.Int64Counter("lingvox.frames.captured",
		metric.WithDescription("Total audio frames delivered by the capture source."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lingvox.provider.errors",
		metric.WithDescription("Total provider errors by pipeline stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("lingvox.queue.depth",
		metric.WithDescription("Captured frames awaiting segmentation."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("lingvox.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordUtterance records a dispatched utterance with the given status
// ("ok", "empty", or "error").
func (m *Metrics) RecordUtterance(ctx context.Context, status string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError records a provider failure for the given pipeline stage
// ("stt", "translation", or "tts").
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
