// Package observe provides application-wide observability primitives for
// CutForge: OpenTelemetry metrics, tracing, structured logging helpers, and
// HTTP middleware for the metrics endpoint.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the standard /metrics endpoint during long batch runs. A
// package-level default [Metrics] instance ([DefaultMetrics]) is provided
// for convenience; tests should use [NewMetrics] with a custom
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all CutForge metrics.
const meterName = "github.com/cutforge/cutforge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// VADDuration tracks voice activity detection time per recording.
	VADDuration metric.Float64Histogram

	// STTDuration tracks transcription time per chunk.
	STTDuration metric.Float64Histogram

	// MarkerDuration tracks LLM cut selection latency per recording.
	MarkerDuration metric.Float64Histogram

	// AlignDuration tracks forced alignment time per recording.
	AlignDuration metric.Float64Histogram

	// SpliceDuration tracks splice synthesis time per cut.
	SpliceDuration metric.Float64Histogram

	// --- Counters ---

	// CutsDetected counts cut runs produced by resynchronisation.
	CutsDetected metric.Int64Counter

	// CutsWritten counts datapoints written to the dataset. Use with
	// attribute: attribute.Bool("usable", ...)
	CutsWritten metric.Int64Counter

	// CutsSkipped counts cuts dropped before writing. Use with attribute:
	//   attribute.String("reason", ...)
	CutsSkipped metric.Int64Counter

	// ResyncWarnings counts tokens and words discarded during
	// resynchronisation. Use with attribute:
	//   attribute.String("kind", "token"|"word")
	ResyncWarnings metric.Int64Counter

	// Recordings counts processed recordings. Use with attribute:
	//   attribute.String("status", "ok"|"failed")
	Recordings metric.Int64Counter

	// --- Gauges ---

	// ActiveRecordings tracks recordings currently in flight.
	ActiveRecordings metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time on the
	// metrics endpoint. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// stageBuckets defines histogram bucket boundaries in seconds. Stages range
// from sub-second VAD passes to multi-minute alignment runs.
var stageBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.VADDuration, err = m.Float64Histogram("cutforge.vad.duration",
		metric.WithDescription("Time spent detecting speech segments per recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("cutforge.stt.duration",
		metric.WithDescription("Time spent transcribing one chunk."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.MarkerDuration, err = m.Float64Histogram("cutforge.marker.duration",
		metric.WithDescription("LLM cut selection latency per recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignDuration, err = m.Float64Histogram("cutforge.align.duration",
		metric.WithDescription("Forced alignment time per recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpliceDuration, err = m.Float64Histogram("cutforge.splice.duration",
		metric.WithDescription("Splice synthesis time per cut."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CutsDetected, err = m.Int64Counter("cutforge.cuts.detected",
		metric.WithDescription("Cut runs produced by resynchronisation."),
	); err != nil {
		return nil, err
	}
	if met.CutsWritten, err = m.Int64Counter("cutforge.cuts.written",
		metric.WithDescription("Datapoints written to the dataset, by usability."),
	); err != nil {
		return nil, err
	}
	if met.CutsSkipped, err = m.Int64Counter("cutforge.cuts.skipped",
		metric.WithDescription("Cuts dropped before writing, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ResyncWarnings, err = m.Int64Counter("cutforge.resync.warnings",
		metric.WithDescription("Tokens and words discarded during resynchronisation."),
	); err != nil {
		return nil, err
	}
	if met.Recordings, err = m.Int64Counter("cutforge.recordings",
		metric.WithDescription("Processed recordings by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRecordings, err = m.Int64UpDownCounter("cutforge.active_recordings",
		metric.WithDescription("Recordings currently being processed."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("cutforge.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCutWritten records a written datapoint with its usability flag.
func (m *Metrics) RecordCutWritten(ctx context.Context, usable bool) {
	m.CutsWritten.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("usable", usable)),
	)
}

// RecordCutSkipped records a cut dropped before writing.
func (m *Metrics) RecordCutSkipped(ctx context.Context, reason string) {
	m.CutsSkipped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordResyncWarnings records the token and word drop counts from one
// resynchronisation pass.
func (m *Metrics) RecordResyncWarnings(ctx context.Context, tokens, words int) {
	if tokens > 0 {
		m.ResyncWarnings.Add(ctx, int64(tokens),
			metric.WithAttributes(attribute.String("kind", "token")),
		)
	}
	if words > 0 {
		m.ResyncWarnings.Add(ctx, int64(words),
			metric.WithAttributes(attribute.String("kind", "word")),
		)
	}
}

// RecordRecording records a completed recording with its final status.
func (m *Metrics) RecordRecording(ctx context.Context, status string) {
	m.Recordings.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
