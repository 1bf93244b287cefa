package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"stocknotifier/internal/domain/valueobject"
)

// Metric names following OpenTelemetry semantic conventions.
const (
	RetryAttemptCounterName        = "retry_attempt_total"
	RetrySuccessCounterName        = "retry_success_total"
	RetryExhaustionCounterName     = "retry_exhaustion_total"
	RetryDelayHistogramName        = "retry_delay_seconds"
	RetryOperationDurationHistName = "retry_operation_duration_seconds"
)

// Common attribute keys for consistent labeling.
const (
	AttrRetryOperation = "retry_operation"
	AttrRetryAttempt   = "retry_attempt"
	AttrErrorKind      = "error_kind"
	AttrRetryInstance  = "instance_id"
)

// getRetryDelayBuckets returns bucket boundaries for retry backoff delays.
// Covers immediate retries up to the rate-limit ceiling (0 to 5min range).
func getRetryDelayBuckets() []float64 {
	return []float64{
		0.1,   // 100ms
		0.5,   // 500ms
		1.0,   // 1s
		2.0,   // 2s
		5.0,   // 5s
		15.0,  // 15s
		60.0,  // 1min
		120.0, // 2min
		300.0, // 5min
	}
}

// getRetryDurationBuckets returns bucket boundaries for whole retried
// operations, including backoff sleeps (10ms to 10min range).
func getRetryDurationBuckets() []float64 {
	return []float64{
		0.01,  // 10ms
		0.1,   // 100ms
		1.0,   // 1s
		5.0,   // 5s
		30.0,  // 30s
		60.0,  // 1min
		300.0, // 5min
		600.0, // 10min
	}
}

// RetryMetrics provides OpenTelemetry-based metrics collection for retried
// operations.
type RetryMetrics struct {
	attemptCounter    metric.Int64Counter
	successCounter    metric.Int64Counter
	exhaustionCounter metric.Int64Counter
	delayHistogram    metric.Float64Histogram
	durationHistogram metric.Float64Histogram

	instanceID       string
	baseInstanceAttr attribute.KeyValue
}

// NewRetryMetrics creates a retry metrics collector using the default global
// meter provider.
func NewRetryMetrics(instanceID string) (*RetryMetrics, error) {
	if instanceID == "" {
		return nil, errors.New("instance ID cannot be empty")
	}
	return NewRetryMetricsWithProvider(instanceID, otel.GetMeterProvider())
}

// NewRetryMetricsWithProvider creates a retry metrics collector with a
// specific meter provider.
func NewRetryMetricsWithProvider(instanceID string, provider metric.MeterProvider) (*RetryMetrics, error) {
	if instanceID == "" {
		return nil, errors.New("instance ID cannot be empty")
	}

	meter := provider.Meter("stocknotifier/service", metric.WithInstrumentationVersion("1.0.0"))

	attemptCounter, err := meter.Int64Counter(
		RetryAttemptCounterName,
		metric.WithDescription("Total number of failed operation attempts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	successCounter, err := meter.Int64Counter(
		RetrySuccessCounterName,
		metric.WithDescription("Total number of operations that eventually succeeded"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	exhaustionCounter, err := meter.Int64Counter(
		RetryExhaustionCounterName,
		metric.WithDescription("Total number of operations that failed after all retries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	delayHistogram, err := meter.Float64Histogram(
		RetryDelayHistogramName,
		metric.WithDescription("Backoff delay taken before a retry in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getRetryDelayBuckets()...),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		RetryOperationDurationHistName,
		metric.WithDescription("Total duration of retried operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getRetryDurationBuckets()...),
	)
	if err != nil {
		return nil, err
	}

	return &RetryMetrics{
		attemptCounter:    attemptCounter,
		successCounter:    successCounter,
		exhaustionCounter: exhaustionCounter,
		delayHistogram:    delayHistogram,
		durationHistogram: durationHistogram,
		instanceID:        instanceID,
		baseInstanceAttr:  attribute.String(AttrRetryInstance, instanceID),
	}, nil
}

func (m *RetryMetrics) operationAttrs(name string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRetryOperation, name),
		m.baseInstanceAttr,
	}
}

// RecordRetrySuccess records an operation that succeeded, possibly after retries.
func (m *RetryMetrics) RecordRetrySuccess(ctx context.Context, attempts int, elapsed time.Duration, name string) {
	attributes := append(m.operationAttrs(name), attribute.Int(AttrRetryAttempt, attempts))
	m.successCounter.Add(ctx, 1, metric.WithAttributes(attributes...))
	m.durationHistogram.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attributes...))
}

// RecordRetryFailure records one failed attempt, labeled by error kind.
func (m *RetryMetrics) RecordRetryFailure(ctx context.Context, attempt int, kind valueobject.ErrorKind, name string) {
	attributes := append(m.operationAttrs(name),
		attribute.Int(AttrRetryAttempt, attempt),
		attribute.String(AttrErrorKind, kind.String()),
	)
	m.attemptCounter.Add(ctx, 1, metric.WithAttributes(attributes...))
}

// RecordRetryDelay records the backoff delay taken before a retry.
func (m *RetryMetrics) RecordRetryDelay(ctx context.Context, delay time.Duration, attempt int, name string) {
	attributes := append(m.operationAttrs(name), attribute.Int(AttrRetryAttempt, attempt))
	m.delayHistogram.Record(ctx, delay.Seconds(), metric.WithAttributes(attributes...))
}

// RecordRetryExhaustion records an operation that failed after all retries.
func (m *RetryMetrics) RecordRetryExhaustion(ctx context.Context, attempts int, elapsed time.Duration, name string) {
	attributes := append(m.operationAttrs(name), attribute.Int(AttrRetryAttempt, attempts))
	m.exhaustionCounter.Add(ctx, 1, metric.WithAttributes(attributes...))
	m.durationHistogram.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attributes...))
}
