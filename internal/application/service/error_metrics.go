package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"stocknotifier/internal/domain/entity"
)

const (
	ProcessingErrorCounterName = "processing_error_total"
	ItemProcessedCounterName   = "items_processed_total"
	BatchCounterName           = "batch_total"
)

const recentErrorWindow = time.Hour

// ErrorStatistics is a point-in-time snapshot of error accounting.
type ErrorStatistics struct {
	TotalErrors       int            `json:"total_errors"`
	TotalProcessed    int            `json:"total_processed"`
	ErrorsByKind      map[string]int `json:"errors_by_kind"`
	ErrorsBySeverity  map[string]int `json:"errors_by_severity"`
	ErrorsByCategory  map[string]int `json:"errors_by_category"`
	ErrorsByAction    map[string]int `json:"errors_by_action"`
	ErrorsByOperation map[string]int `json:"errors_by_operation"`
	RecentErrors      int            `json:"recent_errors"`
	BatchesCompleted  int            `json:"batches_completed"`
	BatchesStopped    int            `json:"batches_stopped"`
}

// ErrorMetrics accumulates error and batch accounting for statistics queries
// and alert-threshold evaluation, and mirrors the counts to OpenTelemetry.
type ErrorMetrics struct {
	mu sync.RWMutex

	totalErrors       int
	totalProcessed    int
	errorsByKind      map[string]int
	errorsBySeverity  map[string]int
	errorsByCategory  map[string]int
	errorsByAction    map[string]int
	errorsByOperation map[string]int
	batchesCompleted  int
	batchesStopped    int
	history           *circularErrorBuffer

	errorCounter metric.Int64Counter
	itemCounter  metric.Int64Counter
	batchCounter metric.Int64Counter
	instanceAttr attribute.KeyValue
}

// NewErrorMetrics creates an error metrics aggregator using the default
// global meter provider.
func NewErrorMetrics(instanceID string) (*ErrorMetrics, error) {
	return NewErrorMetricsWithProvider(instanceID, otel.GetMeterProvider())
}

// NewErrorMetricsWithProvider creates an error metrics aggregator with a
// specific meter provider.
func NewErrorMetricsWithProvider(instanceID string, provider metric.MeterProvider) (*ErrorMetrics, error) {
	meter := provider.Meter("stocknotifier/service", metric.WithInstrumentationVersion("1.0.0"))

	errorCounter, err := meter.Int64Counter(
		ProcessingErrorCounterName,
		metric.WithDescription("Total number of item processing errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	itemCounter, err := meter.Int64Counter(
		ItemProcessedCounterName,
		metric.WithDescription("Total number of successfully processed items"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	batchCounter, err := meter.Int64Counter(
		BatchCounterName,
		metric.WithDescription("Total number of batch runs by terminal state"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	m := &ErrorMetrics{
		errorCounter: errorCounter,
		itemCounter:  itemCounter,
		batchCounter: batchCounter,
		instanceAttr: attribute.String(AttrRetryInstance, instanceID),
	}
	m.resetLocked()
	return m, nil
}

func (m *ErrorMetrics) resetLocked() {
	m.totalErrors = 0
	m.totalProcessed = 0
	m.errorsByKind = make(map[string]int)
	m.errorsBySeverity = make(map[string]int)
	m.errorsByCategory = make(map[string]int)
	m.errorsByAction = make(map[string]int)
	m.errorsByOperation = make(map[string]int)
	m.batchesCompleted = 0
	m.batchesStopped = 0
	m.history = newCircularErrorBuffer(defaultRetryHistoryCapacity)
}

// RecordError accounts one processing error.
func (m *ErrorMetrics) RecordError(ctx context.Context, procErr *entity.ProcessingError) {
	if procErr == nil {
		return
	}

	kind := entity.KindOf(procErr.Err).String()
	severity := procErr.Classification.Severity.String()
	category := procErr.Classification.Category
	action := procErr.Classification.Action.String()

	m.mu.Lock()
	m.totalErrors++
	m.errorsByKind[kind]++
	m.errorsBySeverity[severity]++
	m.errorsByCategory[category]++
	m.errorsByAction[action]++
	m.errorsByOperation[procErr.Operation]++
	m.history.Add(procErr)
	m.mu.Unlock()

	m.errorCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrErrorKind, kind),
		attribute.String("severity", severity),
		attribute.String("category", category),
		attribute.String(AttrRetryOperation, procErr.Operation),
		m.instanceAttr,
	))
}

// RecordOperation accounts one successfully processed item.
func (m *ErrorMetrics) RecordOperation(ctx context.Context, name, itemID string) {
	m.mu.Lock()
	m.totalProcessed++
	m.mu.Unlock()

	_ = itemID // item identity is reported through logs, not metric labels
	m.itemCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrRetryOperation, name),
		m.instanceAttr,
	))
}

// RecordBatchOutcome accounts one finished batch run.
func (m *ErrorMetrics) RecordBatchOutcome(ctx context.Context, name string, result *entity.ProcessingResult) {
	if result == nil {
		return
	}

	m.mu.Lock()
	if result.State == entity.BatchStateCompleted {
		m.batchesCompleted++
	} else {
		m.batchesStopped++
	}
	m.mu.Unlock()

	m.batchCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrRetryOperation, name),
		attribute.String("state", result.State.String()),
		attribute.Bool("success", result.Success),
		m.instanceAttr,
	))
}

// GetErrorStatistics returns a snapshot of error accounting since the last reset.
func (m *ErrorMetrics) GetErrorStatistics() ErrorStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := ErrorStatistics{
		TotalErrors:       m.totalErrors,
		TotalProcessed:    m.totalProcessed,
		ErrorsByKind:      make(map[string]int, len(m.errorsByKind)),
		ErrorsBySeverity:  make(map[string]int, len(m.errorsBySeverity)),
		ErrorsByCategory:  make(map[string]int, len(m.errorsByCategory)),
		ErrorsByAction:    make(map[string]int, len(m.errorsByAction)),
		ErrorsByOperation: make(map[string]int, len(m.errorsByOperation)),
		RecentErrors:      m.history.CountSince(time.Now().Add(-recentErrorWindow)),
		BatchesCompleted:  m.batchesCompleted,
		BatchesStopped:    m.batchesStopped,
	}
	for k, v := range m.errorsByKind {
		stats.ErrorsByKind[k] = v
	}
	for k, v := range m.errorsBySeverity {
		stats.ErrorsBySeverity[k] = v
	}
	for k, v := range m.errorsByCategory {
		stats.ErrorsByCategory[k] = v
	}
	for k, v := range m.errorsByAction {
		stats.ErrorsByAction[k] = v
	}
	for k, v := range m.errorsByOperation {
		stats.ErrorsByOperation[k] = v
	}
	return stats
}

// RecentErrors returns up to n of the most recent recorded errors, oldest first.
func (m *ErrorMetrics) RecentErrors(n int) []*entity.ProcessingError {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.history.Recent(n)
}

// ResetStatistics clears all accumulated counts and error history. The
// OpenTelemetry counters are cumulative and are not reset.
func (m *ErrorMetrics) ResetStatistics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}
