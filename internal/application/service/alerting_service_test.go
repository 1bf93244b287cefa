package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
	"stocknotifier/internal/port/outbound"
)

// stubNotifier records every delivery and can be made to fail.
type stubNotifier struct {
	mu           sync.Mutex
	alerts       []*entity.Alert
	results      [][]entity.ValueStock
	noCandidates []int
	errorTitles  []string
	err          error
}

func (n *stubNotifier) NotifyResults(_ context.Context, stocks []entity.ValueStock, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, stocks)
	return n.err
}

func (n *stubNotifier) NotifyNoCandidates(_ context.Context, screenedCount int, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.noCandidates = append(n.noCandidates, screenedCount)
	return n.err
}

func (n *stubNotifier) NotifyError(_ context.Context, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errorTitles = append(n.errorTitles, title)
	return n.err
}

func (n *stubNotifier) NotifyAlert(_ context.Context, alert *entity.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *stubNotifier) delivered() []*entity.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*entity.Alert, len(n.alerts))
	copy(out, n.alerts)
	return out
}

// stubPublisher records published events.
type stubPublisher struct {
	mu     sync.Mutex
	alerts []*entity.Alert
	runs   []outbound.RunCompletedEvent
	err    error
}

func (p *stubPublisher) PublishRunCompleted(_ context.Context, event outbound.RunCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, event)
	return p.err
}

func (p *stubPublisher) PublishAlert(_ context.Context, alert *entity.Alert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return p.err
}

func (p *stubPublisher) Close() error { return nil }

func criticalResult() *entity.ProcessingResult {
	classifier := NewErrorClassifier()
	err := entity.NewMarketError(valueobject.ErrorKindProgrammingDefect, "7203.T", "nil pointer dereference", nil)
	return &entity.ProcessingResult{
		Success:        false,
		State:          entity.BatchStateStoppedCritical,
		ProcessedCount: 3,
		CriticalErrors: []*entity.ProcessingError{{
			Timestamp:      time.Now(),
			Operation:      "daily_screening",
			ItemID:         "7203.T",
			Err:            err,
			Classification: classifier.Classify(err),
		}},
	}
}

func TestAlertingService_CriticalErrorRaisesAlert(t *testing.T) {
	notifier := &stubNotifier{}
	publisher := &stubPublisher{}
	alerting, err := NewAlertingService(valueobject.ModeTolerant(), notifier, publisher, nil)
	require.NoError(t, err)

	alert := alerting.EvaluateRun(context.Background(), criticalResult(), 1)

	require.NotNil(t, alert)
	assert.True(t, alert.Severity().IsCritical())
	assert.Contains(t, alert.Message(), "7203.T")
	require.Len(t, notifier.delivered(), 1)
	require.Len(t, publisher.alerts, 1)
}

func TestAlertingService_ErrorRateThreshold(t *testing.T) {
	tests := []struct {
		name        string
		mode        valueobject.HandlingMode
		errorCount  int
		expectAlert bool
	}{
		// Tolerant alerts above 30% error rate.
		{"tolerant below threshold", valueobject.ModeTolerant(), 2, false},
		{"tolerant above threshold", valueobject.ModeTolerant(), 4, true},
		// Strict alerts above 5%.
		{"strict above threshold", valueobject.ModeStrict(), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &stubNotifier{}
			alerting, err := NewAlertingService(tt.mode, notifier, nil, nil)
			require.NoError(t, err)

			result := &entity.ProcessingResult{
				Success:        tt.errorCount == 0,
				State:          entity.BatchStateCompleted,
				ProcessedCount: 10 - tt.errorCount,
				ErrorCount:     tt.errorCount,
			}
			alert := alerting.EvaluateRun(context.Background(), result, 0)

			if tt.expectAlert {
				require.NotNil(t, alert)
				assert.True(t, alert.Severity().IsHigh())
				assert.Len(t, notifier.delivered(), 1)
			} else {
				assert.Nil(t, alert)
				assert.Empty(t, notifier.delivered())
			}
		})
	}
}

func TestAlertingService_RateLimiting(t *testing.T) {
	t.Run("minimum interval suppresses back-to-back alerts", func(t *testing.T) {
		notifier := &stubNotifier{}
		alerting, err := NewAlertingService(valueobject.ModeTolerant(), notifier, nil, nil)
		require.NoError(t, err)
		alerting.SetLimits(time.Hour, 100)

		first := alerting.EvaluateRun(context.Background(), criticalResult(), 1)
		second := alerting.EvaluateRun(context.Background(), criticalResult(), 2)

		require.NotNil(t, first)
		assert.Nil(t, second, "a second alert within the interval must be suppressed")
		assert.Len(t, notifier.delivered(), 1)
	})

	t.Run("hourly cap suppresses further alerts", func(t *testing.T) {
		notifier := &stubNotifier{}
		alerting, err := NewAlertingService(valueobject.ModeTolerant(), notifier, nil, nil)
		require.NoError(t, err)
		alerting.SetLimits(time.Nanosecond, 2)

		var raised int
		for i := 0; i < 5; i++ {
			if alerting.EvaluateRun(context.Background(), criticalResult(), 1) != nil {
				raised++
			}
			time.Sleep(time.Millisecond)
		}

		assert.Equal(t, 2, raised)
	})
}

// Delivery failures are logged and swallowed: alerting must never break the
// run it reports on.
func TestAlertingService_DeliveryFailuresDoNotPropagate(t *testing.T) {
	notifier := &stubNotifier{err: errors.New("webhook unreachable")}
	publisher := &stubPublisher{err: errors.New("broker unreachable")}
	alerting, err := NewAlertingService(valueobject.ModeTolerant(), notifier, publisher, nil)
	require.NoError(t, err)

	alert := alerting.EvaluateRun(context.Background(), criticalResult(), 1)

	require.NotNil(t, alert, "the alert is still considered raised")
	assert.Len(t, notifier.delivered(), 1)
}

func TestAlertingService_NoAlertForHealthyRun(t *testing.T) {
	alerting, err := NewAlertingService(valueobject.ModeTolerant(), &stubNotifier{}, nil, nil)
	require.NoError(t, err)

	result := &entity.ProcessingResult{
		Success:        true,
		State:          entity.BatchStateCompleted,
		ProcessedCount: 10,
	}
	assert.Nil(t, alerting.EvaluateRun(context.Background(), result, 0))
	assert.Nil(t, alerting.EvaluateRun(context.Background(), nil, 0))
}
