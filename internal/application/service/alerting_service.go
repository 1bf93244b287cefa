package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"stocknotifier/internal/application/common/logging"
	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
	"stocknotifier/internal/port/outbound"
)

const AlertCounterName = "alert_total"

const (
	defaultAlertMinInterval = 5 * time.Minute
	defaultAlertMaxPerHour  = 10
)

// AlertingService evaluates error accounting against the active mode's alert
// threshold and delivers rate-limited alerts through the notifier and event
// publisher. Delivery failures are logged, never propagated: alerting must
// not break the run it reports on.
type AlertingService struct {
	mu          sync.Mutex
	mode        valueobject.HandlingMode
	thresholds  ModeThresholds
	notifier    outbound.Notifier
	publisher   outbound.EventPublisher
	logger      logging.ApplicationLogger
	minInterval time.Duration
	maxPerHour  int
	lastAlertAt time.Time
	alertTimes  []time.Time

	alertCounter metric.Int64Counter
}

// NewAlertingService creates an alerting service for the given mode. The
// notifier and publisher are optional.
func NewAlertingService(
	mode valueobject.HandlingMode,
	notifier outbound.Notifier,
	publisher outbound.EventPublisher,
	logger logging.ApplicationLogger,
) (*AlertingService, error) {
	meter := otel.GetMeterProvider().Meter("stocknotifier/service", metric.WithInstrumentationVersion("1.0.0"))
	alertCounter, err := meter.Int64Counter(
		AlertCounterName,
		metric.WithDescription("Total number of alerts raised"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &AlertingService{
		mode:         mode,
		thresholds:   ThresholdsFor(mode),
		notifier:     notifier,
		publisher:    publisher,
		logger:       logger,
		minInterval:  defaultAlertMinInterval,
		maxPerHour:   defaultAlertMaxPerHour,
		alertCounter: alertCounter,
	}, nil
}

// SetLimits adjusts alert rate limiting. Zero values leave the corresponding
// limit unchanged.
func (s *AlertingService) SetLimits(minInterval time.Duration, maxPerHour int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if minInterval > 0 {
		s.minInterval = minInterval
	}
	if maxPerHour > 0 {
		s.maxPerHour = maxPerHour
	}
}

// EvaluateRun inspects a finished batch and raises an alert when the run's
// error rate crosses the mode's alert threshold or a critical error was
// recorded. Returns the alert raised, or nil when no threshold was breached
// or rate limiting suppressed delivery.
func (s *AlertingService) EvaluateRun(
	ctx context.Context,
	result *entity.ProcessingResult,
	consecutiveErrors int,
) *entity.Alert {
	if result == nil {
		return nil
	}

	switch {
	case result.HasCriticalErrors():
		first := result.CriticalErrors[0]
		return s.raise(ctx,
			valueobject.SeverityCritical(),
			"Critical error during processing",
			fmt.Sprintf("operation %s item %s: %v", first.Operation, first.ItemID, first.Err),
			result.ErrorRate(),
			consecutiveErrors,
		)
	case result.TotalAttempted() > 0 && result.ErrorRate() >= s.thresholds.AlertThreshold:
		return s.raise(ctx,
			valueobject.SeverityHigh(),
			"Error rate above alert threshold",
			fmt.Sprintf("error rate %.1f%% exceeds %.1f%% threshold for %s mode",
				result.ErrorRate()*100, s.thresholds.AlertThreshold*100, s.mode.String()),
			result.ErrorRate(),
			consecutiveErrors,
		)
	default:
		return nil
	}
}

func (s *AlertingService) raise(
	ctx context.Context,
	severity valueobject.ErrorSeverity,
	title string,
	message string,
	errorRate float64,
	consecutive int,
) *entity.Alert {
	if !s.allow() {
		if s.logger != nil {
			s.logger.Warn(ctx, "Alert suppressed by rate limit", logging.Fields{
				"title": title,
				"mode":  s.mode.String(),
			})
		}
		return nil
	}

	alert, err := entity.NewAlert(severity, title, message, errorRate, consecutive, s.mode)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorWithError(ctx, err, "Failed to construct alert", logging.Fields{"title": title})
		}
		return nil
	}

	if s.logger != nil {
		s.logger.Error(ctx, "ALERT: "+title, logging.Fields{
			"alert_id":           alert.ID(),
			"severity":           severity.String(),
			"message":            message,
			"error_rate":         errorRate,
			"consecutive_errors": consecutive,
			"mode":               s.mode.String(),
		})
	}
	s.alertCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", severity.String()),
		attribute.String("mode", s.mode.String()),
	))

	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil && s.logger != nil {
			s.logger.ErrorWithError(ctx, err, "Failed to publish alert event", logging.Fields{
				"alert_id": alert.ID(),
			})
		}
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyAlert(ctx, alert); err != nil && s.logger != nil {
			s.logger.ErrorWithError(ctx, err, "Failed to deliver alert notification", logging.Fields{
				"alert_id": alert.ID(),
			})
		}
	}
	return alert
}

// allow applies the minimum-interval and max-per-hour rate limits.
func (s *AlertingService) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if !s.lastAlertAt.IsZero() && now.Sub(s.lastAlertAt) < s.minInterval {
		return false
	}

	cutoff := now.Add(-time.Hour)
	recent := s.alertTimes[:0]
	for _, t := range s.alertTimes {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	s.alertTimes = recent
	if len(s.alertTimes) >= s.maxPerHour {
		return false
	}

	s.lastAlertAt = now
	s.alertTimes = append(s.alertTimes, now)
	return true
}
