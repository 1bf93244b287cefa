package entity

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"stocknotifier/internal/domain/valueobject"
)

// Alert represents a threshold breach that should reach an operator.
type Alert struct {
	id          string
	severity    valueobject.ErrorSeverity
	title       string
	message     string
	errorRate   float64
	consecutive int
	mode        valueobject.HandlingMode
	createdAt   time.Time
}

// NewAlert creates a new alert with validation.
func NewAlert(
	severity valueobject.ErrorSeverity,
	title string,
	message string,
	errorRate float64,
	consecutive int,
	mode valueobject.HandlingMode,
) (*Alert, error) {
	if title == "" {
		return nil, errors.New("alert: title cannot be empty")
	}
	if errorRate < 0 || errorRate > 1 {
		return nil, errors.New("alert: error rate must be within [0, 1]")
	}
	return &Alert{
		id:          uuid.NewString(),
		severity:    severity,
		title:       title,
		message:     message,
		errorRate:   errorRate,
		consecutive: consecutive,
		mode:        mode,
		createdAt:   time.Now(),
	}, nil
}

// ID returns the alert identifier.
func (a *Alert) ID() string { return a.id }

// Severity returns the alert severity.
func (a *Alert) Severity() valueobject.ErrorSeverity { return a.severity }

// Title returns the alert title.
func (a *Alert) Title() string { return a.title }

// Message returns the alert message.
func (a *Alert) Message() string { return a.message }

// ErrorRate returns the error rate that triggered the alert.
func (a *Alert) ErrorRate() float64 { return a.errorRate }

// ConsecutiveErrors returns the consecutive error count at trigger time.
func (a *Alert) ConsecutiveErrors() int { return a.consecutive }

// Mode returns the handling mode active when the alert fired.
func (a *Alert) Mode() valueobject.HandlingMode { return a.mode }

// CreatedAt returns the alert creation time.
func (a *Alert) CreatedAt() time.Time { return a.createdAt }

// MarshalJSON implements json.Marshaler.
func (a *Alert) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":                 a.id,
		"severity":           a.severity.String(),
		"title":              a.title,
		"message":            a.message,
		"error_rate":         a.errorRate,
		"consecutive_errors": a.consecutive,
		"mode":               a.mode.String(),
		"created_at":         a.createdAt,
	})
}
