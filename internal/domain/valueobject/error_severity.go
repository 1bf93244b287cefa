package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorSeverity represents the severity level of a processing error.
type ErrorSeverity struct {
	level string
}

const (
	CriticalLevel = "CRITICAL"
	HighLevel     = "HIGH"
	MediumLevel   = "MEDIUM"
	LowLevel      = "LOW"
	InfoLevel     = "INFO"
)

var severityPriorities = map[string]int{
	CriticalLevel: 0,
	HighLevel:     1,
	MediumLevel:   2,
	LowLevel:      3,
	InfoLevel:     4,
}

// NewErrorSeverity creates a new error severity with validation.
func NewErrorSeverity(level string) (ErrorSeverity, error) {
	if level == "" {
		return ErrorSeverity{}, errors.New("invalid error severity: cannot be empty")
	}

	if _, exists := severityPriorities[level]; !exists {
		return ErrorSeverity{}, fmt.Errorf("invalid error severity: %s is not a valid level", level)
	}

	return ErrorSeverity{level: level}, nil
}

// SeverityCritical returns the CRITICAL severity.
func SeverityCritical() ErrorSeverity { return ErrorSeverity{level: CriticalLevel} }

// SeverityHigh returns the HIGH severity.
func SeverityHigh() ErrorSeverity { return ErrorSeverity{level: HighLevel} }

// SeverityMedium returns the MEDIUM severity.
func SeverityMedium() ErrorSeverity { return ErrorSeverity{level: MediumLevel} }

// SeverityLow returns the LOW severity.
func SeverityLow() ErrorSeverity { return ErrorSeverity{level: LowLevel} }

// SeverityInfo returns the INFO severity.
func SeverityInfo() ErrorSeverity { return ErrorSeverity{level: InfoLevel} }

// String returns the string representation of the severity.
func (es ErrorSeverity) String() string {
	return es.level
}

// IsCritical returns true if this is a critical error.
func (es ErrorSeverity) IsCritical() bool {
	return es.level == CriticalLevel
}

// IsHigh returns true if this is a high severity error.
func (es ErrorSeverity) IsHigh() bool {
	return es.level == HighLevel
}

// IsMedium returns true if this is a medium severity error.
func (es ErrorSeverity) IsMedium() bool {
	return es.level == MediumLevel
}

// Priority returns the numeric priority (0 = highest priority).
func (es ErrorSeverity) Priority() int {
	return severityPriorities[es.level]
}

// AtLeast returns true if this severity is the same or higher priority than other.
func (es ErrorSeverity) AtLeast(other ErrorSeverity) bool {
	return es.Priority() <= other.Priority()
}

// CountsTowardErrorRate returns true if errors of this severity are counted
// in the trailing-window error rate used for continuation decisions.
func (es ErrorSeverity) CountsTowardErrorRate() bool {
	return es.Priority() <= severityPriorities[MediumLevel]
}

// RequiresImmediateAlert returns true if this severity requires immediate alerting.
func (es ErrorSeverity) RequiresImmediateAlert() bool {
	return es.level == CriticalLevel || es.level == HighLevel
}

// Equals returns true if both severities are equal.
func (es ErrorSeverity) Equals(other ErrorSeverity) bool {
	return es.level == other.level
}

// MarshalJSON implements json.Marshaler.
func (es ErrorSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(es.level)
}

// UnmarshalJSON implements json.Unmarshaler.
func (es *ErrorSeverity) UnmarshalJSON(data []byte) error {
	var level string
	if err := json.Unmarshal(data, &level); err != nil {
		return err
	}

	severity, err := NewErrorSeverity(level)
	if err != nil {
		return err
	}

	*es = severity
	return nil
}
