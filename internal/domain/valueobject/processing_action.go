package valueobject

import (
	"errors"
	"fmt"
)

// ProcessingAction represents the action taken when a processing error occurs.
type ProcessingAction struct {
	action string
}

const (
	StopAllAction   = "stop_all"   // Stop all processing immediately
	StopBatchAction = "stop_batch" // Stop the current batch, continue with the next
	SkipItemAction  = "skip_item"  // Skip the current item, continue with others
	ContinueAction  = "continue"   // Count the error and continue processing
	RetryAction     = "retry"      // Retry the operation
)

var validActions = map[string]struct{}{
	StopAllAction:   {},
	StopBatchAction: {},
	SkipItemAction:  {},
	ContinueAction:  {},
	RetryAction:     {},
}

// NewProcessingAction creates a new processing action with validation.
func NewProcessingAction(action string) (ProcessingAction, error) {
	if action == "" {
		return ProcessingAction{}, errors.New("invalid processing action: cannot be empty")
	}
	if _, exists := validActions[action]; !exists {
		return ProcessingAction{}, fmt.Errorf("invalid processing action: %s", action)
	}
	return ProcessingAction{action: action}, nil
}

// ActionStopAll returns the stop-all action.
func ActionStopAll() ProcessingAction { return ProcessingAction{action: StopAllAction} }

// ActionStopBatch returns the stop-batch action.
func ActionStopBatch() ProcessingAction { return ProcessingAction{action: StopBatchAction} }

// ActionSkipItem returns the skip-item action.
func ActionSkipItem() ProcessingAction { return ProcessingAction{action: SkipItemAction} }

// ActionContinue returns the continue action.
func ActionContinue() ProcessingAction { return ProcessingAction{action: ContinueAction} }

// ActionRetry returns the retry action.
func ActionRetry() ProcessingAction { return ProcessingAction{action: RetryAction} }

// String returns the string representation of the action.
func (pa ProcessingAction) String() string {
	return pa.action
}

// IsStopAll returns true if this action stops all processing.
func (pa ProcessingAction) IsStopAll() bool {
	return pa.action == StopAllAction
}

// IsStopBatch returns true if this action stops the current batch.
func (pa ProcessingAction) IsStopBatch() bool {
	return pa.action == StopBatchAction
}

// Halts returns true if this action aborts the batch loop.
func (pa ProcessingAction) Halts() bool {
	return pa.action == StopAllAction || pa.action == StopBatchAction
}

// Equals returns true if both actions are equal.
func (pa ProcessingAction) Equals(other ProcessingAction) bool {
	return pa.action == other.action
}
