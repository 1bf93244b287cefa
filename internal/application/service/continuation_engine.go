package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"stocknotifier/internal/application/common/logging"
	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/domain/valueobject"
)

const (
	errorRateWindow    = 20 // trailing errors considered for the error rate
	errorRateMinSample = 5  // below this the rate reports zero
)

// ItemOperation processes one batch item.
type ItemOperation func(ctx context.Context, item any) (any, error)

// IDExtractor derives a stable identifier from a batch item for reporting.
type IDExtractor func(item any) string

// ProcessingConfig configures a continuation engine instance.
type ProcessingConfig struct {
	Mode          valueobject.HandlingMode
	EnableRetries bool

	// Fallback hard limits. Zero values take the mode's thresholds.
	MaxConsecutiveErrors int
	MaxErrorRate         float64

	// ErrorHistoryCapacity bounds the engine's error ring buffer.
	ErrorHistoryCapacity int

	// MaxConcurrency > 1 enables the bounded-parallel batch mode.
	MaxConcurrency int
}

// DefaultProcessingConfig returns a tolerant-mode processing configuration.
func DefaultProcessingConfig() ProcessingConfig {
	return ProcessingConfig{
		Mode:                 valueobject.ModeTolerant(),
		EnableRetries:        true,
		ErrorHistoryCapacity: defaultRetryHistoryCapacity,
	}
}

// ContinuationEngine iterates a batch of items, runs each through the retry
// executor, and applies mode-driven continuation rules so that isolated bad
// items never abort a run while a systemic defect does. One instance is
// constructed per resilience profile and may process many batches; its
// consecutive-error counter and error history persist across batches until
// ResetErrorState is called.
type ContinuationEngine struct {
	mu         sync.Mutex
	config     ProcessingConfig
	thresholds ModeThresholds
	classifier *ErrorClassifier
	executor   *RetryExecutor
	profile    *ModeProfile
	metrics    *ErrorMetrics
	logger     logging.ApplicationLogger

	consecutiveErrors int
	errorHistory      *circularErrorBuffer
}

// NewContinuationEngine creates an engine for the given processing profile.
func NewContinuationEngine(
	config ProcessingConfig,
	classifier *ErrorClassifier,
	executor *RetryExecutor,
	metrics *ErrorMetrics,
	logger logging.ApplicationLogger,
) *ContinuationEngine {
	if config.Mode.IsZero() {
		config.Mode = valueobject.ModeTolerant()
	}
	thresholds := ThresholdsFor(config.Mode)
	if config.MaxConsecutiveErrors <= 0 {
		config.MaxConsecutiveErrors = thresholds.MaxConsecutiveErrors
	}
	if config.MaxErrorRate <= 0 {
		config.MaxErrorRate = thresholds.MaxErrorRate
	}
	if config.ErrorHistoryCapacity <= 0 {
		config.ErrorHistoryCapacity = defaultRetryHistoryCapacity
	}
	if classifier == nil {
		classifier = NewErrorClassifier(WithNotFoundAsWarning(thresholds.NotFoundAsWarning))
	}
	if executor == nil {
		retryConfig := DefaultRetryConfig()
		retryConfig.MaxRetries = thresholds.RetryMax
		executor = NewRetryExecutor(retryConfig, classifier)
	}

	return &ContinuationEngine{
		config:       config,
		thresholds:   thresholds,
		classifier:   classifier,
		executor:     executor,
		profile:      NewModeProfile(config.Mode, logger),
		metrics:      metrics,
		logger:       logger,
		errorHistory: newCircularErrorBuffer(config.ErrorHistoryCapacity),
	}
}

// Classifier returns the engine's error classifier.
func (e *ContinuationEngine) Classifier() *ErrorClassifier { return e.classifier }

// Executor returns the engine's retry executor.
func (e *ContinuationEngine) Executor() *RetryExecutor { return e.executor }

// Mode returns the engine's handling mode.
func (e *ContinuationEngine) Mode() valueobject.HandlingMode { return e.config.Mode }

// ConfigureProcessing adjusts continuation settings at runtime. Zero values
// leave the corresponding setting unchanged.
func (e *ContinuationEngine) ConfigureProcessing(
	continueOnError bool,
	maxConsecutiveErrors int,
	maxErrorRate float64,
	enableRetries bool,
) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.thresholds.ContinueOnBatchError = continueOnError
	if maxConsecutiveErrors > 0 {
		e.config.MaxConsecutiveErrors = maxConsecutiveErrors
	}
	if maxErrorRate > 0 {
		e.config.MaxErrorRate = maxErrorRate
	}
	e.config.EnableRetries = enableRetries
}

// ResetErrorState zeroes the consecutive-error counter and clears the
// error history.
func (e *ContinuationEngine) ResetErrorState() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecutiveErrors = 0
	e.errorHistory.Clear()
}

// ConsecutiveErrors returns the current consecutive-error count.
func (e *ContinuationEngine) ConsecutiveErrors() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consecutiveErrors
}

// runState aggregates mutable per-run state shared by workers.
type runState struct {
	processed int
	skipped   int
	errored   int
	errors    []*entity.ProcessingError
	warnings  []string
	state     entity.BatchState
	stopped   bool
}

// Process runs the operation over every item in input order, applying
// retries, classification and mode thresholds. Per-item failures never
// surface as a Go error; only ProcessingResult.Success reports trouble and
// callers must treat a non-empty CriticalErrors list as fatal.
func (e *ContinuationEngine) Process(
	ctx context.Context,
	items []any,
	op ItemOperation,
	name string,
	idFn IDExtractor,
) *entity.ProcessingResult {
	start := time.Now()
	run := &runState{state: entity.BatchStateRunning}

	if e.logger != nil {
		e.logger.Info(ctx, "Starting batch processing", logging.Fields{
			"operation": name,
			"items":     len(items),
			"mode":      e.config.Mode.String(),
		})
	}

	if e.config.MaxConcurrency > 1 {
		e.processParallel(ctx, items, op, name, idFn, run)
	} else {
		e.processSequential(ctx, items, op, name, idFn, run)
	}

	result := e.buildResult(run, time.Since(start))
	if e.logger != nil {
		e.logger.Info(ctx, "Batch processing finished", logging.Fields{
			"operation":    name,
			"state":        result.State.String(),
			"processed":    result.ProcessedCount,
			"skipped":      result.SkippedCount,
			"errors":       result.ErrorCount,
			"success_rate": fmt.Sprintf("%.1f%%", result.SuccessRate()*100),
			"elapsed":      result.ProcessingTime.String(),
		})
	}
	if e.metrics != nil {
		e.metrics.RecordBatchOutcome(ctx, name, result)
	}
	return result
}

func (e *ContinuationEngine) processSequential(
	ctx context.Context,
	items []any,
	op ItemOperation,
	name string,
	idFn IDExtractor,
	run *runState,
) {
	for i, item := range items {
		if ctx.Err() != nil {
			run.warnings = append(run.warnings, "batch deadline exceeded before all items were attempted")
			run.state = entity.BatchStateStoppedThreshold
			return
		}

		itemID := e.itemID(idFn, item, i)
		err := e.runItem(ctx, item, op, name, itemID)
		if err == nil {
			e.recordSuccess(ctx, run, name, itemID)
			continue
		}

		action := e.handleItemFailure(ctx, run, err, name, itemID)
		if action.Halts() {
			return
		}
	}
	run.state = entity.BatchStateCompleted
}

func (e *ContinuationEngine) processParallel(
	ctx context.Context,
	items []any,
	op ItemOperation,
	name string,
	idFn IDExtractor,
	run *runState,
) {
	group, groupCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(e.config.MaxConcurrency))
	var runMu sync.Mutex

	for i, item := range items {
		// Stop issuing work once a halt has been decided or the batch
		// deadline has passed; in-flight items are allowed to finish.
		runMu.Lock()
		stopped := run.stopped
		runMu.Unlock()
		if stopped {
			break
		}
		if groupCtx.Err() != nil {
			runMu.Lock()
			run.warnings = append(run.warnings, "batch deadline exceeded before all items were attempted")
			run.state = entity.BatchStateStoppedThreshold
			run.stopped = true
			runMu.Unlock()
			break
		}

		if err := sem.Acquire(groupCtx, 1); err != nil {
			break
		}

		itemID := e.itemID(idFn, item, i)
		boundItem := item
		group.Go(func() error {
			defer sem.Release(1)

			err := e.runItem(groupCtx, boundItem, op, name, itemID)

			runMu.Lock()
			defer runMu.Unlock()
			if run.stopped {
				return nil
			}
			if err == nil {
				e.recordSuccess(groupCtx, run, name, itemID)
				return nil
			}
			action := e.handleItemFailure(groupCtx, run, err, name, itemID)
			if action.Halts() {
				run.stopped = true
			}
			return nil
		})
	}

	_ = group.Wait()

	// Aggregate counts are order independent, but reported errors are
	// sorted by timestamp so reports read chronologically.
	sort.Slice(run.errors, func(i, j int) bool {
		return run.errors[i].Timestamp.Before(run.errors[j].Timestamp)
	})
	if run.state == entity.BatchStateRunning && !run.stopped {
		run.state = entity.BatchStateCompleted
	}
}

// runItem executes one item, through the retry executor when enabled.
func (e *ContinuationEngine) runItem(
	ctx context.Context,
	item any,
	op ItemOperation,
	name string,
	itemID string,
) error {
	if !e.config.EnableRetries {
		_, err := op(ctx, item)
		return err
	}

	result := e.executor.ExecuteWithRetry(ctx, fmt.Sprintf("%s/%s", name, itemID), func(ctx context.Context) (any, error) {
		return op(ctx, item)
	})
	if result.Success {
		return nil
	}
	return result.FinalError
}

func (e *ContinuationEngine) recordSuccess(ctx context.Context, run *runState, name, itemID string) {
	e.mu.Lock()
	e.consecutiveErrors = 0
	e.mu.Unlock()

	run.processed++
	if e.metrics != nil {
		e.metrics.RecordOperation(ctx, name, itemID)
	}
}

// handleItemFailure classifies the failure, updates continuation state and
// returns the action to apply. The mode decision overrides the per-error
// action; fallback hard thresholds catch anything the mode rules let pass.
func (e *ContinuationEngine) handleItemFailure(
	ctx context.Context,
	run *runState,
	err error,
	name string,
	itemID string,
) valueobject.ProcessingAction {
	classification := e.classifier.Classify(err)

	procErr := &entity.ProcessingError{
		Timestamp:      time.Now(),
		Operation:      name,
		ItemID:         itemID,
		Err:            err,
		Classification: classification,
		Context:        map[string]any{"kind": entity.KindOf(err).String()},
	}
	if e.thresholds.IncludeStackTraces {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		procErr.StackTrace = string(buf[:n])
	}

	e.mu.Lock()
	e.updateConsecutiveErrors(classification.Severity)
	e.errorHistory.Add(procErr)
	consecutive := e.consecutiveErrors
	errorRate := e.currentErrorRateLocked()
	e.mu.Unlock()

	run.errors = append(run.errors, procErr)
	e.logItemFailure(ctx, procErr, consecutive, errorRate)
	if e.metrics != nil {
		e.metrics.RecordError(ctx, procErr)
	}

	action := classification.Action
	if e.profile.ShouldStopProcessing(ctx, err, classification, consecutive, errorRate) {
		action = valueobject.ActionStopAll()
	} else if consecutive >= e.config.MaxConsecutiveErrors || errorRate >= e.config.MaxErrorRate {
		// Fallback hard limits, independent of the mode rules.
		action = valueobject.ActionStopAll()
	}

	switch {
	case action.Halts():
		if classification.Severity.IsCritical() {
			run.state = entity.BatchStateStoppedCritical
		} else {
			run.state = entity.BatchStateStoppedThreshold
		}
	case action.Equals(valueobject.ActionSkipItem()):
		run.skipped++
	default:
		// Continue, and Retry whose retries are already exhausted, both
		// count as a processing error.
		run.errored++
	}
	return action
}

// updateConsecutiveErrors applies the mode-specific increment rule: HIGH
// and CRITICAL always increment, MEDIUM increments only in strict mode and
// resets the counter otherwise, LOW and INFO always reset.
func (e *ContinuationEngine) updateConsecutiveErrors(severity valueobject.ErrorSeverity) {
	switch {
	case severity.IsCritical() || severity.IsHigh():
		e.consecutiveErrors++
	case severity.IsMedium():
		if e.config.Mode.IsStrict() {
			e.consecutiveErrors++
		} else {
			e.consecutiveErrors = 0
		}
	default:
		e.consecutiveErrors = 0
	}
}

// currentErrorRateLocked computes the error rate over the trailing window of
// recorded errors. Below the minimum sample size the rate reports zero.
func (e *ContinuationEngine) currentErrorRateLocked() float64 {
	if e.errorHistory.Size() < errorRateMinSample {
		return 0
	}
	recent := e.errorHistory.Recent(errorRateWindow)
	counted := 0
	for _, procErr := range recent {
		if procErr.Classification.Severity.CountsTowardErrorRate() {
			counted++
		}
	}
	return float64(counted) / float64(len(recent))
}

func (e *ContinuationEngine) logItemFailure(
	ctx context.Context,
	procErr *entity.ProcessingError,
	consecutive int,
	errorRate float64,
) {
	if e.logger == nil {
		return
	}
	fields := logging.Fields{
		"operation":          procErr.Operation,
		"item_id":            procErr.ItemID,
		"severity":           procErr.Classification.Severity.String(),
		"action":             procErr.Classification.Action.String(),
		"category":           procErr.Classification.Category,
		"consecutive_errors": consecutive,
		"error_rate":         errorRate,
	}
	switch {
	case procErr.Classification.Severity.RequiresImmediateAlert():
		e.logger.ErrorWithError(ctx, procErr.Err, "Item processing failed", fields)
	case e.config.Mode.IsDebug():
		fields["stack_trace"] = procErr.StackTrace
		e.logger.Warn(ctx, "Item processing failed: "+procErr.Err.Error(), fields)
	default:
		e.logger.Warn(ctx, "Item processing failed: "+procErr.Err.Error(), fields)
	}
}

func (e *ContinuationEngine) buildResult(run *runState, elapsed time.Duration) *entity.ProcessingResult {
	var critical, nonCritical []*entity.ProcessingError
	for _, procErr := range run.errors {
		if procErr.IsCritical() {
			critical = append(critical, procErr)
		} else {
			nonCritical = append(nonCritical, procErr)
		}
	}

	state := run.state
	if state == entity.BatchStateRunning {
		state = entity.BatchStateCompleted
	}

	return &entity.ProcessingResult{
		Success:           run.errored == 0 && len(critical) == 0 && state == entity.BatchStateCompleted,
		State:             state,
		ProcessedCount:    run.processed,
		SkippedCount:      run.skipped,
		ErrorCount:        run.errored,
		CriticalErrors:    critical,
		NonCriticalErrors: nonCritical,
		Warnings:          run.warnings,
		ProcessingTime:    elapsed,
	}
}

func (e *ContinuationEngine) itemID(idFn IDExtractor, item any, index int) string {
	if idFn != nil {
		if id := idFn(item); id != "" {
			return id
		}
	}
	if s, ok := item.(string); ok {
		return s
	}
	return fmt.Sprintf("item_%d", index)
}
