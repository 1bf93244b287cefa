package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"stocknotifier/internal/application/common/logging"
	"stocknotifier/internal/domain/entity"
	"stocknotifier/internal/port/outbound"
)

const dividendHistoryYears = 6

// WorkflowConfig configures a daily screening run.
type WorkflowConfig struct {
	Markets  []string
	CacheTTL time.Duration
}

// WorkflowService orchestrates the daily screening run: listing load,
// rotation, resilient per-symbol retrieval, screening, export, notification,
// persistence and alert evaluation. Side-channel failures (export,
// notification, persistence, publishing) are logged and do not abort the
// run; only a failure to obtain the symbol universe does.
type WorkflowService struct {
	config    WorkflowConfig
	listing   outbound.ListingProvider
	source    outbound.MarketDataSource
	cache     outbound.QuoteCache
	engine    *ContinuationEngine
	screening *ScreeningService
	rotation  *RotationService
	reports   outbound.ReportWriter
	notifier  outbound.Notifier
	runs      outbound.RunRepository
	events    outbound.EventPublisher
	alerting  *AlertingService
	logger    logging.ApplicationLogger
}

// NewWorkflowService creates a workflow service. The cache, report writer,
// notifier, run repository, event publisher and alerting service are
// optional; the listing provider, market data source, engine, screening and
// rotation services are required.
func NewWorkflowService(
	config WorkflowConfig,
	listing outbound.ListingProvider,
	source outbound.MarketDataSource,
	cache outbound.QuoteCache,
	engine *ContinuationEngine,
	screening *ScreeningService,
	rotation *RotationService,
	reports outbound.ReportWriter,
	notifier outbound.Notifier,
	runs outbound.RunRepository,
	events outbound.EventPublisher,
	alerting *AlertingService,
	logger logging.ApplicationLogger,
) (*WorkflowService, error) {
	if listing == nil || source == nil {
		return nil, fmt.Errorf("workflow: listing provider and market data source are required")
	}
	if engine == nil || screening == nil || rotation == nil {
		return nil, fmt.Errorf("workflow: engine, screening and rotation services are required")
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 24 * time.Hour
	}
	return &WorkflowService{
		config:    config,
		listing:   listing,
		source:    source,
		cache:     cache,
		engine:    engine,
		screening: screening,
		rotation:  rotation,
		reports:   reports,
		notifier:  notifier,
		runs:      runs,
		events:    events,
		alerting:  alerting,
		logger:    logger,
	}, nil
}

// RunDailyScreening executes one full screening run for the given date and
// returns the batch result together with the surviving candidates.
func (w *WorkflowService) RunDailyScreening(
	ctx context.Context,
	runDate time.Time,
) (*entity.ProcessingResult, []entity.ValueStock, error) {
	runID := uuid.New()
	ctx = logging.WithCorrelationID(ctx, runID.String())
	started := time.Now()

	symbols, err := w.listing.TradableSymbols(ctx, w.config.Markets)
	if err != nil {
		w.logError(ctx, err, "Failed to load symbol universe", nil)
		w.notifyError(ctx, "Screening run aborted", fmt.Sprintf("failed to load symbol universe: %v", err))
		return nil, nil, fmt.Errorf("load symbol universe: %w", err)
	}

	if w.rotation.Enabled() {
		symbols = w.rotation.SymbolsFor(ctx, symbols, runDate)
	}
	if w.logger != nil {
		w.logger.Info(ctx, "Starting daily screening run", logging.Fields{
			"run_id":   runID.String(),
			"date":     runDate.Format("2006-01-02"),
			"symbols":  len(symbols),
			"mode":     w.engine.Mode().String(),
			"rotation": w.rotation.Enabled(),
		})
	}

	var mu sync.Mutex
	var fetched []entity.StockData

	items := make([]any, len(symbols))
	for i, symbol := range symbols {
		items[i] = symbol
	}
	result := w.engine.Process(ctx, items, func(ctx context.Context, item any) (any, error) {
		symbol := item.(string)
		data, err := w.fetchSymbol(ctx, symbol, runDate)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		fetched = append(fetched, *data)
		mu.Unlock()
		return data, nil
	}, "daily_screening", nil)

	candidates := w.screening.ScreenValueStocks(fetched)

	w.exportReports(ctx, candidates, runDate)
	w.notifyRun(ctx, candidates, len(fetched), runDate)
	w.persistRun(ctx, runID, started, result, len(candidates))
	w.publishRun(ctx, runID, result, len(candidates))
	if w.alerting != nil {
		w.alerting.EvaluateRun(ctx, result, w.engine.ConsecutiveErrors())
	}

	return result, candidates, nil
}

// fetchSymbol assembles the per-symbol payload, serving fundamentals from
// the cache when possible to spare the rate-limited provider.
func (w *WorkflowService) fetchSymbol(
	ctx context.Context,
	symbol string,
	runDate time.Time,
) (*entity.StockData, error) {
	var info *entity.FinancialInfo

	if w.cache != nil {
		cached, found, err := w.cache.GetFinancialInfo(ctx, symbol)
		if err != nil {
			w.logError(ctx, err, "Quote cache lookup failed", logging.Fields{"symbol": symbol})
		} else if found {
			info = cached
		}
	}

	if info == nil {
		fresh, err := w.source.GetFinancialInfo(ctx, symbol)
		if err != nil {
			return nil, err
		}
		info = fresh

		if w.cache != nil {
			if err := w.cache.SetFinancialInfo(ctx, info, w.config.CacheTTL); err != nil {
				w.logError(ctx, err, "Quote cache store failed", logging.Fields{"symbol": symbol})
			}
		}
	}

	from := runDate.AddDate(-dividendHistoryYears, 0, 0)
	dividends, err := w.source.GetDividendHistory(ctx, symbol, from, runDate)
	if err != nil {
		return nil, err
	}

	return &entity.StockData{
		Symbol:    symbol,
		Info:      *info,
		Dividends: dividends,
	}, nil
}

func (w *WorkflowService) exportReports(ctx context.Context, candidates []entity.ValueStock, runDate time.Time) {
	if w.reports == nil || len(candidates) == 0 {
		return
	}
	path, err := w.reports.WriteResults(ctx, candidates, runDate)
	if err != nil {
		w.logError(ctx, err, "Failed to write results report", nil)
	} else if w.logger != nil {
		w.logger.Info(ctx, "Results report written", logging.Fields{"path": path})
	}
	if err := w.reports.AppendHistory(ctx, candidates, runDate); err != nil {
		w.logError(ctx, err, "Failed to append history report", nil)
	}
}

func (w *WorkflowService) notifyRun(ctx context.Context, candidates []entity.ValueStock, screened int, runDate time.Time) {
	if w.notifier == nil {
		return
	}
	var err error
	if len(candidates) > 0 {
		err = w.notifier.NotifyResults(ctx, candidates, runDate)
	} else {
		err = w.notifier.NotifyNoCandidates(ctx, screened, runDate)
	}
	if err != nil {
		w.logError(ctx, err, "Failed to deliver run notification", nil)
	}
}

func (w *WorkflowService) persistRun(
	ctx context.Context,
	runID uuid.UUID,
	started time.Time,
	result *entity.ProcessingResult,
	candidateCount int,
) {
	if w.runs == nil {
		return
	}

	record := &outbound.RunRecord{
		ID:             runID,
		Mode:           w.engine.Mode().String(),
		StartedAt:      started,
		Duration:       result.ProcessingTime,
		State:          result.State.String(),
		Success:        result.Success,
		ProcessedCount: result.ProcessedCount,
		SkippedCount:   result.SkippedCount,
		ErrorCount:     result.ErrorCount,
		CandidateCount: candidateCount,
	}
	if err := w.runs.SaveRun(ctx, record); err != nil {
		w.logError(ctx, err, "Failed to persist run summary", logging.Fields{"run_id": runID.String()})
		return
	}

	allErrors := append(append([]*entity.ProcessingError{}, result.CriticalErrors...), result.NonCriticalErrors...)
	if len(allErrors) == 0 {
		return
	}
	if err := w.runs.SaveRunErrors(ctx, runID, allErrors); err != nil {
		w.logError(ctx, err, "Failed to persist run errors", logging.Fields{"run_id": runID.String()})
	}
}

func (w *WorkflowService) publishRun(
	ctx context.Context,
	runID uuid.UUID,
	result *entity.ProcessingResult,
	candidateCount int,
) {
	if w.events == nil {
		return
	}
	event := outbound.RunCompletedEvent{
		RunID:          runID,
		Mode:           w.engine.Mode().String(),
		State:          result.State.String(),
		Success:        result.Success,
		ProcessedCount: result.ProcessedCount,
		SkippedCount:   result.SkippedCount,
		ErrorCount:     result.ErrorCount,
		CandidateCount: candidateCount,
		CompletedAt:    time.Now(),
	}
	if err := w.events.PublishRunCompleted(ctx, event); err != nil {
		w.logError(ctx, err, "Failed to publish run-completed event", logging.Fields{"run_id": runID.String()})
	}
}

func (w *WorkflowService) notifyError(ctx context.Context, title, message string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.NotifyError(ctx, title, message); err != nil {
		w.logError(ctx, err, "Failed to deliver error notification", nil)
	}
}

func (w *WorkflowService) logError(ctx context.Context, err error, msg string, fields logging.Fields) {
	if w.logger == nil {
		return
	}
	w.logger.ErrorWithError(ctx, err, msg, fields)
}
