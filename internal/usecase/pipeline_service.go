package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

// PipelineRunResult aggregates one full ingestion, prediction and
// settlement run. Errors holds per-stage failure messages; a failed stage
// never prevents the later ones from running.
type PipelineRunResult struct {
	NewMatches           int      `json:"newMatchesCount"`
	NewHistory           int      `json:"newHistoryCount"`
	PredictionsProcessed int      `json:"predictionsProcessed"`
	ResultsUpdated       int      `json:"resultsUpdated"`
	SettledCount         int      `json:"settledCount"`
	Errors               []string `json:"errors,omitempty"`
	StartedAt            string   `json:"startedAt"`
	DurationMS           int64    `json:"durationMs"`
}

type PipelineService struct {
	ingestionSvc  *IngestionService
	predictionSvc *PredictionService
	settlementSvc *SettlementService
	logger        *logging.Logger
	now           func() time.Time
}

func NewPipelineService(
	ingestionSvc *IngestionService,
	predictionSvc *PredictionService,
	settlementSvc *SettlementService,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		ingestionSvc:  ingestionSvc,
		predictionSvc: predictionSvc,
		settlementSvc: settlementSvc,
		logger:        logger,
		now:           time.Now,
	}
}

// Run executes the full pipeline: ingest matches, generate predictions for
// upcoming ones, poll results and settle finished matches. Each stage's
// writes are independently idempotent, so a rerun after a mid-stage failure
// converges instead of duplicating.
func (s *PipelineService) Run(ctx context.Context) (PipelineRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.Run")
	defer span.End()

	startedAt := s.now().UTC()
	result := PipelineRunResult{StartedAt: startedAt.Format(time.RFC3339)}

	ingest, err := s.ingestionSvc.FetchAndStoreMatches(ctx)
	if err != nil {
		s.recordStageFailure(ctx, &result, "fetch-matches", err)
	} else {
		result.NewMatches = ingest.NewMatchesCount
		result.NewHistory = ingest.NewHistoryCount
	}

	predictions, err := s.predictionSvc.ProcessPending(ctx)
	if err != nil {
		s.recordStageFailure(ctx, &result, "run-predictions", err)
	} else {
		result.PredictionsProcessed = predictions.ProcessedCount
	}

	poll, err := s.ingestionSvc.FetchResults(ctx)
	if err != nil {
		s.recordStageFailure(ctx, &result, "fetch-results", err)
	} else {
		result.ResultsUpdated = poll.UpdatedCount
	}

	settled, err := s.settlementSvc.ProcessResults(ctx)
	if err != nil {
		s.recordStageFailure(ctx, &result, "settle-results", err)
	} else {
		result.SettledCount = settled.ProcessedCount
	}

	result.DurationMS = s.now().UTC().Sub(startedAt).Milliseconds()
	s.logger.InfoContext(ctx, "pipeline run finished",
		"new_matches", result.NewMatches,
		"new_history", result.NewHistory,
		"predictions", result.PredictionsProcessed,
		"results_updated", result.ResultsUpdated,
		"settled", result.SettledCount,
		"stage_errors", len(result.Errors),
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

func (s *PipelineService) recordStageFailure(ctx context.Context, result *PipelineRunResult, stage string, err error) {
	s.logger.ErrorContext(ctx, "pipeline stage failed", "stage", stage, "error", err)
	result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", stage, err))
}
