package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/domain/prediction"
	"github.com/pola-png/prediction-engine/internal/domain/settlement"
	"github.com/pola-png/prediction-engine/internal/platform/id"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

// predictedThreshold turns an advisory market probability into the yes/no
// call the record is scored against.
const predictedThreshold = 0.5

// SettlementRunResult summarizes one fetch-results settlement pass.
type SettlementRunResult struct {
	ProcessedCount int `json:"processedCount"`
	SkippedCount   int `json:"skippedCount"`
}

type SettlementService struct {
	matchRepo      match.Repository
	predictionRepo prediction.Repository
	settlementRepo settlement.Repository
	idGen          id.Generator
	logger         *logging.Logger
	now            func() time.Time
}

func NewSettlementService(
	matchRepo match.Repository,
	predictionRepo prediction.Repository,
	settlementRepo settlement.Repository,
	idGen id.Generator,
	logger *logging.Logger,
) *SettlementService {
	if logger == nil {
		logger = logging.Default()
	}
	return &SettlementService{
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		settlementRepo: settlementRepo,
		idGen:          idGen,
		logger:         logger,
		now:            time.Now,
	}
}

// ProcessResults settles every finished match that has a prediction and no
// settlement record yet. Settling is append-once per match; a rerun over the
// same data creates nothing.
func (s *SettlementService) ProcessResults(ctx context.Context) (SettlementRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.ProcessResults")
	defer span.End()

	candidates, err := s.matchRepo.ListFinishedWithPrediction(ctx)
	if err != nil {
		return SettlementRunResult{}, fmt.Errorf("list settlement candidates: %w", err)
	}

	var result SettlementRunResult
	for _, item := range candidates {
		settled, err := s.settleMatch(ctx, item)
		if err != nil {
			s.logger.WarnContext(ctx, "settlement failed", "match_id", item.ID, "error", err)
			result.SkippedCount++
			continue
		}
		if settled {
			result.ProcessedCount++
		} else {
			result.SkippedCount++
		}
	}

	s.logger.InfoContext(ctx, "settlement finished",
		"candidates", len(candidates),
		"processed", result.ProcessedCount,
		"skipped", result.SkippedCount,
	)
	return result, nil
}

func (s *SettlementService) settleMatch(ctx context.Context, item match.Match) (bool, error) {
	if !item.HasScore() {
		s.logger.WarnContext(ctx, "finished match has no numeric score, skipping settlement", "match_id", item.ID)
		return false, nil
	}

	exists, err := s.settlementRepo.ExistsByMatchID(ctx, item.ID)
	if err != nil {
		return false, fmt.Errorf("check existing settlement: %w", err)
	}
	if exists {
		return false, nil
	}

	pred, found, err := s.predictionRepo.GetByMatchID(ctx, item.ID)
	if err != nil {
		return false, fmt.Errorf("get prediction: %w", err)
	}
	if !found {
		return false, fmt.Errorf("%w: prediction for match %s", ErrNotFound, item.ID)
	}

	newID, err := s.idGen.NewID()
	if err != nil {
		return false, fmt.Errorf("generate settlement id: %w", err)
	}
	record := buildSettlementRecord(newID, item, pred, s.now().UTC())

	if err := s.settlementRepo.Create(ctx, record); err != nil {
		if errors.Is(err, settlement.ErrAlreadySettled) {
			return false, nil
		}
		return false, fmt.Errorf("create settlement record: %w", err)
	}
	return true, nil
}

// buildSettlementRecord computes the actual outcome facts of a finished
// match and scores each market independently against the prediction.
func buildSettlementRecord(recordID string, item match.Match, pred prediction.Prediction, resolvedAt time.Time) settlement.Record {
	homeGoals, awayGoals := *item.HomeGoals, *item.AwayGoals
	total := homeGoals + awayGoals

	actual := settlement.Result{
		HomeGoals: homeGoals,
		AwayGoals: awayGoals,
		Outcome:   actualOutcome(homeGoals, awayGoals),
		Over15:    total > 1,
		Over25:    total > 2,
		BTTSYes:   homeGoals > 0 && awayGoals > 0,
	}

	return settlement.Record{
		ID:           recordID,
		MatchID:      item.ID,
		PredictionID: pred.ID,
		ResolvedAt:   resolvedAt,
		Result:       actual,
		Correctness: settlement.Correctness{
			OneXTwo: pred.Outcomes.PredictedOutcome() == actual.Outcome,
			Over15:  (pred.Outcomes.Over15 > predictedThreshold) == actual.Over15,
			Over25:  (pred.Outcomes.Over25 > predictedThreshold) == actual.Over25,
			BTTSYes: (pred.Outcomes.BTTSYes > predictedThreshold) == actual.BTTSYes,
		},
	}
}

func actualOutcome(homeGoals, awayGoals int) string {
	switch {
	case homeGoals > awayGoals:
		return prediction.OutcomeHome
	case awayGoals > homeGoals:
		return prediction.OutcomeAway
	default:
		return prediction.OutcomeDraw
	}
}

// ListRecent exposes the settlement history for the dashboard.
func (s *SettlementService) ListRecent(ctx context.Context, limit int) ([]settlement.Record, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.ListRecent")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}
	items, err := s.settlementRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent settlements: %w", err)
	}
	return items, nil
}
