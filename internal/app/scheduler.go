package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

const pipelineRunTimeout = 30 * time.Minute

// pipelineScheduler runs the full pipeline on a cron spec. Stage failures
// are already absorbed by the pipeline itself, so a tick never aborts the
// schedule.
type pipelineScheduler struct {
	cron   *cron.Cron
	logger *logging.Logger
}

func newPipelineScheduler(spec string, pipeline *usecase.PipelineService, logger *logging.Logger) (*pipelineScheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pipelineRunTimeout)
		defer cancel()

		result, err := pipeline.Run(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "scheduled pipeline run failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "scheduled pipeline run finished",
			"new_matches", result.NewMatches,
			"new_history", result.NewHistory,
			"predictions_processed", result.PredictionsProcessed,
			"results_updated", result.ResultsUpdated,
			"settled", result.SettledCount,
			"stage_errors", len(result.Errors),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("parse SCHEDULER_CRON %q: %w", spec, err)
	}

	return &pipelineScheduler{cron: c, logger: logger}, nil
}

func (s *pipelineScheduler) Start() {
	s.logger.Info("pipeline scheduler starting")
	s.cron.Start()
}

// Stop halts new ticks and waits for a running pipeline tick to finish,
// bounded by the context deadline.
func (s *pipelineScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("pipeline scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("pipeline scheduler stop timed out", "error", ctx.Err())
	}
}
