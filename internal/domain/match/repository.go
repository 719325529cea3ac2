package match

import (
	"context"
	"time"
)

// Repository persists matches. Create must enforce natural-key uniqueness
// and return ErrDuplicateKey when violated.
type Repository interface {
	GetByID(ctx context.Context, id string) (Match, bool, error)
	GetByNaturalKey(ctx context.Context, key NaturalKey) (Match, bool, error)
	Create(ctx context.Context, item Match) error
	Update(ctx context.Context, item Match) error

	// SetPredictionID attaches a prediction to a match; once set the value
	// is never replaced.
	SetPredictionID(ctx context.Context, matchID, predictionID string) error

	// ListPendingPrediction returns upcoming matches without a prediction,
	// date-ascending, capped at limit.
	ListPendingPrediction(ctx context.Context, now time.Time, limit int) ([]Match, error)

	// ListAwaitingResult returns scheduled matches whose kickoff has passed,
	// candidates for result polling.
	ListAwaitingResult(ctx context.Context, now time.Time) ([]Match, error)

	// ListFinishedWithPrediction returns finished matches that carry a
	// prediction, the settlement candidates.
	ListFinishedWithPrediction(ctx context.Context) ([]Match, error)

	// ListFinished returns finished matches, most recent first, capped at
	// limit. Used as head-to-head context for prompt building.
	ListFinished(ctx context.Context, limit int) ([]Match, error)

	ListUpcoming(ctx context.Context, now time.Time, limit int) ([]Match, error)
}
