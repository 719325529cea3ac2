package settlement

import (
	"errors"
	"time"
)

// ErrAlreadySettled is returned by repositories when a create hits the
// unique match_id constraint. Settlement records are append-only.
var ErrAlreadySettled = errors.New("match already settled")

// Result captures the observed facts of a finished match.
type Result struct {
	HomeGoals int
	AwayGoals int
	Outcome   string
	Over15    bool
	Over25    bool
	BTTSYes   bool
}

// Correctness scores each market: a probability above 0.5 counts as a
// "yes" claim, and the market is correct when the claim matches reality.
type Correctness struct {
	OneXTwo bool
	Over15  bool
	Over25  bool
	BTTSYes bool
}

// Record is the settlement of one match/prediction pair, written exactly
// once and never mutated.
type Record struct {
	ID           string
	MatchID      string
	PredictionID string
	ResolvedAt   time.Time
	Result       Result
	Correctness  Correctness
}
