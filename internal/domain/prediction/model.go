package prediction

import (
	"errors"
	"time"
)

const (
	OutcomeHome = "home"
	OutcomeDraw = "draw"
	OutcomeAway = "away"
)

const (
	BucketVIP      = "vip"
	BucketTwoOdds  = "2odds"
	BucketFiveOdds = "5odds"
	BucketBigTen   = "big10"
)

// ErrAlreadyExists is returned by repositories when a create hits the
// unique match_id constraint. Predictions are immutable once written.
var ErrAlreadyExists = errors.New("prediction already exists for match")

// FeatureWeights records how the analyst prompt weighted each signal.
// Values sum to 1.0.
type FeatureWeights struct {
	TeamForm      float64
	HeadToHead    float64
	HomeAdvantage float64
	Goals         float64
	Injuries      float64
}

// Outcomes holds the per-market probabilities returned by the model. The
// 1X2 trio and bttsYes/bttsNo are advisory values; no summation invariant
// is enforced at write time and markets are scored independently.
type Outcomes struct {
	Home              float64
	Draw              float64
	Away              float64
	Over05            float64
	Over15            float64
	Over25            float64
	BTTSYes           float64
	BTTSNo            float64
	CorrectScoreRange string
	Confidence        float64
	Bucket            string
}

// PredictedOutcome is the argmax of the 1X2 probabilities. Tie-break is
// deterministic: draw wins any exact tie it is part of, and an exact
// home/away tie resolves to home.
func (o Outcomes) PredictedOutcome() string {
	best, bestVal := OutcomeHome, o.Home
	if o.Draw >= bestVal {
		best, bestVal = OutcomeDraw, o.Draw
	}
	if o.Away > bestVal {
		best = OutcomeAway
	}
	return best
}

type Prediction struct {
	ID        string
	MatchID   string
	Version   string
	Weights   FeatureWeights
	Outcomes  Outcomes
	CreatedAt time.Time
}

func ValidBucket(value string) bool {
	switch value {
	case BucketVIP, BucketTwoOdds, BucketFiveOdds, BucketBigTen:
		return true
	default:
		return false
	}
}
