package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/domain/prediction"
	"github.com/pola-png/prediction-engine/internal/domain/settlement"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

type matchDTO struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	ExternalID   string    `json:"externalId"`
	LeagueCode   string    `json:"leagueCode,omitempty"`
	Season       string    `json:"season,omitempty"`
	MatchDateUTC time.Time `json:"matchDateUtc"`
	Status       string    `json:"status"`
	HomeTeam     string    `json:"homeTeam"`
	AwayTeam     string    `json:"awayTeam"`
	HomeGoals    *int      `json:"homeGoals,omitempty"`
	AwayGoals    *int      `json:"awayGoals,omitempty"`
	PredictionID string    `json:"predictionId,omitempty"`
}

type featureWeightsDTO struct {
	TeamForm      float64 `json:"teamForm"`
	HeadToHead    float64 `json:"h2h"`
	HomeAdvantage float64 `json:"homeAdv"`
	Goals         float64 `json:"goals"`
	Injuries      float64 `json:"injuries"`
}

type predictionDTO struct {
	ID                string            `json:"id"`
	MatchID           string            `json:"matchId"`
	Version           string            `json:"version"`
	Weights           featureWeightsDTO `json:"weights"`
	Home              float64           `json:"home"`
	Draw              float64           `json:"draw"`
	Away              float64           `json:"away"`
	Over05            float64           `json:"over05"`
	Over15            float64           `json:"over15"`
	Over25            float64           `json:"over25"`
	BTTSYes           float64           `json:"bttsYes"`
	BTTSNo            float64           `json:"bttsNo"`
	CorrectScoreRange string            `json:"correctScoreRange"`
	Confidence        float64           `json:"confidence"`
	Bucket            string            `json:"bucket"`
	CreatedAt         time.Time         `json:"createdAt"`
}

type settlementDTO struct {
	ID              string    `json:"id"`
	MatchID         string    `json:"matchId"`
	PredictionID    string    `json:"predictionId"`
	ResolvedAt      time.Time `json:"resolvedAt"`
	HomeGoals       int       `json:"homeGoals"`
	AwayGoals       int       `json:"awayGoals"`
	Outcome         string    `json:"outcome"`
	Over15          bool      `json:"over15"`
	Over25          bool      `json:"over25"`
	BTTSYes         bool      `json:"bttsYes"`
	CorrectOneXTwo  bool      `json:"correctOneXTwo"`
	CorrectOver15   bool      `json:"correctOver15"`
	CorrectOver25   bool      `json:"correctOver25"`
	CorrectBTTSYes  bool      `json:"correctBttsYes"`
}

func matchToDTO(ctx context.Context, v match.Match) matchDTO {
	ctx, span := startSpan(ctx, "httpapi.matchToDTO")
	defer span.End()

	return matchDTO{
		ID:           v.ID,
		Source:       v.Source,
		ExternalID:   v.ExternalID,
		LeagueCode:   v.LeagueCode,
		Season:       v.Season,
		MatchDateUTC: v.MatchDateUTC,
		Status:       v.Status,
		HomeTeam:     v.HomeTeam,
		AwayTeam:     v.AwayTeam,
		HomeGoals:    v.HomeGoals,
		AwayGoals:    v.AwayGoals,
		PredictionID: v.PredictionID,
	}
}

func predictionToDTO(ctx context.Context, v prediction.Prediction) predictionDTO {
	ctx, span := startSpan(ctx, "httpapi.predictionToDTO")
	defer span.End()

	return predictionDTO{
		ID:      v.ID,
		MatchID: v.MatchID,
		Version: v.Version,
		Weights: featureWeightsDTO{
			TeamForm:      v.Weights.TeamForm,
			HeadToHead:    v.Weights.HeadToHead,
			HomeAdvantage: v.Weights.HomeAdvantage,
			Goals:         v.Weights.Goals,
			Injuries:      v.Weights.Injuries,
		},
		Home:              v.Outcomes.Home,
		Draw:              v.Outcomes.Draw,
		Away:              v.Outcomes.Away,
		Over05:            v.Outcomes.Over05,
		Over15:            v.Outcomes.Over15,
		Over25:            v.Outcomes.Over25,
		BTTSYes:           v.Outcomes.BTTSYes,
		BTTSNo:            v.Outcomes.BTTSNo,
		CorrectScoreRange: v.Outcomes.CorrectScoreRange,
		Confidence:        v.Outcomes.Confidence,
		Bucket:            v.Outcomes.Bucket,
		CreatedAt:         v.CreatedAt,
	}
}

func settlementToDTO(ctx context.Context, v settlement.Record) settlementDTO {
	ctx, span := startSpan(ctx, "httpapi.settlementToDTO")
	defer span.End()

	return settlementDTO{
		ID:             v.ID,
		MatchID:        v.MatchID,
		PredictionID:   v.PredictionID,
		ResolvedAt:     v.ResolvedAt,
		HomeGoals:      v.Result.HomeGoals,
		AwayGoals:      v.Result.AwayGoals,
		Outcome:        v.Result.Outcome,
		Over15:         v.Result.Over15,
		Over25:         v.Result.Over25,
		BTTSYes:        v.Result.BTTSYes,
		CorrectOneXTwo: v.Correctness.OneXTwo,
		CorrectOver15:  v.Correctness.Over15,
		CorrectOver25:  v.Correctness.Over25,
		CorrectBTTSYes: v.Correctness.BTTSYes,
	}
}

func parseLimitQuery(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", usecase.ErrInvalidInput)
	}
	return limit, nil
}
