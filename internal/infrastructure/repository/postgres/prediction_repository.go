package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pola-png/prediction-engine/internal/domain/prediction"
	qb "github.com/pola-png/prediction-engine/internal/platform/querybuilder"
)

type predictionTableModel struct {
	ID                string    `db:"id"`
	MatchID           string    `db:"match_id"`
	Version           string    `db:"version"`
	WeightTeamForm    float64   `db:"weight_team_form"`
	WeightH2H         float64   `db:"weight_h2h"`
	WeightHomeAdv     float64   `db:"weight_home_adv"`
	WeightGoals       float64   `db:"weight_goals"`
	WeightInjuries    float64   `db:"weight_injuries"`
	Home              float64   `db:"home"`
	Draw              float64   `db:"draw"`
	Away              float64   `db:"away"`
	Over05            float64   `db:"over05"`
	Over15            float64   `db:"over15"`
	Over25            float64   `db:"over25"`
	BTTSYes           float64   `db:"btts_yes"`
	BTTSNo            float64   `db:"btts_no"`
	CorrectScoreRange string    `db:"correct_score_range"`
	Confidence        float64   `db:"confidence"`
	Bucket            string    `db:"bucket"`
	CreatedAt         time.Time `db:"created_at"`
}

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) GetByMatchID(ctx context.Context, matchID string) (prediction.Prediction, bool, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return prediction.Prediction{}, false, fmt.Errorf("build select prediction query: %w", err)
	}

	var row predictionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return prediction.Prediction{}, false, nil
		}
		return prediction.Prediction{}, false, fmt.Errorf("select prediction: %w", err)
	}
	return predictionFromRow(row), true, nil
}

func (r *PredictionRepository) Create(ctx context.Context, item prediction.Prediction) error {
	query, args, err := qb.InsertModel("predictions", predictionToRow(item), "ON CONFLICT (match_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert prediction query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert prediction rows affected: %w", err)
	}
	if affected == 0 {
		return prediction.ErrAlreadyExists
	}
	return nil
}

func (r *PredictionRepository) ListByBucket(ctx context.Context, bucket string, limit int) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("*").From("predictions").
		Where(qb.Eq("bucket", bucket)).
		OrderBy("created_at DESC", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select predictions by bucket query: %w", err)
	}

	var rows []predictionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select predictions by bucket: %w", err)
	}

	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		out = append(out, predictionFromRow(row))
	}
	return out, nil
}

func predictionToRow(item prediction.Prediction) predictionTableModel {
	return predictionTableModel{
		ID:                item.ID,
		MatchID:           item.MatchID,
		Version:           item.Version,
		WeightTeamForm:    item.Weights.TeamForm,
		WeightH2H:         item.Weights.HeadToHead,
		WeightHomeAdv:     item.Weights.HomeAdvantage,
		WeightGoals:       item.Weights.Goals,
		WeightInjuries:    item.Weights.Injuries,
		Home:              item.Outcomes.Home,
		Draw:              item.Outcomes.Draw,
		Away:              item.Outcomes.Away,
		Over05:            item.Outcomes.Over05,
		Over15:            item.Outcomes.Over15,
		Over25:            item.Outcomes.Over25,
		BTTSYes:           item.Outcomes.BTTSYes,
		BTTSNo:            item.Outcomes.BTTSNo,
		CorrectScoreRange: item.Outcomes.CorrectScoreRange,
		Confidence:        item.Outcomes.Confidence,
		Bucket:            item.Outcomes.Bucket,
		CreatedAt:         item.CreatedAt,
	}
}

func predictionFromRow(row predictionTableModel) prediction.Prediction {
	return prediction.Prediction{
		ID:      row.ID,
		MatchID: row.MatchID,
		Version: row.Version,
		Weights: prediction.FeatureWeights{
			TeamForm:      row.WeightTeamForm,
			HeadToHead:    row.WeightH2H,
			HomeAdvantage: row.WeightHomeAdv,
			Goals:         row.WeightGoals,
			Injuries:      row.WeightInjuries,
		},
		Outcomes: prediction.Outcomes{
			Home:              row.Home,
			Draw:              row.Draw,
			Away:              row.Away,
			Over05:            row.Over05,
			Over15:            row.Over15,
			Over25:            row.Over25,
			BTTSYes:           row.BTTSYes,
			BTTSNo:            row.BTTSNo,
			CorrectScoreRange: row.CorrectScoreRange,
			Confidence:        row.Confidence,
			Bucket:            row.Bucket,
		},
		CreatedAt: row.CreatedAt,
	}
}
