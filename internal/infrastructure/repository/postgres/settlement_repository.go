package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pola-png/prediction-engine/internal/domain/settlement"
	qb "github.com/pola-png/prediction-engine/internal/platform/querybuilder"
)

type settlementTableModel struct {
	ID             string    `db:"id"`
	MatchID        string    `db:"match_id"`
	PredictionID   string    `db:"prediction_id"`
	ResolvedAt     time.Time `db:"resolved_at"`
	HomeGoals      int       `db:"home_goals"`
	AwayGoals      int       `db:"away_goals"`
	Outcome        string    `db:"outcome"`
	Over15         bool      `db:"over15"`
	Over25         bool      `db:"over25"`
	BTTSYes        bool      `db:"btts_yes"`
	CorrectOneXTwo bool      `db:"correct_one_x_two"`
	CorrectOver15  bool      `db:"correct_over15"`
	CorrectOver25  bool      `db:"correct_over25"`
	CorrectBTTSYes bool      `db:"correct_btts_yes"`
}

type SettlementRepository struct {
	db *sqlx.DB
}

func NewSettlementRepository(db *sqlx.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) ExistsByMatchID(ctx context.Context, matchID string) (bool, error) {
	query, args, err := qb.Select("1").From("settlements").
		Where(qb.Eq("match_id", matchID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build select settlement exists query: %w", err)
	}

	var one int
	if err := r.db.GetContext(ctx, &one, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("select settlement exists: %w", err)
	}
	return true, nil
}

func (r *SettlementRepository) Create(ctx context.Context, item settlement.Record) error {
	query, args, err := qb.InsertModel("settlements", settlementToRow(item), "ON CONFLICT (match_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert settlement query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert settlement rows affected: %w", err)
	}
	if affected == 0 {
		return settlement.ErrAlreadySettled
	}
	return nil
}

func (r *SettlementRepository) ListRecent(ctx context.Context, limit int) ([]settlement.Record, error) {
	query, args, err := qb.Select("*").From("settlements").
		OrderBy("resolved_at DESC", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select recent settlements query: %w", err)
	}

	var rows []settlementTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select recent settlements: %w", err)
	}

	out := make([]settlement.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, settlementFromRow(row))
	}
	return out, nil
}

func settlementToRow(item settlement.Record) settlementTableModel {
	return settlementTableModel{
		ID:             item.ID,
		MatchID:        item.MatchID,
		PredictionID:   item.PredictionID,
		ResolvedAt:     item.ResolvedAt,
		HomeGoals:      item.Result.HomeGoals,
		AwayGoals:      item.Result.AwayGoals,
		Outcome:        item.Result.Outcome,
		Over15:         item.Result.Over15,
		Over25:         item.Result.Over25,
		BTTSYes:        item.Result.BTTSYes,
		CorrectOneXTwo: item.Correctness.OneXTwo,
		CorrectOver15:  item.Correctness.Over15,
		CorrectOver25:  item.Correctness.Over25,
		CorrectBTTSYes: item.Correctness.BTTSYes,
	}
}

func settlementFromRow(row settlementTableModel) settlement.Record {
	return settlement.Record{
		ID:           row.ID,
		MatchID:      row.MatchID,
		PredictionID: row.PredictionID,
		ResolvedAt:   row.ResolvedAt,
		Result: settlement.Result{
			HomeGoals: row.HomeGoals,
			AwayGoals: row.AwayGoals,
			Outcome:   row.Outcome,
			Over15:    row.Over15,
			Over25:    row.Over25,
			BTTSYes:   row.BTTSYes,
		},
		Correctness: settlement.Correctness{
			OneXTwo: row.CorrectOneXTwo,
			Over15:  row.CorrectOver15,
			Over25:  row.CorrectOver25,
			BTTSYes: row.CorrectBTTSYes,
		},
	}
}
