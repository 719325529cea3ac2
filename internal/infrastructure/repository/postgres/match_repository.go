package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	qb "github.com/pola-png/prediction-engine/internal/platform/querybuilder"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, id string) (match.Match, bool, error) {
	return r.getOne(ctx, qb.Eq("id", id))
}

func (r *MatchRepository) GetByNaturalKey(ctx context.Context, key match.NaturalKey) (match.Match, bool, error) {
	return r.getOne(ctx, qb.Eq("source", key.Source), qb.Eq("external_id", key.ExternalID))
}

func (r *MatchRepository) getOne(ctx context.Context, conditions ...qb.Condition) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(conditions...).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("select match: %w", err)
	}
	return matchFromRow(row), true, nil
}

func (r *MatchRepository) Create(ctx context.Context, item match.Match) error {
	query, args, err := qb.InsertModel("matches", matchToRow(item), "ON CONFLICT (source, external_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert match rows affected: %w", err)
	}
	if affected == 0 {
		return match.ErrDuplicateKey
	}
	return nil
}

func (r *MatchRepository) Update(ctx context.Context, item match.Match) error {
	query, args, err := qb.Update("matches").
		Set("league_code", item.LeagueCode).
		Set("season", item.Season).
		Set("match_date_utc", item.MatchDateUTC).
		Set("status", item.Status).
		Set("home_goals", ptrToNullInt(item.HomeGoals)).
		Set("away_goals", ptrToNullInt(item.AwayGoals)).
		Set("updated_at", item.UpdatedAt).
		Where(qb.Eq("id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	return nil
}

func (r *MatchRepository) SetPredictionID(ctx context.Context, matchID, predictionID string) error {
	query, args, err := qb.Update("matches").
		Set("prediction_id", predictionID).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", matchID),
			qb.IsNull("prediction_id"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set prediction id query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set prediction id: %w", err)
	}
	return nil
}

func (r *MatchRepository) ListPendingPrediction(ctx context.Context, now time.Time, limit int) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(
			qb.Eq("status", match.StatusScheduled),
			qb.IsNull("prediction_id"),
			qb.Gte("match_date_utc", now),
		).
		OrderBy("match_date_utc", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select pending prediction query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) ListAwaitingResult(ctx context.Context, now time.Time) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(
			qb.In("status", []any{match.StatusScheduled, match.StatusInProgress}),
			qb.Lt("match_date_utc", now),
		).
		OrderBy("match_date_utc", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select awaiting result query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) ListFinishedWithPrediction(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(
			qb.Eq("status", match.StatusFinished),
			qb.NotNull("prediction_id"),
		).
		OrderBy("match_date_utc", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select finished with prediction query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) ListFinished(ctx context.Context, limit int) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("status", match.StatusFinished)).
		OrderBy("match_date_utc DESC", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select finished query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) ListUpcoming(ctx context.Context, now time.Time, limit int) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(
			qb.Eq("status", match.StatusScheduled),
			qb.Expr("match_date_utc > ?", now),
		).
		OrderBy("match_date_utc", "id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select upcoming query: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *MatchRepository) list(ctx context.Context, query string, args []any) ([]match.Match, error) {
	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	return matchesFromRows(rows), nil
}
