package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pola-png/prediction-engine/internal/domain/team"
	qb "github.com/pola-png/prediction-engine/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	LogoURL   string    `db:"logo_url"`
	CreatedAt time.Time `db:"created_at"`
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) GetByName(ctx context.Context, name string) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("name", name)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team by name query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team by name: %w", err)
	}
	return teamFromRow(row), true, nil
}

func (r *TeamRepository) Create(ctx context.Context, item team.Team) error {
	row := teamTableModel{
		ID:        item.ID,
		Name:      item.Name,
		LogoURL:   item.LogoURL,
		CreatedAt: item.CreatedAt,
	}
	query, args, err := qb.InsertModel("teams", row, "ON CONFLICT (name) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert team query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert team rows affected: %w", err)
	}
	if affected == 0 {
		return team.ErrNameTaken
	}
	return nil
}

func (r *TeamRepository) SetLogoURL(ctx context.Context, id, logoURL string) error {
	query, args, err := qb.Update("teams").
		Set("logo_url", logoURL).
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update team logo query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update team logo: %w", err)
	}
	return nil
}

func teamFromRow(row teamTableModel) team.Team {
	return team.Team{
		ID:        row.ID,
		Name:      row.Name,
		LogoURL:   row.LogoURL,
		CreatedAt: row.CreatedAt,
	}
}
