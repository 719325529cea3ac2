package postgres

import (
	"database/sql"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
)

type matchTableModel struct {
	ID           string         `db:"id"`
	Source       string         `db:"source"`
	ExternalID   string         `db:"external_id"`
	LeagueCode   string         `db:"league_code"`
	Season       string         `db:"season"`
	MatchDateUTC time.Time      `db:"match_date_utc"`
	Status       string         `db:"status"`
	HomeTeamID   string         `db:"home_team_id"`
	AwayTeamID   string         `db:"away_team_id"`
	HomeTeam     string         `db:"home_team"`
	AwayTeam     string         `db:"away_team"`
	HomeGoals    sql.NullInt64  `db:"home_goals"`
	AwayGoals    sql.NullInt64  `db:"away_goals"`
	PredictionID sql.NullString `db:"prediction_id"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func matchToRow(item match.Match) matchTableModel {
	return matchTableModel{
		ID:           item.ID,
		Source:       item.Source,
		ExternalID:   item.ExternalID,
		LeagueCode:   item.LeagueCode,
		Season:       item.Season,
		MatchDateUTC: item.MatchDateUTC,
		Status:       item.Status,
		HomeTeamID:   item.HomeTeamID,
		AwayTeamID:   item.AwayTeamID,
		HomeTeam:     item.HomeTeam,
		AwayTeam:     item.AwayTeam,
		HomeGoals:    ptrToNullInt(item.HomeGoals),
		AwayGoals:    ptrToNullInt(item.AwayGoals),
		PredictionID: ptrToNullString(item.PredictionID),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:           row.ID,
		Source:       row.Source,
		ExternalID:   row.ExternalID,
		LeagueCode:   row.LeagueCode,
		Season:       row.Season,
		MatchDateUTC: row.MatchDateUTC,
		Status:       row.Status,
		HomeTeamID:   row.HomeTeamID,
		AwayTeamID:   row.AwayTeamID,
		HomeTeam:     row.HomeTeam,
		AwayTeam:     row.AwayTeam,
		HomeGoals:    nullIntToPtr(row.HomeGoals),
		AwayGoals:    nullIntToPtr(row.AwayGoals),
		PredictionID: row.PredictionID.String,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func matchesFromRows(rows []matchTableModel) []match.Match {
	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}
	return out
}
