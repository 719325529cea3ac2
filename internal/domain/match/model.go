package match

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in-progress"
	StatusFinished   = "finished"
	StatusPostponed  = "postponed"
	StatusCanceled   = "canceled"
)

// ErrDuplicateKey is returned by repositories when a create hits the unique
// (source, external_id) constraint.
var ErrDuplicateKey = errors.New("match natural key already exists")

// NaturalKey identifies one external match record across re-ingestions.
type NaturalKey struct {
	Source     string
	ExternalID string
}

// Match is the canonical record merged from all ingestion sources.
type Match struct {
	ID           string
	Source       string
	ExternalID   string
	LeagueCode   string
	Season       string
	MatchDateUTC time.Time
	Status       string
	HomeTeamID   string
	AwayTeamID   string
	HomeTeam     string
	AwayTeam     string
	HomeGoals    *int
	AwayGoals    *int
	PredictionID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (m Match) NaturalKey() NaturalKey {
	return NaturalKey{Source: m.Source, ExternalID: m.ExternalID}
}

func (m Match) HasScore() bool {
	return m.HomeGoals != nil && m.AwayGoals != nil
}

// NormalizeStatus maps the status vocabulary of every supported feed onto
// the canonical set. Unknown values default to scheduled.
func NormalizeStatus(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case StatusInProgress, "in_play", "live", "playing", "1h", "2h", "ht", "paused":
		return StatusInProgress
	case StatusFinished, "ft", "aet", "pen", "full-time", "complete", "completed":
		return StatusFinished
	case StatusPostponed, "pst", "suspended":
		return StatusPostponed
	case StatusCanceled, "cancelled", "canc", "abandoned":
		return StatusCanceled
	default:
		return StatusScheduled
	}
}

// statusRank orders the lifecycle so adapters can only move a match forward.
func statusRank(status string) int {
	switch status {
	case StatusInProgress:
		return 1
	case StatusFinished, StatusPostponed, StatusCanceled:
		return 2
	default:
		return 0
	}
}

// CanTransition reports whether an adapter-supplied status may replace the
// stored one. Reports of an older lifecycle stage are no-ops.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return statusRank(to) > statusRank(from)
}

func IsFinished(status string) bool {
	return status == StatusFinished
}
