package apifootball

import (
	"testing"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

func newTestClient() *Client {
	return NewClient(ClientConfig{APIKey: "test-key", Logger: logging.NewNop()})
}

func TestNormalize_FixtureRecord(t *testing.T) {
	t.Parallel()

	rec := usecase.SourceRecord(`{
		"fixture": {"id": 1035045, "date": "2026-03-08T14:00:00+00:00", "status": {"short": "NS"}},
		"league": {"name": "Premier League", "season": 2025},
		"teams": {
			"home": {"name": "Liverpool", "logo": "https://media.api-sports.io/teams/40.png"},
			"away": {"name": "Everton", "logo": "https://media.api-sports.io/teams/45.png"}
		},
		"goals": {"home": null, "away": null}
	}`)

	up, ok, err := newTestClient().Normalize(rec)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if !ok {
		t.Fatalf("expected record to be usable")
	}
	if up.Source != SourceName {
		t.Fatalf("unexpected source: %q", up.Source)
	}
	if up.ExternalID != "1035045" {
		t.Fatalf("unexpected external id: %q", up.ExternalID)
	}
	if up.LeagueCode != "Premier League" {
		t.Fatalf("unexpected league code: %q", up.LeagueCode)
	}
	if up.Season != "2025" {
		t.Fatalf("unexpected season: %q", up.Season)
	}
	if up.Status != match.StatusScheduled {
		t.Fatalf("unexpected status: %q", up.Status)
	}
	if up.HomeGoals != nil || up.AwayGoals != nil {
		t.Fatalf("expected nil goals for an unplayed fixture")
	}
}

func TestNormalize_FinishedFixtureKeepsScore(t *testing.T) {
	t.Parallel()

	rec := usecase.SourceRecord(`{
		"fixture": {"id": 9, "date": "2026-02-01T17:30:00+00:00", "status": {"short": "FT"}},
		"league": {"name": "Premier League", "season": 2025},
		"teams": {"home": {"name": "Fulham"}, "away": {"name": "Brentford"}},
		"goals": {"home": 3, "away": 2}
	}`)

	up, ok, err := newTestClient().Normalize(rec)
	if err != nil || !ok {
		t.Fatalf("normalize: ok=%v err=%v", ok, err)
	}
	if up.Status != match.StatusFinished {
		t.Fatalf("unexpected status: %q", up.Status)
	}
	if up.HomeGoals == nil || *up.HomeGoals != 3 || up.AwayGoals == nil || *up.AwayGoals != 2 {
		t.Fatalf("unexpected goals: %v %v", up.HomeGoals, up.AwayGoals)
	}
}

func TestNormalize_SkipsFixtureWithoutTeams(t *testing.T) {
	t.Parallel()

	rec := usecase.SourceRecord(`{"fixture": {"id": 11, "date": "2026-02-01T17:30:00+00:00"}, "teams": {"home": {"name": ""}, "away": {"name": "Brentford"}}}`)

	_, ok, err := newTestClient().Normalize(rec)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ok {
		t.Fatalf("expected fixture without both team names to be skipped")
	}
}
