package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/memory"
	"github.com/pola-png/prediction-engine/internal/platform/id"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

type fakeAdapter struct {
	name     string
	fetchErr error
	records  []MatchUpsert
	fetches  int
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) FetchMatches(_ context.Context) ([]SourceRecord, error) {
	a.fetches++
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	out := make([]SourceRecord, 0, len(a.records))
	for _, rec := range a.records {
		raw, err := jsoniter.Marshal(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func (a *fakeAdapter) Normalize(rec SourceRecord) (MatchUpsert, bool, error) {
	var up MatchUpsert
	if err := jsoniter.Unmarshal(rec, &up); err != nil {
		return MatchUpsert{}, false, err
	}
	if up.ExternalID == "" {
		return MatchUpsert{}, false, nil
	}
	return up, true, nil
}

type ingestionFixture struct {
	svc       *IngestionService
	matchRepo *memory.MatchRepository
	now       time.Time
}

func newIngestionFixture(primary, secondary, archive SourceAdapter) ingestionFixture {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	matchRepo := memory.NewMatchRepository()
	teamSvc := NewTeamService(memory.NewTeamRepository(), id.NewRandomGenerator())
	matchSvc := NewMatchService(matchRepo, id.NewRandomGenerator())
	matchSvc.now = func() time.Time { return now }

	svc := NewIngestionService(teamSvc, matchSvc, matchRepo, primary, secondary, archive, logging.NewNop())
	svc.now = func() time.Time { return now }
	return ingestionFixture{svc: svc, matchRepo: matchRepo, now: now}
}

func feedRecord(source, externalID string, kickoff time.Time) MatchUpsert {
	return MatchUpsert{
		Source:       source,
		ExternalID:   externalID,
		LeagueCode:   "PL",
		MatchDateUTC: kickoff,
		Status:       "scheduled",
		HomeTeam:     "Arsenal " + externalID,
		AwayTeam:     "Chelsea " + externalID,
	}
}

func TestFetchAndStoreMatches_PrimaryFailureFallsBack(t *testing.T) {
	kickoff := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	primary := &fakeAdapter{name: "footballdata", fetchErr: errors.New("401 unauthorized")}
	secondary := &fakeAdapter{name: "apifootball", records: []MatchUpsert{
		feedRecord("apifootball", "s1", kickoff),
		feedRecord("apifootball", "s2", kickoff),
	}}
	fx := newIngestionFixture(primary, secondary, nil)

	result, err := fx.svc.FetchAndStoreMatches(context.Background())
	if err != nil {
		t.Fatalf("fetch and store: %v", err)
	}
	if result.NewMatchesCount != 2 {
		t.Fatalf("unexpected new matches: got=%d want=2", result.NewMatchesCount)
	}
	if result.Source != "apifootball" {
		t.Fatalf("unexpected source: %q", result.Source)
	}

	for _, externalID := range []string{"s1", "s2"} {
		stored, found, err := fx.matchRepo.GetByNaturalKey(context.Background(), match.NaturalKey{Source: "apifootball", ExternalID: externalID})
		if err != nil || !found {
			t.Fatalf("match %s not stored (found=%v err=%v)", externalID, found, err)
		}
		if stored.Source != "apifootball" {
			t.Fatalf("unexpected stored source %q", stored.Source)
		}
	}
}

func TestFetchAndStoreMatches_BothSourcesDown(t *testing.T) {
	primary := &fakeAdapter{name: "footballdata", fetchErr: errors.New("timeout")}
	secondary := &fakeAdapter{name: "apifootball", fetchErr: errors.New("timeout")}
	fx := newIngestionFixture(primary, secondary, nil)

	if _, err := fx.svc.FetchAndStoreMatches(context.Background()); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestFetchAndStoreMatches_BadRecordDoesNotFailRun(t *testing.T) {
	kickoff := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	good := feedRecord("footballdata", "p1", kickoff)
	missingID := feedRecord("footballdata", "", kickoff)
	primary := &fakeAdapter{name: "footballdata", records: []MatchUpsert{good, missingID}}
	fx := newIngestionFixture(primary, nil, nil)

	result, err := fx.svc.FetchAndStoreMatches(context.Background())
	if err != nil {
		t.Fatalf("fetch and store: %v", err)
	}
	if result.NewMatchesCount != 1 {
		t.Fatalf("unexpected new matches: got=%d want=1", result.NewMatchesCount)
	}
	if result.SkippedCount != 1 {
		t.Fatalf("unexpected skipped: got=%d want=1", result.SkippedCount)
	}
}

func TestFetchAndStoreMatches_ArchiveBackfillsFinishedOnly(t *testing.T) {
	goals := func(v int) *int { return &v }
	past := time.Date(2024, 5, 11, 15, 0, 0, 0, time.UTC)

	finished := feedRecord("archive", "h1", past)
	finished.Status = "finished"
	finished.HomeGoals, finished.AwayGoals = goals(2), goals(2)
	scoreless := feedRecord("archive", "h2", past)
	scoreless.Status = "finished"
	notFinished := feedRecord("archive", "h3", past)

	primary := &fakeAdapter{name: "footballdata", records: nil}
	archive := &fakeAdapter{name: "archive", records: []MatchUpsert{finished, scoreless, notFinished}}
	fx := newIngestionFixture(primary, nil, archive)

	result, err := fx.svc.FetchAndStoreMatches(context.Background())
	if err != nil {
		t.Fatalf("fetch and store: %v", err)
	}
	if result.NewHistoryCount != 1 {
		t.Fatalf("unexpected history count: got=%d want=1", result.NewHistoryCount)
	}
}

func TestFetchResults_UpdatesPastMatches(t *testing.T) {
	kickoff := time.Date(2026, 2, 28, 15, 0, 0, 0, time.UTC)
	scheduled := feedRecord("footballdata", "r1", kickoff)
	primary := &fakeAdapter{name: "footballdata", records: []MatchUpsert{scheduled}}
	fx := newIngestionFixture(primary, nil, nil)

	if _, err := fx.svc.FetchAndStoreMatches(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	goals := func(v int) *int { return &v }
	finished := scheduled
	finished.Status = "FT"
	finished.HomeGoals, finished.AwayGoals = goals(1), goals(0)
	primary.records = []MatchUpsert{finished}

	result, err := fx.svc.FetchResults(context.Background())
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("unexpected updated count: got=%d want=1", result.UpdatedCount)
	}

	again, err := fx.svc.FetchResults(context.Background())
	if err != nil {
		t.Fatalf("second fetch results: %v", err)
	}
	if again.UpdatedCount != 0 {
		t.Fatalf("expected no further updates, got %d", again.UpdatedCount)
	}
}

func TestFetchResults_NoCandidatesSkipsFetch(t *testing.T) {
	primary := &fakeAdapter{name: "footballdata"}
	fx := newIngestionFixture(primary, nil, nil)

	result, err := fx.svc.FetchResults(context.Background())
	if err != nil {
		t.Fatalf("fetch results: %v", err)
	}
	if result.UpdatedCount != 0 {
		t.Fatalf("unexpected updates: %d", result.UpdatedCount)
	}
	if primary.fetches != 0 {
		t.Fatalf("expected no upstream fetch without candidates")
	}
}
