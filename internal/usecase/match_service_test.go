package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/memory"
	"github.com/pola-png/prediction-engine/internal/platform/id"
)

func newTestMatchService(repo match.Repository) *MatchService {
	svc := NewMatchService(repo, id.NewRandomGenerator())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func baseUpsert() MatchUpsert {
	return MatchUpsert{
		Source:       "footballdata",
		ExternalID:   "1001",
		LeagueCode:   "PL",
		Season:       "2025-26",
		MatchDateUTC: time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC),
		Status:       "scheduled",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
	}
}

func TestUpsertExternalMatch_Idempotent(t *testing.T) {
	repo := memory.NewMatchRepository()
	svc := newTestMatchService(repo)
	ctx := context.Background()

	first, err := svc.UpsertExternalMatch(ctx, baseUpsert(), "home-id", "away-id")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.Created {
		t.Fatalf("expected first upsert to create")
	}

	second, err := svc.UpsertExternalMatch(ctx, baseUpsert(), "home-id", "away-id")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Created {
		t.Fatalf("expected second upsert to be a no-op")
	}
	if second.Match.ID != first.Match.ID {
		t.Fatalf("expected same match row, got %s and %s", first.Match.ID, second.Match.ID)
	}
}

func TestUpsertExternalMatch_NoBackwardTransition(t *testing.T) {
	repo := memory.NewMatchRepository()
	svc := newTestMatchService(repo)
	ctx := context.Background()

	goals := func(v int) *int { return &v }
	finished := baseUpsert()
	finished.Status = "FT"
	finished.HomeGoals, finished.AwayGoals = goals(2), goals(1)
	if _, err := svc.UpsertExternalMatch(ctx, finished, "home-id", "away-id"); err != nil {
		t.Fatalf("upsert finished: %v", err)
	}

	stale := baseUpsert()
	outcome, err := svc.UpsertExternalMatch(ctx, stale, "home-id", "away-id")
	if err != nil {
		t.Fatalf("upsert stale: %v", err)
	}
	if outcome.Match.Status != match.StatusFinished {
		t.Fatalf("status regressed to %q", outcome.Match.Status)
	}
	if outcome.Match.HomeGoals == nil || *outcome.Match.HomeGoals != 2 {
		t.Fatalf("score lost after stale upsert")
	}
}

func TestUpsertExternalMatch_GoalsOnlyWithFinished(t *testing.T) {
	repo := memory.NewMatchRepository()
	svc := newTestMatchService(repo)

	goals := func(v int) *int { return &v }
	up := baseUpsert()
	up.Status = "live"
	up.HomeGoals, up.AwayGoals = goals(1), goals(0)

	outcome, err := svc.UpsertExternalMatch(context.Background(), up, "home-id", "away-id")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if outcome.Match.HomeGoals != nil || outcome.Match.AwayGoals != nil {
		t.Fatalf("goals stored for a non-finished match")
	}
	if outcome.Match.Status != match.StatusInProgress {
		t.Fatalf("unexpected status %q", outcome.Match.Status)
	}
}

func TestUpsertExternalMatch_BecameFinished(t *testing.T) {
	repo := memory.NewMatchRepository()
	svc := newTestMatchService(repo)
	ctx := context.Background()

	if _, err := svc.UpsertExternalMatch(ctx, baseUpsert(), "home-id", "away-id"); err != nil {
		t.Fatalf("upsert scheduled: %v", err)
	}

	goals := func(v int) *int { return &v }
	update := baseUpsert()
	update.Status = "finished"
	update.HomeGoals, update.AwayGoals = goals(3), goals(3)

	outcome, err := svc.UpsertExternalMatch(ctx, update, "home-id", "away-id")
	if err != nil {
		t.Fatalf("upsert finished: %v", err)
	}
	if !outcome.BecameFinished {
		t.Fatalf("expected BecameFinished")
	}
	if outcome.Created {
		t.Fatalf("expected merge, not create")
	}
}

func TestUpsertExternalMatch_RejectsMissingIdentity(t *testing.T) {
	svc := newTestMatchService(memory.NewMatchRepository())

	up := baseUpsert()
	up.ExternalID = "  "
	if _, err := svc.UpsertExternalMatch(context.Background(), up, "h", "a"); err == nil {
		t.Fatalf("expected error for missing external id")
	}
}

func TestListPendingPrediction_IncludesKickoffAtQueryInstant(t *testing.T) {
	repo := memory.NewMatchRepository()
	svc := newTestMatchService(repo)
	ctx := context.Background()
	now := svc.now()

	atInstant := baseUpsert()
	atInstant.ExternalID = "2001"
	atInstant.MatchDateUTC = now
	if _, err := svc.UpsertExternalMatch(ctx, atInstant, "h", "a"); err != nil {
		t.Fatalf("upsert at-instant match: %v", err)
	}

	past := baseUpsert()
	past.ExternalID = "2002"
	past.MatchDateUTC = now.Add(-time.Minute)
	if _, err := svc.UpsertExternalMatch(ctx, past, "h", "a"); err != nil {
		t.Fatalf("upsert past match: %v", err)
	}

	pending, err := repo.ListPendingPrediction(ctx, now, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("unexpected pending count: got=%d want=1", len(pending))
	}
	if pending[0].ExternalID != "2001" {
		t.Fatalf("kickoff at the query instant must stay pending, got %q", pending[0].ExternalID)
	}
}

func TestAttachPrediction_SetOnce(t *testing.T) {
	repo := memory.NewMatchRepository()
	svc := newTestMatchService(repo)
	ctx := context.Background()

	outcome, err := svc.UpsertExternalMatch(ctx, baseUpsert(), "home-id", "away-id")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.AttachPrediction(ctx, outcome.Match.ID, "pred-1"); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := svc.AttachPrediction(ctx, outcome.Match.ID, "pred-2"); err != nil {
		t.Fatalf("second attach: %v", err)
	}

	stored, _, err := repo.GetByID(ctx, outcome.Match.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PredictionID != "pred-1" {
		t.Fatalf("prediction link replaced: %q", stored.PredictionID)
	}
}
