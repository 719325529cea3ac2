package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pola-png/prediction-engine/internal/domain/team"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/memory"
	"github.com/pola-png/prediction-engine/internal/platform/id"
)

func TestGetOrCreate_AssignsPlaceholderLogo(t *testing.T) {
	svc := NewTeamService(memory.NewTeamRepository(), id.NewRandomGenerator())

	created, err := svc.GetOrCreate(context.Background(), "Real Madrid", "")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if created.Name != "Real Madrid" {
		t.Fatalf("unexpected name %q", created.Name)
	}
	if !strings.Contains(created.LogoURL, "Real+Madrid") {
		t.Fatalf("expected placeholder logo, got %q", created.LogoURL)
	}
}

func TestGetOrCreate_ReturnsExistingRow(t *testing.T) {
	svc := NewTeamService(memory.NewTeamRepository(), id.NewRandomGenerator())
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, "Arsenal", "https://crests.example/arsenal.png")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetOrCreate(ctx, "Arsenal", "")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate team rows: %s and %s", first.ID, second.ID)
	}
	if second.LogoURL != first.LogoURL {
		t.Fatalf("logo changed on lookup: %q", second.LogoURL)
	}
}

func TestGetOrCreate_UpgradesPlaceholderLogo(t *testing.T) {
	svc := NewTeamService(memory.NewTeamRepository(), id.NewRandomGenerator())
	ctx := context.Background()

	if _, err := svc.GetOrCreate(ctx, "Chelsea", ""); err != nil {
		t.Fatalf("seed: %v", err)
	}
	upgraded, err := svc.GetOrCreate(ctx, "Chelsea", "https://crests.example/chelsea.png")
	if err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if upgraded.LogoURL != "https://crests.example/chelsea.png" {
		t.Fatalf("placeholder not upgraded: %q", upgraded.LogoURL)
	}
}

func TestGetOrCreate_RejectsEmptyName(t *testing.T) {
	svc := NewTeamService(memory.NewTeamRepository(), id.NewRandomGenerator())
	if _, err := svc.GetOrCreate(context.Background(), "   ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

type conflictingTeamRepo struct {
	*memory.TeamRepository
	winner  team.Team
	planted bool
}

func (r *conflictingTeamRepo) Create(ctx context.Context, item team.Team) error {
	if !r.planted {
		r.planted = true
		r.winner.Name = item.Name
		if err := r.TeamRepository.Create(ctx, r.winner); err != nil {
			return err
		}
		return team.ErrNameTaken
	}
	return r.TeamRepository.Create(ctx, item)
}

func TestGetOrCreate_LostRaceRereadsWinner(t *testing.T) {
	repo := &conflictingTeamRepo{
		TeamRepository: memory.NewTeamRepository(),
		winner:         team.Team{ID: "winner-id", LogoURL: "https://crests.example/winner.png"},
	}
	svc := NewTeamService(repo, id.NewRandomGenerator())

	got, err := svc.GetOrCreate(context.Background(), "Liverpool", "")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if got.ID != "winner-id" {
		t.Fatalf("expected winner row after lost race, got %q", got.ID)
	}
}
