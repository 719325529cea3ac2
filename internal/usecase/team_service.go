package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/team"
	"github.com/pola-png/prediction-engine/internal/platform/id"
)

type TeamService struct {
	teamRepo team.Repository
	idGen    id.Generator
	now      func() time.Time
}

func NewTeamService(teamRepo team.Repository, idGen id.Generator) *TeamService {
	return &TeamService{
		teamRepo: teamRepo,
		idGen:    idGen,
		now:      time.Now,
	}
}

// GetOrCreate resolves a team row by display name, creating it with a
// placeholder crest when it does not exist yet. A create that loses the
// race to a concurrent ingester falls back to rereading the winner's row.
func (s *TeamService) GetOrCreate(ctx context.Context, name string, logoURL string) (team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TeamService.GetOrCreate")
	defer span.End()

	name = strings.TrimSpace(name)
	logoURL = strings.TrimSpace(logoURL)
	if name == "" {
		return team.Team{}, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	existing, found, err := s.teamRepo.GetByName(ctx, name)
	if err != nil {
		return team.Team{}, fmt.Errorf("get team by name: %w", err)
	}
	if found {
		return s.maybeUpgradeLogo(ctx, existing, logoURL)
	}

	newID, err := s.idGen.NewID()
	if err != nil {
		return team.Team{}, fmt.Errorf("generate team id: %w", err)
	}
	created := team.Team{
		ID:        newID,
		Name:      name,
		LogoURL:   logoURL,
		CreatedAt: s.now().UTC(),
	}
	if created.LogoURL == "" {
		created.LogoURL = team.PlaceholderLogoURL(name)
	}

	if err := s.teamRepo.Create(ctx, created); err != nil {
		if errors.Is(err, team.ErrNameTaken) {
			winner, found, rereadErr := s.teamRepo.GetByName(ctx, name)
			if rereadErr != nil {
				return team.Team{}, fmt.Errorf("reread team after conflict: %w", rereadErr)
			}
			if !found {
				return team.Team{}, fmt.Errorf("%w: team %q vanished after conflict", ErrConflict, name)
			}
			return winner, nil
		}
		return team.Team{}, fmt.Errorf("create team: %w", err)
	}
	return created, nil
}

func (s *TeamService) maybeUpgradeLogo(ctx context.Context, existing team.Team, logoURL string) (team.Team, error) {
	if logoURL == "" || existing.LogoURL == logoURL {
		return existing, nil
	}
	if existing.LogoURL != "" && existing.LogoURL != team.PlaceholderLogoURL(existing.Name) {
		return existing, nil
	}
	if err := s.teamRepo.SetLogoURL(ctx, existing.ID, logoURL); err != nil {
		return team.Team{}, fmt.Errorf("set team logo: %w", err)
	}
	existing.LogoURL = logoURL
	return existing, nil
}
