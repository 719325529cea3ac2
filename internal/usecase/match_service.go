package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/platform/id"
)

const defaultUpcomingLimit = 50

// UpsertOutcome reports what one external record did to the store.
type UpsertOutcome struct {
	Match          match.Match
	Created        bool
	BecameFinished bool
}

type MatchService struct {
	matchRepo match.Repository
	idGen     id.Generator
	now       func() time.Time
}

func NewMatchService(matchRepo match.Repository, idGen id.Generator) *MatchService {
	return &MatchService{
		matchRepo: matchRepo,
		idGen:     idGen,
		now:       time.Now,
	}
}

// UpsertExternalMatch merges one normalized feed record into the store,
// keyed by (source, external_id). Status only moves forward through the
// lifecycle and goals are stored only alongside a finished status, so
// re-ingesting the same feed is a no-op.
func (s *MatchService) UpsertExternalMatch(ctx context.Context, up MatchUpsert, homeTeamID, awayTeamID string) (UpsertOutcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.UpsertExternalMatch")
	defer span.End()

	up.Source = strings.ToLower(strings.TrimSpace(up.Source))
	up.ExternalID = strings.TrimSpace(up.ExternalID)
	up.HomeTeam = strings.TrimSpace(up.HomeTeam)
	up.AwayTeam = strings.TrimSpace(up.AwayTeam)
	up.Status = match.NormalizeStatus(up.Status)

	if up.Source == "" || up.ExternalID == "" {
		return UpsertOutcome{}, fmt.Errorf("%w: source and external id are required", ErrInvalidInput)
	}
	if up.HomeTeam == "" || up.AwayTeam == "" {
		return UpsertOutcome{}, fmt.Errorf("%w: home and away team names are required", ErrInvalidInput)
	}
	if up.MatchDateUTC.IsZero() {
		return UpsertOutcome{}, fmt.Errorf("%w: match date is required", ErrInvalidInput)
	}
	if !match.IsFinished(up.Status) {
		up.HomeGoals, up.AwayGoals = nil, nil
	}

	key := match.NaturalKey{Source: up.Source, ExternalID: up.ExternalID}
	existing, found, err := s.matchRepo.GetByNaturalKey(ctx, key)
	if err != nil {
		return UpsertOutcome{}, fmt.Errorf("get match by natural key: %w", err)
	}
	if !found {
		outcome, err := s.createFromUpsert(ctx, up, homeTeamID, awayTeamID)
		if err == nil || !errors.Is(err, match.ErrDuplicateKey) {
			return outcome, err
		}
		existing, found, err = s.matchRepo.GetByNaturalKey(ctx, key)
		if err != nil {
			return UpsertOutcome{}, fmt.Errorf("reread match after conflict: %w", err)
		}
		if !found {
			return UpsertOutcome{}, fmt.Errorf("%w: match %s/%s vanished after conflict", ErrConflict, key.Source, key.ExternalID)
		}
	}
	return s.mergeIntoExisting(ctx, existing, up)
}

func (s *MatchService) createFromUpsert(ctx context.Context, up MatchUpsert, homeTeamID, awayTeamID string) (UpsertOutcome, error) {
	newID, err := s.idGen.NewID()
	if err != nil {
		return UpsertOutcome{}, fmt.Errorf("generate match id: %w", err)
	}
	now := s.now().UTC()
	item := match.Match{
		ID:           newID,
		Source:       up.Source,
		ExternalID:   up.ExternalID,
		LeagueCode:   strings.TrimSpace(up.LeagueCode),
		Season:       strings.TrimSpace(up.Season),
		MatchDateUTC: up.MatchDateUTC.UTC(),
		Status:       up.Status,
		HomeTeamID:   homeTeamID,
		AwayTeamID:   awayTeamID,
		HomeTeam:     up.HomeTeam,
		AwayTeam:     up.AwayTeam,
		HomeGoals:    up.HomeGoals,
		AwayGoals:    up.AwayGoals,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.matchRepo.Create(ctx, item); err != nil {
		return UpsertOutcome{}, err
	}
	return UpsertOutcome{
		Match:          item,
		Created:        true,
		BecameFinished: match.IsFinished(item.Status) && item.HasScore(),
	}, nil
}

func (s *MatchService) mergeIntoExisting(ctx context.Context, existing match.Match, up MatchUpsert) (UpsertOutcome, error) {
	merged := existing
	changed := false

	if up.Status != merged.Status && match.CanTransition(merged.Status, up.Status) {
		merged.Status = up.Status
		changed = true
	}
	if match.IsFinished(merged.Status) && up.HomeGoals != nil && up.AwayGoals != nil {
		if merged.HomeGoals == nil || merged.AwayGoals == nil ||
			*merged.HomeGoals != *up.HomeGoals || *merged.AwayGoals != *up.AwayGoals {
			merged.HomeGoals, merged.AwayGoals = up.HomeGoals, up.AwayGoals
			changed = true
		}
	}
	if date := up.MatchDateUTC.UTC(); !date.IsZero() && !date.Equal(merged.MatchDateUTC) {
		merged.MatchDateUTC = date
		changed = true
	}
	if league := strings.TrimSpace(up.LeagueCode); league != "" && league != merged.LeagueCode {
		merged.LeagueCode = league
		changed = true
	}
	if season := strings.TrimSpace(up.Season); season != "" && season != merged.Season {
		merged.Season = season
		changed = true
	}

	outcome := UpsertOutcome{
		Match:          merged,
		BecameFinished: !match.IsFinished(existing.Status) && match.IsFinished(merged.Status) && merged.HasScore(),
	}
	if !changed {
		return outcome, nil
	}
	merged.UpdatedAt = s.now().UTC()
	outcome.Match = merged
	if err := s.matchRepo.Update(ctx, merged); err != nil {
		return UpsertOutcome{}, fmt.Errorf("update match: %w", err)
	}
	return outcome, nil
}

func (s *MatchService) GetByID(ctx context.Context, matchID string) (match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.GetByID")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Match{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	item, found, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return match.Match{}, fmt.Errorf("get match: %w", err)
	}
	if !found {
		return match.Match{}, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	return item, nil
}

func (s *MatchService) ListUpcoming(ctx context.Context, limit int) ([]match.Match, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.ListUpcoming")
	defer span.End()

	if limit <= 0 {
		limit = defaultUpcomingLimit
	}
	items, err := s.matchRepo.ListUpcoming(ctx, s.now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming matches: %w", err)
	}
	return items, nil
}

// AttachPrediction records the prediction attached to a match. The link is
// set once; repeated calls with the same prediction are no-ops.
func (s *MatchService) AttachPrediction(ctx context.Context, matchID, predictionID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.MatchService.AttachPrediction")
	defer span.End()

	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(predictionID) == "" {
		return fmt.Errorf("%w: match id and prediction id are required", ErrInvalidInput)
	}
	if err := s.matchRepo.SetPredictionID(ctx, matchID, predictionID); err != nil {
		return fmt.Errorf("set prediction id: %w", err)
	}
	return nil
}
