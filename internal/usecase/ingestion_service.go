package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/domain/team"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

// IngestResult summarizes one fetch-matches run.
type IngestResult struct {
	Source          string `json:"source"`
	NewMatchesCount int    `json:"newMatchesCount"`
	NewHistoryCount int    `json:"newHistoryCount"`
	SkippedCount    int    `json:"skippedCount"`
}

// ResultPollResult summarizes one fetch-results run.
type ResultPollResult struct {
	Source       string `json:"source"`
	UpdatedCount int    `json:"updatedCount"`
}

type IngestionService struct {
	teamSvc   *TeamService
	matchSvc  *MatchService
	matchRepo match.Repository
	primary   SourceAdapter
	secondary SourceAdapter
	archive   SourceAdapter
	logger    *logging.Logger
	now       func() time.Time
}

func NewIngestionService(
	teamSvc *TeamService,
	matchSvc *MatchService,
	matchRepo match.Repository,
	primary SourceAdapter,
	secondary SourceAdapter,
	archive SourceAdapter,
	logger *logging.Logger,
) *IngestionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestionService{
		teamSvc:   teamSvc,
		matchSvc:  matchSvc,
		matchRepo: matchRepo,
		primary:   primary,
		secondary: secondary,
		archive:   archive,
		logger:    logger,
		now:       time.Now,
	}
}

// FetchAndStoreMatches pulls the primary feed (falling back to the secondary
// when the primary is down), normalizes every record and merges it into the
// store. A bad record is skipped with a warning, never failing the run. The
// historical archive, when configured, is merged afterwards to backfill
// finished matches.
func (s *IngestionService) FetchAndStoreMatches(ctx context.Context) (IngestResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.FetchAndStoreMatches")
	defer span.End()

	adapter, records, err := s.fetchWithFallback(ctx)
	if err != nil {
		return IngestResult{}, err
	}

	result := IngestResult{Source: adapter.Name()}
	teamCache := make(map[string]team.Team)
	for _, rec := range records {
		outcome, stored, err := s.storeRecord(ctx, adapter, rec, teamCache)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping feed record", "source", adapter.Name(), "error", err)
			result.SkippedCount++
			continue
		}
		if !stored {
			result.SkippedCount++
			continue
		}
		if outcome.Created {
			result.NewMatchesCount++
		}
	}

	if s.archive != nil {
		created := s.mergeArchive(ctx, teamCache)
		result.NewHistoryCount = created
	}

	s.logger.InfoContext(ctx, "match ingestion finished",
		"source", result.Source,
		"new_matches", result.NewMatchesCount,
		"new_history", result.NewHistoryCount,
		"skipped", result.SkippedCount,
	)
	return result, nil
}

// FetchResults re-fetches the feed and applies score and status updates to
// stored matches whose kickoff has passed. Only candidate matches are
// touched; UpdatedCount counts the ones that became finished with a score.
func (s *IngestionService) FetchResults(ctx context.Context) (ResultPollResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.FetchResults")
	defer span.End()

	candidates, err := s.matchRepo.ListAwaitingResult(ctx, s.now().UTC())
	if err != nil {
		return ResultPollResult{}, fmt.Errorf("list matches awaiting result: %w", err)
	}
	if len(candidates) == 0 {
		return ResultPollResult{}, nil
	}
	wanted := make(map[match.NaturalKey]struct{}, len(candidates))
	for _, item := range candidates {
		wanted[item.NaturalKey()] = struct{}{}
	}

	adapter, records, err := s.fetchWithFallback(ctx)
	if err != nil {
		return ResultPollResult{}, err
	}

	result := ResultPollResult{Source: adapter.Name()}
	teamCache := make(map[string]team.Team)
	for _, rec := range records {
		up, ok, err := adapter.Normalize(rec)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping feed record", "source", adapter.Name(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		if _, isCandidate := wanted[match.NaturalKey{Source: up.Source, ExternalID: up.ExternalID}]; !isCandidate {
			continue
		}
		outcome, err := s.upsertNormalized(ctx, up, teamCache)
		if err != nil {
			s.logger.WarnContext(ctx, "result update failed",
				"source", up.Source,
				"external_id", up.ExternalID,
				"error", err,
			)
			continue
		}
		if outcome.BecameFinished {
			result.UpdatedCount++
		}
	}

	s.logger.InfoContext(ctx, "result polling finished",
		"source", result.Source,
		"candidates", len(candidates),
		"updated", result.UpdatedCount,
	)
	return result, nil
}

func (s *IngestionService) fetchWithFallback(ctx context.Context) (SourceAdapter, []SourceRecord, error) {
	if s.primary == nil {
		return nil, nil, fmt.Errorf("%w: no match feed configured", ErrDependencyUnavailable)
	}

	records, err := s.primary.FetchMatches(ctx)
	if err == nil {
		return s.primary, records, nil
	}
	if s.secondary == nil {
		return nil, nil, fmt.Errorf("%w: fetch from %s: %v", ErrDependencyUnavailable, s.primary.Name(), err)
	}

	s.logger.WarnContext(ctx, "primary feed unavailable, falling back",
		"primary", s.primary.Name(),
		"secondary", s.secondary.Name(),
		"error", err,
	)
	records, fallbackErr := s.secondary.FetchMatches(ctx)
	if fallbackErr != nil {
		return nil, nil, fmt.Errorf("%w: primary %s: %v; secondary %s: %v",
			ErrDependencyUnavailable, s.primary.Name(), err, s.secondary.Name(), fallbackErr)
	}
	return s.secondary, records, nil
}

func (s *IngestionService) storeRecord(ctx context.Context, adapter SourceAdapter, rec SourceRecord, teamCache map[string]team.Team) (UpsertOutcome, bool, error) {
	up, ok, err := adapter.Normalize(rec)
	if err != nil {
		return UpsertOutcome{}, false, err
	}
	if !ok {
		return UpsertOutcome{}, false, nil
	}
	outcome, err := s.upsertNormalized(ctx, up, teamCache)
	if err != nil {
		return UpsertOutcome{}, false, err
	}
	return outcome, true, nil
}

func (s *IngestionService) upsertNormalized(ctx context.Context, up MatchUpsert, teamCache map[string]team.Team) (UpsertOutcome, error) {
	home, err := s.resolveTeam(ctx, up.HomeTeam, up.HomeLogoURL, teamCache)
	if err != nil {
		return UpsertOutcome{}, err
	}
	away, err := s.resolveTeam(ctx, up.AwayTeam, up.AwayLogoURL, teamCache)
	if err != nil {
		return UpsertOutcome{}, err
	}
	return s.matchSvc.UpsertExternalMatch(ctx, up, home.ID, away.ID)
}

func (s *IngestionService) resolveTeam(ctx context.Context, name, logoURL string, cache map[string]team.Team) (team.Team, error) {
	if cached, ok := cache[name]; ok {
		return cached, nil
	}
	resolved, err := s.teamSvc.GetOrCreate(ctx, name, logoURL)
	if err != nil {
		return team.Team{}, fmt.Errorf("resolve team %q: %w", name, err)
	}
	cache[name] = resolved
	return resolved, nil
}

// mergeArchive backfills finished historical matches. Archive outages only
// cost the backfill, never the run.
func (s *IngestionService) mergeArchive(ctx context.Context, teamCache map[string]team.Team) int {
	records, err := s.archive.FetchMatches(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "archive fetch failed", "source", s.archive.Name(), "error", err)
		return 0
	}

	created := 0
	for _, rec := range records {
		up, ok, err := s.archive.Normalize(rec)
		if err != nil || !ok {
			if err != nil {
				s.logger.WarnContext(ctx, "skipping archive record", "source", s.archive.Name(), "error", err)
			}
			continue
		}
		if !match.IsFinished(up.Status) || up.HomeGoals == nil || up.AwayGoals == nil {
			continue
		}
		outcome, err := s.upsertNormalized(ctx, up, teamCache)
		if err != nil {
			s.logger.WarnContext(ctx, "archive merge failed",
				"source", up.Source,
				"external_id", up.ExternalID,
				"error", err,
			)
			continue
		}
		if outcome.Created {
			created++
		}
	}
	return created
}
