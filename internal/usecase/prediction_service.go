package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/valyala/bytebufferpool"
	"golang.org/x/time/rate"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/domain/prediction"
	"github.com/pola-png/prediction-engine/internal/platform/id"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

// TextCompleter is the generative text capability behind prediction
// generation. Given an analyst prompt it returns raw model text, which may
// arrive wrapped in Markdown code fences.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PredictionRunResult summarizes one run-predictions batch.
type PredictionRunResult struct {
	ProcessedCount int `json:"processedCount"`
	FailedCount    int `json:"failedCount"`
}

type PredictionConfig struct {
	BatchSize    int
	HistoryLimit int
	MaxAttempts  int
	Version      string
}

type PredictionService struct {
	predictionRepo prediction.Repository
	matchRepo      match.Repository
	matchSvc       *MatchService
	completer      TextCompleter
	validate       *validator.Validate
	limiter        *rate.Limiter
	idGen          id.Generator
	cfg            PredictionConfig
	logger         *logging.Logger
	now            func() time.Time
	newRetryPolicy func() backoff.BackOff
}

func NewPredictionService(
	predictionRepo prediction.Repository,
	matchRepo match.Repository,
	matchSvc *MatchService,
	completer TextCompleter,
	limiter *rate.Limiter,
	idGen id.Generator,
	cfg PredictionConfig,
	logger *logging.Logger,
) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = "v1"
	}

	return &PredictionService{
		predictionRepo: predictionRepo,
		matchRepo:      matchRepo,
		matchSvc:       matchSvc,
		completer:      completer,
		validate:       validator.New(),
		limiter:        limiter,
		idGen:          idGen,
		cfg:            cfg,
		logger:         logger,
		now:            time.Now,
		newRetryPolicy: defaultRetryPolicy,
	}
}

func defaultRetryPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = 30 * time.Second
	return policy
}

// aiResponse mirrors the output schema handed to the model. Probabilities
// are range-checked, not sum-checked; the model's numbers are advisory.
type aiResponse struct {
	FeatureWeights aiFeatureWeights `json:"featureWeights"`
	Outcomes       aiOutcomes       `json:"outcomes"`
}

type aiFeatureWeights struct {
	TeamForm float64 `json:"teamForm" validate:"gte=0,lte=1"`
	H2H      float64 `json:"h2h" validate:"gte=0,lte=1"`
	HomeAdv  float64 `json:"homeAdv" validate:"gte=0,lte=1"`
	Goals    float64 `json:"goals" validate:"gte=0,lte=1"`
	Injuries float64 `json:"injuries" validate:"gte=0,lte=1"`
}

type aiOneXTwo struct {
	Home float64 `json:"home" validate:"gte=0,lte=1"`
	Draw float64 `json:"draw" validate:"gte=0,lte=1"`
	Away float64 `json:"away" validate:"gte=0,lte=1"`
}

type aiOutcomes struct {
	OneXTwo           aiOneXTwo `json:"oneXTwo"`
	Over05            float64   `json:"over05" validate:"gte=0,lte=1"`
	Over15            float64   `json:"over15" validate:"gte=0,lte=1"`
	Over25            float64   `json:"over25" validate:"gte=0,lte=1"`
	BTTSYes           float64   `json:"bttsYes" validate:"gte=0,lte=1"`
	BTTSNo            float64   `json:"bttsNo" validate:"gte=0,lte=1"`
	CorrectScoreRange string    `json:"correctScoreRange" validate:"required"`
	Confidence        float64   `json:"confidence" validate:"gte=0,lte=100"`
	Bucket            string    `json:"bucket" validate:"required,oneof=vip 2odds 5odds big10"`
}

// ProcessPending generates predictions for upcoming matches that have none
// yet. Matches are processed sequentially; the limiter paces calls to the
// model provider and a failure for one match never stops the batch.
func (s *PredictionService) ProcessPending(ctx context.Context) (PredictionRunResult, error) {
	return s.ProcessPendingBatch(ctx, 0)
}

// ProcessPendingBatch runs one prediction batch. A batchSize of 0 uses the
// configured default; the cap bounds external AI spend per run.
func (s *PredictionService) ProcessPendingBatch(ctx context.Context, batchSize int) (PredictionRunResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.ProcessPending")
	defer span.End()

	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	pending, err := s.matchRepo.ListPendingPrediction(ctx, s.now().UTC(), batchSize)
	if err != nil {
		return PredictionRunResult{}, fmt.Errorf("list matches pending prediction: %w", err)
	}
	if len(pending) == 0 {
		return PredictionRunResult{}, nil
	}

	history, err := s.matchRepo.ListFinished(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return PredictionRunResult{}, fmt.Errorf("list finished matches for context: %w", err)
	}

	var result PredictionRunResult
	for _, item := range pending {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return result, fmt.Errorf("rate limiter wait: %w", err)
			}
		}
		if _, err := s.Generate(ctx, item, history); err != nil {
			s.logger.WarnContext(ctx, "prediction generation failed",
				"match_id", item.ID,
				"home", item.HomeTeam,
				"away", item.AwayTeam,
				"error", err,
			)
			result.FailedCount++
			continue
		}
		result.ProcessedCount++
	}

	s.logger.InfoContext(ctx, "prediction batch finished",
		"pending", len(pending),
		"processed", result.ProcessedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}

// Generate produces and persists the prediction for one match. Calling it
// again for the same match returns the stored prediction unchanged.
func (s *PredictionService) Generate(ctx context.Context, item match.Match, history []match.Match) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.Generate")
	defer span.End()

	if strings.TrimSpace(item.ID) == "" {
		return prediction.Prediction{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}

	existing, found, err := s.predictionRepo.GetByMatchID(ctx, item.ID)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("get prediction by match: %w", err)
	}
	if found {
		return existing, nil
	}

	prompt := buildAnalystPrompt(item, headToHead(item, history))
	parsed, err := s.completeWithRetry(ctx, prompt)
	if err != nil {
		return prediction.Prediction{}, err
	}

	newID, err := s.idGen.NewID()
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("generate prediction id: %w", err)
	}
	created := prediction.Prediction{
		ID:      newID,
		MatchID: item.ID,
		Version: s.cfg.Version,
		Weights: prediction.FeatureWeights{
			TeamForm:      parsed.FeatureWeights.TeamForm,
			HeadToHead:    parsed.FeatureWeights.H2H,
			HomeAdvantage: parsed.FeatureWeights.HomeAdv,
			Goals:         parsed.FeatureWeights.Goals,
			Injuries:      parsed.FeatureWeights.Injuries,
		},
		Outcomes: prediction.Outcomes{
			Home:              parsed.Outcomes.OneXTwo.Home,
			Draw:              parsed.Outcomes.OneXTwo.Draw,
			Away:              parsed.Outcomes.OneXTwo.Away,
			Over05:            parsed.Outcomes.Over05,
			Over15:            parsed.Outcomes.Over15,
			Over25:            parsed.Outcomes.Over25,
			BTTSYes:           parsed.Outcomes.BTTSYes,
			BTTSNo:            parsed.Outcomes.BTTSNo,
			CorrectScoreRange: strings.TrimSpace(parsed.Outcomes.CorrectScoreRange),
			Confidence:        parsed.Outcomes.Confidence,
			Bucket:            parsed.Outcomes.Bucket,
		},
		CreatedAt: s.now().UTC(),
	}

	if err := s.predictionRepo.Create(ctx, created); err != nil {
		if errors.Is(err, prediction.ErrAlreadyExists) {
			winner, found, rereadErr := s.predictionRepo.GetByMatchID(ctx, item.ID)
			if rereadErr != nil {
				return prediction.Prediction{}, fmt.Errorf("reread prediction after conflict: %w", rereadErr)
			}
			if !found {
				return prediction.Prediction{}, fmt.Errorf("%w: prediction for match %s vanished after conflict", ErrConflict, item.ID)
			}
			created = winner
		} else {
			return prediction.Prediction{}, fmt.Errorf("create prediction: %w", err)
		}
	}

	if err := s.matchSvc.AttachPrediction(ctx, item.ID, created.ID); err != nil {
		return prediction.Prediction{}, err
	}
	return created, nil
}

// completeWithRetry invokes the model up to MaxAttempts times. A response
// that fails parsing or schema validation counts as a failed attempt the
// same as a transport error.
func (s *PredictionService) completeWithRetry(ctx context.Context, prompt string) (aiResponse, error) {
	policy := s.newRetryPolicy()

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepContext(ctx, policy.NextBackOff()); err != nil {
				return aiResponse{}, err
			}
		}

		raw, err := s.completer.Complete(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("model call: %w", err)
			continue
		}
		parsed, err := parseModelResponse(raw, s.validate)
		if err != nil {
			lastErr = err
			continue
		}
		return parsed, nil
	}
	return aiResponse{}, fmt.Errorf("%w: %d attempts exhausted: %v", ErrDependencyUnavailable, s.cfg.MaxAttempts, lastErr)
}

func parseModelResponse(raw string, validate *validator.Validate) (aiResponse, error) {
	payload := stripCodeFence(raw)
	if payload == "" {
		return aiResponse{}, fmt.Errorf("%w: empty model response", ErrInvalidInput)
	}

	var parsed aiResponse
	if err := sonic.UnmarshalString(payload, &parsed); err != nil {
		return aiResponse{}, fmt.Errorf("%w: decode model response: %v", ErrInvalidInput, err)
	}
	if err := validate.Struct(parsed); err != nil {
		return aiResponse{}, fmt.Errorf("%w: model response failed validation: %v", ErrInvalidInput, err)
	}
	return parsed, nil
}

// stripCodeFence removes Markdown fence wrapping and any prose around the
// JSON object so the payload can be decoded directly.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// headToHead keeps the historical matches played between the same two teams,
// regardless of which side hosted.
func headToHead(item match.Match, history []match.Match) []match.Match {
	h2h := make([]match.Match, 0, 8)
	for _, past := range history {
		if past.ID == item.ID {
			continue
		}
		sameOrder := past.HomeTeam == item.HomeTeam && past.AwayTeam == item.AwayTeam
		reversed := past.HomeTeam == item.AwayTeam && past.AwayTeam == item.HomeTeam
		if sameOrder || reversed {
			h2h = append(h2h, past)
		}
	}
	return h2h
}

func buildAnalystPrompt(item match.Match, h2h []match.Match) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("You are a football match analyst. Analyze the upcoming match and respond with a single JSON object, no prose.\n\n")
	fmt.Fprintf(buf, "Match: %s vs %s\n", item.HomeTeam, item.AwayTeam)
	if item.LeagueCode != "" {
		fmt.Fprintf(buf, "League: %s", item.LeagueCode)
		if item.Season != "" {
			fmt.Fprintf(buf, " (season %s)", item.Season)
		}
		buf.WriteString("\n")
	}
	fmt.Fprintf(buf, "Kickoff (UTC): %s\n\n", item.MatchDateUTC.Format(time.RFC3339))

	buf.WriteString("Head-to-head results:\n")
	if len(h2h) == 0 {
		buf.WriteString("No head-to-head data available.\n")
	} else {
		for _, past := range h2h {
			if past.HasScore() {
				fmt.Fprintf(buf, "- %s: %s %d-%d %s\n",
					past.MatchDateUTC.Format("2006-01-02"),
					past.HomeTeam, *past.HomeGoals, *past.AwayGoals, past.AwayTeam)
			} else {
				fmt.Fprintf(buf, "- %s: %s vs %s (no score recorded)\n",
					past.MatchDateUTC.Format("2006-01-02"),
					past.HomeTeam, past.AwayTeam)
			}
		}
	}

	buf.WriteString("\nRespond with JSON exactly matching this schema:\n")
	buf.WriteString(`{"featureWeights":{"teamForm":0.0,"h2h":0.0,"homeAdv":0.0,"goals":0.0,"injuries":0.0},` +
		`"outcomes":{"oneXTwo":{"home":0.0,"draw":0.0,"away":0.0},"over05":0.0,"over15":0.0,"over25":0.0,` +
		`"bttsYes":0.0,"bttsNo":0.0,"correctScoreRange":"1-0 to 2-1","confidence":0,"bucket":"2odds"}}`)
	buf.WriteString("\nProbabilities are between 0 and 1, confidence between 0 and 100, bucket one of vip, 2odds, 5odds, big10. Feature weights sum to 1.0.\n")

	return buf.String()
}

// ListByBucket exposes stored predictions for one risk bucket.
func (s *PredictionService) ListByBucket(ctx context.Context, bucket string, limit int) ([]prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.ListByBucket")
	defer span.End()

	bucket = strings.ToLower(strings.TrimSpace(bucket))
	if !prediction.ValidBucket(bucket) {
		return nil, fmt.Errorf("%w: unknown bucket %q", ErrInvalidInput, bucket)
	}
	if limit <= 0 {
		limit = 50
	}
	items, err := s.predictionRepo.ListByBucket(ctx, bucket, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions by bucket: %w", err)
	}
	return items, nil
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
