package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/mock"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/domain/prediction"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/memory"
	predictionmock "github.com/pola-png/prediction-engine/internal/mocks/domain/prediction"
	"github.com/pola-png/prediction-engine/internal/platform/id"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

func TestPredictionService_ListByBucket_SuccessUsingMockery(t *testing.T) {
	t.Parallel()

	predictionRepo := predictionmock.NewRepository(t)
	service := NewPredictionService(predictionRepo, nil, nil, nil, nil, nil, PredictionConfig{}, logging.NewNop())

	expected := []prediction.Prediction{
		{
			ID:      "pr-001",
			MatchID: "m-001",
			Version: "v1",
			Outcomes: prediction.Outcomes{
				Home:       0.52,
				Draw:       0.26,
				Away:       0.22,
				Confidence: 0.74,
				Bucket:     prediction.BucketTwoOdds,
			},
			CreatedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
	}

	predictionRepo.
		On("ListByBucket", mock.Anything, prediction.BucketTwoOdds, 25).
		Return(expected, nil).
		Once()

	got, err := service.ListByBucket(context.Background(), " 2Odds ", 25)
	if err != nil {
		t.Fatalf("list by bucket: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected prediction count: got=%d want=1", len(got))
	}
	if got[0].ID != expected[0].ID {
		t.Fatalf("unexpected prediction id: got=%s want=%s", got[0].ID, expected[0].ID)
	}
}

func TestPredictionService_ListByBucket_DefaultLimitUsingMockery(t *testing.T) {
	t.Parallel()

	predictionRepo := predictionmock.NewRepository(t)
	service := NewPredictionService(predictionRepo, nil, nil, nil, nil, nil, PredictionConfig{}, logging.NewNop())

	predictionRepo.
		On("ListByBucket", mock.Anything, prediction.BucketVIP, 50).
		Return(nil, nil).
		Once()

	got, err := service.ListByBucket(context.Background(), prediction.BucketVIP, 0)
	if err != nil {
		t.Fatalf("list by bucket: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unexpected prediction count: got=%d want=0", len(got))
	}
}

func TestPredictionService_ListByBucket_RepoErrorUsingMockery(t *testing.T) {
	t.Parallel()

	predictionRepo := predictionmock.NewRepository(t)
	service := NewPredictionService(predictionRepo, nil, nil, nil, nil, nil, PredictionConfig{}, logging.NewNop())

	repoErr := errors.New("connection reset")
	predictionRepo.
		On("ListByBucket", mock.Anything, prediction.BucketBigTen, 10).
		Return(nil, repoErr).
		Once()

	_, err := service.ListByBucket(context.Background(), prediction.BucketBigTen, 10)
	if !errors.Is(err, repoErr) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func TestPredictionService_Generate_LostCreateRaceReturnsWinnerUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	matchRepo := memory.NewMatchRepository()
	matchSvc := NewMatchService(matchRepo, id.NewRandomGenerator())
	matchSvc.now = func() time.Time { return now }

	item := match.Match{
		ID:           "m-001",
		Source:       "footballdata",
		ExternalID:   "9001",
		MatchDateUTC: now.Add(48 * time.Hour),
		Status:       match.StatusScheduled,
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := matchRepo.Create(ctx, item); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	winner := prediction.Prediction{
		ID:        "pr-winner",
		MatchID:   item.ID,
		Version:   "v1",
		CreatedAt: now,
	}

	predictionRepo := predictionmock.NewRepository(t)
	predictionRepo.
		On("GetByMatchID", mock.Anything, item.ID).
		Return(prediction.Prediction{}, false, nil).
		Once()
	predictionRepo.
		On("Create", mock.Anything, mock.AnythingOfType("prediction.Prediction")).
		Return(prediction.ErrAlreadyExists).
		Once()
	predictionRepo.
		On("GetByMatchID", mock.Anything, item.ID).
		Return(winner, true, nil).
		Once()

	completer := &fakeCompleter{replies: []completerReply{{text: validModelJSON}}}
	service := NewPredictionService(predictionRepo, matchRepo, matchSvc, completer, nil, id.NewRandomGenerator(), PredictionConfig{}, logging.NewNop())
	service.now = func() time.Time { return now }
	service.newRetryPolicy = func() backoff.BackOff { return &backoff.ZeroBackOff{} }

	got, err := service.Generate(ctx, item, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("expected the winner row after a lost create race, got %q", got.ID)
	}

	stored, _, err := matchRepo.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if stored.PredictionID != winner.ID {
		t.Fatalf("match must link the winner prediction, got %q", stored.PredictionID)
	}
}
