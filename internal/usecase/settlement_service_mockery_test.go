package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pola-png/prediction-engine/internal/domain/settlement"
	settlementmock "github.com/pola-png/prediction-engine/internal/mocks/domain/settlement"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
)

func TestSettlementService_ListRecent_UsingMockery(t *testing.T) {
	t.Parallel()

	settlementRepo := settlementmock.NewRepository(t)
	service := NewSettlementService(nil, nil, settlementRepo, nil, logging.NewNop())

	expected := []settlement.Record{
		{
			ID:           "st-001",
			MatchID:      "m-001",
			PredictionID: "pr-001",
			ResolvedAt:   time.Date(2026, 8, 29, 21, 30, 0, 0, time.UTC),
			Result: settlement.Result{
				HomeGoals: 2,
				AwayGoals: 1,
				Outcome:   "home",
				Over15:    true,
				Over25:    true,
			},
			Correctness: settlement.Correctness{OneXTwo: true, Over15: true},
		},
	}

	settlementRepo.
		On("ListRecent", mock.Anything, 20).
		Return(expected, nil).
		Once()

	got, err := service.ListRecent(context.Background(), 20)
	if err != nil {
		t.Fatalf("list recent settlements: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected settlement count: got=%d want=1", len(got))
	}
	if got[0].MatchID != expected[0].MatchID {
		t.Fatalf("unexpected match id: got=%s want=%s", got[0].MatchID, expected[0].MatchID)
	}
}

func TestSettlementService_ListRecent_DefaultLimitUsingMockery(t *testing.T) {
	t.Parallel()

	settlementRepo := settlementmock.NewRepository(t)
	service := NewSettlementService(nil, nil, settlementRepo, nil, logging.NewNop())

	settlementRepo.
		On("ListRecent", mock.Anything, 50).
		Return(nil, nil).
		Once()

	if _, err := service.ListRecent(context.Background(), -3); err != nil {
		t.Fatalf("list recent settlements: %v", err)
	}
}
