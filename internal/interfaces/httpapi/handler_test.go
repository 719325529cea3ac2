package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/memory"
	"github.com/pola-png/prediction-engine/internal/platform/id"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

const testJobSecret = "cron-secret"

type emptyFeedAdapter struct{ name string }

func (a emptyFeedAdapter) Name() string { return a.name }

func (a emptyFeedAdapter) FetchMatches(context.Context) ([]usecase.SourceRecord, error) {
	return nil, nil
}

func (a emptyFeedAdapter) Normalize(usecase.SourceRecord) (usecase.MatchUpsert, bool, error) {
	return usecase.MatchUpsert{}, false, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memory.MatchRepository) {
	t.Helper()

	matchRepo := memory.NewMatchRepository()
	predRepo := memory.NewPredictionRepository()
	settleRepo := memory.NewSettlementRepository()
	teamRepo := memory.NewTeamRepository()

	idGen := id.NewRandomGenerator()
	nop := logging.NewNop()

	teamSvc := usecase.NewTeamService(teamRepo, idGen)
	matchSvc := usecase.NewMatchService(matchRepo, idGen)
	predictionSvc := usecase.NewPredictionService(predRepo, matchRepo, matchSvc, nil, nil, idGen, usecase.PredictionConfig{}, nop)
	settlementSvc := usecase.NewSettlementService(matchRepo, predRepo, settleRepo, idGen, nop)
	ingestionSvc := usecase.NewIngestionService(teamSvc, matchSvc, matchRepo, emptyFeedAdapter{name: "footballdata"}, emptyFeedAdapter{name: "apifootball"}, nil, nop)
	pipelineSvc := usecase.NewPipelineService(ingestionSvc, predictionSvc, settlementSvc, nop)

	handler := NewHandler(matchSvc, predictionSvc, settlementSvc, ingestionSvc, pipelineSvc, nop)
	return NewRouter(handler, nop, nil, testJobSecret), matchRepo
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestListUpcomingMatches_ReturnsSeededMatch(t *testing.T) {
	router, matchRepo := newTestRouter(t)

	seeded := match.Match{
		ID:           "m-1",
		Source:       "footballdata",
		ExternalID:   "1001",
		LeagueCode:   "PL",
		Season:       "2025-26",
		MatchDateUTC: time.Now().UTC().Add(24 * time.Hour),
		Status:       match.StatusScheduled,
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
	}
	if err := matchRepo.Create(context.Background(), seeded); err != nil {
		t.Fatalf("seed match: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/matches/upcoming", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected 1 upcoming match, got %v", body["data"])
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["homeTeam"].(string); got != "Arsenal" {
		t.Fatalf("expected homeTeam Arsenal, got %v", first["homeTeam"])
	}
}

func TestGetMatch_UnknownID(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/matches/no-such-id", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestListPredictionsByBucket_UnknownBucket(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/predictions/buckets/10odds", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestJobRoutes_RequireBearerSecret(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/fetch-matches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without a token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/fetch-matches", nil)
	req.Header.Set("Authorization", "Bearer "+testJobSecret)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 with the token, got %d (%s)", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	if got, _ := data["newMatchesCount"].(float64); got != 0 {
		t.Fatalf("expected newMatchesCount 0 for an empty feed, got %v", data["newMatchesCount"])
	}
}

func newRunPredictionsRequest(body io.Reader) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/run-predictions", body)
	req.Header.Set("Authorization", "Bearer "+testJobSecret)
	return req
}

func TestRunPredictionsJob_OptionalBatchSizeBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRunPredictionsRequest(nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for an empty body, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRunPredictionsRequest(strings.NewReader(`{"batchSize": 5}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for a batch size body, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeEnvelope(t, rec)
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}
	if got, _ := data["processedCount"].(float64); got != 0 {
		t.Fatalf("expected processedCount 0 with no pending matches, got %v", data["processedCount"])
	}
}

func TestRunPredictionsJob_RejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRunPredictionsRequest(strings.NewReader(`{"batchSize": -1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a negative batch size, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRunPredictionsRequest(strings.NewReader(`{"batch`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed JSON, got %d", rec.Code)
	}
}
