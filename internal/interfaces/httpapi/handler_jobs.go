package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/pola-png/prediction-engine/internal/usecase"
)

// runPredictionsRequest is the optional body of the run-predictions
// trigger. An empty body keeps the configured batch size.
type runPredictionsRequest struct {
	BatchSize int `json:"batchSize"`
}

func decodeRunPredictionsRequest(r *http.Request) (runPredictionsRequest, error) {
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req runPredictionsRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return runPredictionsRequest{}, nil
		}
		return runPredictionsRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	if req.BatchSize < 0 {
		return runPredictionsRequest{}, fmt.Errorf("%w: batchSize must be >= 0", usecase.ErrInvalidInput)
	}

	return req, nil
}

func (h *Handler) RunPipelineJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPipelineJob")
	defer span.End()

	if h.pipelineService == nil {
		writeError(ctx, w, fmt.Errorf("%w: pipeline service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.pipelineService.Run(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run pipeline job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunFetchMatchesJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFetchMatchesJob")
	defer span.End()

	if h.ingestionService == nil {
		writeError(ctx, w, fmt.Errorf("%w: ingestion service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.ingestionService.FetchAndStoreMatches(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run fetch matches job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunPredictionsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunPredictionsJob")
	defer span.End()

	if h.predictionService == nil {
		writeError(ctx, w, fmt.Errorf("%w: prediction service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeRunPredictionsRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.predictionService.ProcessPendingBatch(ctx, req.BatchSize)
	if err != nil {
		h.logger.WarnContext(ctx, "run predictions job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunFetchResultsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunFetchResultsJob")
	defer span.End()

	if h.ingestionService == nil {
		writeError(ctx, w, fmt.Errorf("%w: ingestion service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.ingestionService.FetchResults(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run fetch results job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunSettlementJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSettlementJob")
	defer span.End()

	if h.settlementService == nil {
		writeError(ctx, w, fmt.Errorf("%w: settlement service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	result, err := h.settlementService.ProcessResults(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "run settlement job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
