package httpapi

import (
	"net/http"

	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

type Handler struct {
	matchService      *usecase.MatchService
	predictionService *usecase.PredictionService
	settlementService *usecase.SettlementService
	ingestionService  *usecase.IngestionService
	pipelineService   *usecase.PipelineService
	logger            *logging.Logger
}

func NewHandler(
	matchService *usecase.MatchService,
	predictionService *usecase.PredictionService,
	settlementService *usecase.SettlementService,
	ingestionService *usecase.IngestionService,
	pipelineService *usecase.PipelineService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchService:      matchService,
		predictionService: predictionService,
		settlementService: settlementService,
		ingestionService:  ingestionService,
		pipelineService:   pipelineService,
		logger:            logger,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
