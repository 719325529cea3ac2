package httpapi

import "net/http"

func (h *Handler) ListPredictionsByBucket(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPredictionsByBucket")
	defer span.End()

	limit, err := parseLimitQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	bucket := r.PathValue("bucket")
	predictions, err := h.predictionService.ListByBucket(ctx, bucket, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list predictions by bucket failed", "bucket", bucket, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]predictionDTO, 0, len(predictions))
	for _, p := range predictions {
		items = append(items, predictionToDTO(ctx, p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
