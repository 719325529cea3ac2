package httpapi

import "net/http"

func (h *Handler) ListRecentSettlements(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRecentSettlements")
	defer span.End()

	limit, err := parseLimitQuery(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.settlementService.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list recent settlements failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]settlementDTO, 0, len(records))
	for _, rec := range records {
		items = append(items, settlementToDTO(ctx, rec))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}
