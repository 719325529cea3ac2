package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/upcoming", handler.ListUpcomingMatches)
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatch)
	mux.HandleFunc("GET /v1/predictions/buckets/{bucket}", handler.ListPredictionsByBucket)
	mux.HandleFunc("GET /v1/settlements/recent", handler.ListRecentSettlements)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, jobSecret string) {
	mux.Handle("POST /v1/internal/jobs/run-pipeline", RequireJobSecret(jobSecret, http.HandlerFunc(handler.RunPipelineJob)))
	mux.Handle("POST /v1/internal/jobs/fetch-matches", RequireJobSecret(jobSecret, http.HandlerFunc(handler.RunFetchMatchesJob)))
	mux.Handle("POST /v1/internal/jobs/run-predictions", RequireJobSecret(jobSecret, http.HandlerFunc(handler.RunPredictionsJob)))
	mux.Handle("POST /v1/internal/jobs/fetch-results", RequireJobSecret(jobSecret, http.HandlerFunc(handler.RunFetchResultsJob)))
	mux.Handle("POST /v1/internal/jobs/settle-results", RequireJobSecret(jobSecret, http.HandlerFunc(handler.RunSettlementJob)))
}
