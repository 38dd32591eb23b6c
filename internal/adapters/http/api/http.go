// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/okian/orbit-recommendation/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Next(ctx context.Context, userID string) model.Recommendation
	All(ctx context.Context, userID string) []model.Recommendation
	Contextual(ctx context.Context, userID, courseID, pathID string) model.Recommendation
	Invalidate(ctx context.Context, userID, courseID, pathID string) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler          *HealthHandler
	statsHandler           *StatsHandler
	recommendationsHandler *RecommendationsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:          NewHealthHandler(),
		statsHandler:           NewStatsHandler(statsProvider),
		recommendationsHandler: NewRecommendationsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /recommendations/users/{userId}/next",
		MetricsMiddleware(s.recommendationsHandler.HandleGetNext, "next"))
	mux.HandleFunc("GET /recommendations/users/{userId}",
		MetricsMiddleware(s.recommendationsHandler.HandleGetAll, "all"))
	mux.HandleFunc("DELETE /recommendations/users/{userId}/cache",
		MetricsMiddleware(s.recommendationsHandler.HandleInvalidate, "invalidate"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
