package api

import (
	"fmt"
	"net/http"
	"strings"
)

// RecommendationsHandler serves next-step recommendations.
type RecommendationsHandler struct {
	deps Dependencies
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps Dependencies) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps}
}

// HandleGetNext handles GET /recommendations/users/{userId}/next. Either of
// the courseId and pathId query parameters selects the scoped variant.
func (h *RecommendationsHandler) HandleGetNext(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	courseID, pathID := scopeFrom(r)
	if courseID == "" && pathID == "" {
		writeJSON(w, http.StatusOK, h.deps.Next(r.Context(), userID))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Contextual(r.Context(), userID, courseID, pathID))
}

// HandleGetAll handles GET /recommendations/users/{userId}.
func (h *RecommendationsHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.All(r.Context(), userID))
}

// HandleInvalidate handles DELETE /recommendations/users/{userId}/cache.
func (h *RecommendationsHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(w, r)
	if !ok {
		return
	}
	courseID, pathID := scopeFrom(r)
	if err := h.deps.Invalidate(r.Context(), userID, courseID, pathID); err != nil {
		writeError(w, http.StatusServiceUnavailable, "cache_unavailable", fmt.Errorf("%w: %w", ErrCacheUnavailable, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userIDFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.PathValue("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing userId", ErrBadRequest))
		return "", false
	}
	return userID, true
}

func scopeFrom(r *http.Request) (courseID, pathID string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("courseId")), strings.TrimSpace(q.Get("pathId"))
}
