package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/grades"
	"github.com/benvon/crux-journal/internal/patterns"
)

// AnalysisHandler serves statistics computed on demand from recent climbs
type AnalysisHandler struct {
	climbRepo database.ClimbRepositoryInterface
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(climbRepo database.ClimbRepositoryInterface) *AnalysisHandler {
	return &AnalysisHandler{climbRepo: climbRepo}
}

// RegisterRoutes registers analysis routes
// The router should already have the /analysis prefix
func (h *AnalysisHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/patterns", h.GetPatterns).Methods("GET")
	r.HandleFunc("/grades", h.GetGradeDistribution).Methods("GET")
}

// GetPatterns returns failure, style, frequency and success patterns over the latest climbs
func (h *AnalysisHandler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	climbs, err := h.climbRepo.ListRecentByUser(r.Context(), user.ID, patterns.WindowSize)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve climbs")
		return
	}

	respondJSON(w, http.StatusOK, patterns.Extract(climbs))
}

// GetGradeDistribution returns sends and failures per difficulty bucket.
// ?limit= widens the window up to MaxClimbListLimit climbs.
func (h *AnalysisHandler) GetGradeDistribution(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	limit := queryLimit(r, patterns.WindowSize, MaxClimbListLimit)
	climbs, err := h.climbRepo.ListRecentByUser(r.Context(), user.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve climbs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"buckets":         grades.Distribution(climbs),
		"climbs_analyzed": len(climbs),
	})
}
