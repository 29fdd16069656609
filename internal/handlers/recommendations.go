package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/coach"
)

// RecommendationService generates and reads weekly training plans
type RecommendationService interface {
	Generate(ctx context.Context, userID uuid.UUID) (*coach.Outcome, error)
	Latest(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error)
}

var _ RecommendationService = (*coach.RecommendationService)(nil)

// RecommendationHandler handles weekly plan requests
type RecommendationHandler struct {
	recs   RecommendationService
	logger *zap.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recs RecommendationService, logger *zap.Logger) *RecommendationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationHandler{recs: recs, logger: logger}
}

// RegisterRoutes registers recommendation routes
// The router should already have the /recommendations prefix
func (h *RecommendationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Generate).Methods("POST")
	r.HandleFunc("/latest", h.GetLatest).Methods("GET")
}

// RecommendationResponse is the body of a successful or degraded generation
type RecommendationResponse struct {
	Recommendation *models.Recommendation `json:"recommendation"`
	State          coach.State            `json:"state"`
	Attempts       int                    `json:"attempts"`
	IsCached       bool                   `json:"is_cached"`
	Warning        string                 `json:"warning,omitempty"`
}

// Generate runs the recommendation pipeline for the user
func (h *RecommendationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	outcome, err := h.recs.Generate(r.Context(), user.ID)
	if err != nil {
		h.respondGenerateError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RecommendationResponse{
		Recommendation: outcome.Recommendation,
		State:          outcome.State,
		Attempts:       outcome.Attempts,
		IsCached:       outcome.State == coach.StateDegradedCached,
		Warning:        outcome.Warning,
	})
}

func (h *RecommendationHandler) respondGenerateError(w http.ResponseWriter, err error) {
	var quotaErr *coach.QuotaError
	switch {
	case errors.As(err, &quotaErr):
		respondQuotaError(w, quotaErr)
	case errors.Is(err, coach.ErrUserNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "User not found")
	case errors.Is(err, coach.ErrGenerationFailed):
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "We couldn't generate a plan right now. Please try again later.")
	case errors.Is(err, context.Canceled):
		// client went away; nothing to write to
	default:
		h.logger.Error("recommendation_request_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to generate recommendation")
	}
}

// GetLatest returns the most recent usable plan
func (h *RecommendationHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	rec, err := h.recs.Latest(r.Context(), user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "No recommendation yet")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve recommendation")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// respondQuotaError writes a 429 with a human-readable reset hint
func respondQuotaError(w http.ResponseWriter, qe *coach.QuotaError) {
	w.Header().Set("Retry-After", qe.ResetsAt.UTC().Format(http.TimeFormat))
	respondJSONErrorWith(w, http.StatusTooManyRequests, "Too Many Requests", qe.Error(), map[string]any{
		"kind":      qe.Kind,
		"limit":     qe.Limit,
		"resets_in": qe.ResetsIn(),
	})
}
