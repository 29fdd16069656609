package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/crux-journal/internal/database"
	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/queue"
	"github.com/benvon/crux-journal/internal/services/coach"
	"github.com/benvon/crux-journal/internal/validation"
)

const (
	// DefaultClimbListLimit is the default number of climbs returned by ListClimbs
	DefaultClimbListLimit = 50
	// MaxClimbListLimit caps ?limit= on ListClimbs
	MaxClimbListLimit = 500
	// MaxNotesLength is the maximum length for climb notes after sanitization
	MaxNotesLength = 5000
)

// TagExtractor extracts tags from one climb's notes
type TagExtractor interface {
	Extract(ctx context.Context, userID, climbID uuid.UUID) (*coach.TagOutcome, error)
}

var _ TagExtractor = (*coach.TagExtractor)(nil)

// ClimbHandler handles climb log requests
type ClimbHandler struct {
	climbRepo database.ClimbRepositoryInterface
	tags      TagExtractor
	jobQueue  queue.JobQueue
	logger    *zap.Logger
	now       func() time.Time
}

// NewClimbHandler creates a new climb handler. jobQueue may be nil, in which case
// tags are only extracted on demand.
func NewClimbHandler(climbRepo database.ClimbRepositoryInterface, tags TagExtractor, jobQueue queue.JobQueue, logger *zap.Logger) *ClimbHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClimbHandler{
		climbRepo: climbRepo,
		tags:      tags,
		jobQueue:  jobQueue,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterRoutes registers climb routes on the given router
// The router should already have the /climbs prefix
func (h *ClimbHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListClimbs).Methods("GET")
	r.HandleFunc("", h.CreateClimb).Methods("POST")
	r.HandleFunc("/{id}", h.GetClimb).Methods("GET")
	r.HandleFunc("/{id}/send", h.MarkSent).Methods("POST")
	r.HandleFunc("/{id}/extract-tags", h.ExtractTags).Methods("POST")
}

// CreateClimbRequest represents a logged attempt
type CreateClimbRequest struct {
	GradeScale     string                 `json:"grade_scale" validate:"required,grade_scale"`
	Grade          string                 `json:"grade" validate:"required,nonblank,max=10"`
	Discipline     models.Discipline      `json:"discipline" validate:"required,discipline"`
	Location       string                 `json:"location" validate:"max=200"`
	Style          []models.ClimbStyle    `json:"style" validate:"max=16,dive,climb_style"`
	Outcome        models.Outcome         `json:"outcome" validate:"required,outcome"`
	Awkwardness    models.Awkwardness     `json:"awkwardness" validate:"awkwardness"`
	FailureReasons []models.FailureReason `json:"failure_reasons" validate:"max=14,dive,failure_reason"`
	HoldColor      *string                `json:"hold_color,omitempty" validate:"omitempty,max=30"`
	Notes          string                 `json:"notes" validate:"max=10000"`
}

// ListClimbs lists the user's climbs, newest first
func (h *ClimbHandler) ListClimbs(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	limit := queryLimit(r, DefaultClimbListLimit, MaxClimbListLimit)
	climbs, err := h.climbRepo.ListRecentByUser(r.Context(), user.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve climbs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"climbs": climbs,
		"limit":  limit,
	})
}

// CreateClimb logs a climb and queues tag extraction when it has notes
func (h *ClimbHandler) CreateClimb(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateClimbRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateGrade(req.GradeScale, req.Grade); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	notes := validation.SanitizeText(req.Notes)
	if len([]rune(notes)) > MaxNotesLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Notes exceed maximum length")
		return
	}

	climb := &models.Climb{
		ID:             uuid.New(),
		UserID:         user.ID,
		GradeScale:     req.GradeScale,
		Grade:          req.Grade,
		Discipline:     req.Discipline,
		Location:       validation.SanitizeText(req.Location),
		Style:          dedupe(req.Style),
		Outcome:        req.Outcome,
		Awkwardness:    req.Awkwardness,
		FailureReasons: dedupe(req.FailureReasons),
		HoldColor:      req.HoldColor,
		Notes:          notes,
	}

	ctx := r.Context()
	if err := h.climbRepo.Create(ctx, climb); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create climb")
		return
	}

	if climb.Notes != "" {
		h.enqueueTagExtraction(ctx, climb)
	}

	respondJSON(w, http.StatusCreated, climb)
}

// enqueueTagExtraction is best effort: the climb is already saved and tags can be extracted on demand
func (h *ClimbHandler) enqueueTagExtraction(ctx context.Context, climb *models.Climb) {
	if h.jobQueue == nil {
		return
	}
	job := queue.NewJob(queue.JobTypeTagExtraction, climb.UserID, &climb.ID)
	if err := h.jobQueue.Enqueue(ctx, job); err != nil {
		h.logger.Warn("failed_to_enqueue_tag_extraction",
			zap.String("climb_id", climb.ID.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}

// GetClimb retrieves one of the user's climbs
func (h *ClimbHandler) GetClimb(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	climb, ok := h.loadOwnedClimb(w, r, user.ID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, climb)
}

// MarkSent records a send of a previously failed climb
func (h *ClimbHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	climb, ok := h.loadOwnedClimb(w, r, user.ID)
	if !ok {
		return
	}
	if climb.IsSent() {
		respondJSON(w, http.StatusOK, climb)
		return
	}

	updated, err := h.climbRepo.MarkSent(r.Context(), climb.ID, h.now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Climb not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update climb")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// ExtractTags runs tag extraction synchronously. Misses are reported with a hint, not an error.
func (h *ClimbHandler) ExtractTags(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "climb")
	if !ok {
		return
	}

	outcome, err := h.tags.Extract(r.Context(), user.ID, id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, outcome)
	case errors.Is(err, coach.ErrClimbNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Climb not found")
	case errors.Is(err, coach.ErrForbidden):
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Climb does not belong to user")
	default:
		h.logger.Error("tag_extraction_request_failed",
			zap.String("climb_id", id.String()),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to extract tags")
	}
}

func (h *ClimbHandler) loadOwnedClimb(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Climb, bool) {
	id, ok := pathID(w, r, "climb")
	if !ok {
		return nil, false
	}

	climb, err := h.climbRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Climb not found")
			return nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve climb")
		return nil, false
	}

	if climb.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "Climb does not belong to user")
		return nil, false
	}
	return climb, true
}

// dedupe drops repeated tags, keeping first-seen order
func dedupe[T comparable](in []T) []T {
	out := make([]T, 0, len(in))
	seen := make(map[T]struct{}, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
