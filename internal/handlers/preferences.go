package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/validation"
)

// PreferencesHandler handles coaching preference requests
type PreferencesHandler struct {
	prefsRepo database.PreferencesRepositoryInterface
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(prefsRepo database.PreferencesRepositoryInterface) *PreferencesHandler {
	return &PreferencesHandler{prefsRepo: prefsRepo}
}

// RegisterRoutes registers preference routes
// The router should already have the /preferences prefix
func (h *PreferencesHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetPreferences).Methods("GET")
	r.HandleFunc("", h.UpdatePreferences).Methods("PUT")
}

// PreferencesResponse is the client view of a user's coaching preferences
type PreferencesResponse struct {
	ContextSummary string         `json:"context_summary,omitempty"`
	Preferences    map[string]any `json:"preferences"`
}

// UpdatePreferencesRequest updates the summary and merges preference keys.
// A null preference value removes the key.
type UpdatePreferencesRequest struct {
	ContextSummary *string        `json:"context_summary,omitempty" validate:"omitempty,max=2000"`
	Preferences    map[string]any `json:"preferences,omitempty" validate:"omitempty,max=50"`
}

// GetPreferences returns the user's coaching preferences, empty when none are stored
func (h *PreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	prefs, err := h.prefsRepo.GetByUserID(r.Context(), user.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve preferences")
		return
	}

	respondJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}

// UpdatePreferences merges the request into the stored preferences
func (h *PreferencesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req UpdatePreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	prefs, err := h.prefsRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve preferences")
			return
		}
		prefs = &models.CoachingPreferences{UserID: user.ID}
	}
	if prefs.Preferences == nil {
		prefs.Preferences = make(map[string]any)
	}

	if req.ContextSummary != nil {
		prefs.ContextSummary = validation.SanitizeText(*req.ContextSummary)
	}
	for k, v := range req.Preferences {
		if v == nil {
			delete(prefs.Preferences, k)
			continue
		}
		prefs.Preferences[k] = v
	}

	if err := h.prefsRepo.Upsert(ctx, prefs); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update preferences")
		return
	}

	respondJSON(w, http.StatusOK, toPreferencesResponse(prefs))
}

func toPreferencesResponse(prefs *models.CoachingPreferences) PreferencesResponse {
	resp := PreferencesResponse{Preferences: map[string]any{}}
	if prefs == nil {
		return resp
	}
	resp.ContextSummary = prefs.ContextSummary
	if prefs.Preferences != nil {
		resp.Preferences = prefs.Preferences
	}
	return resp
}
