package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/middleware"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/validation"
)

const maxErrorMessageLength = 200

// apiResponse is the success envelope
type apiResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already out, so an encode failure cannot be reported to the client.
	_ = json.NewEncoder(w).Encode(body)
}

// respondJSON wraps data in the success envelope
func respondJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, apiResponse{Success: true, Data: data, Timestamp: timestamp()})
}

// respondJSONError writes the error envelope. Messages are cut to maxErrorMessageLength.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSONErrorWith(w, status, errorType, message, nil)
}

// respondJSONErrorWith adds top-level fields such as resets_in. Envelope keys win over extra.
func respondJSONErrorWith(w http.ResponseWriter, status int, errorType, message string, extra map[string]any) {
	body := make(map[string]any, len(extra)+4)
	for k, v := range extra {
		body[k] = v
	}
	body["success"] = false
	body["error"] = errorType
	body["message"] = logpkg.SanitizeString(message, maxErrorMessageLength)
	body["timestamp"] = timestamp()
	writeJSON(w, status, body)
}

// requireUser returns the authenticated user or writes a 401
func requireUser(w http.ResponseWriter, r *http.Request) *models.User {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
	}
	return user
}

// decodeJSON decodes the request body into v and validates it. On failure it writes
// a 400 or 413 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}

	if err := validation.Validate.Struct(v); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			fe := validationErrors[0]
			respondJSONError(w, http.StatusBadRequest, "Bad Request",
				fmt.Sprintf("Validation failed: %s is invalid (%s)", fe.Field(), fe.Tag()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}

// pathID parses the {id} route variable or writes a 400
func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// queryLimit reads ?limit=, falling back to def and capping at max
func queryLimit(r *http.Request, def, max int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
