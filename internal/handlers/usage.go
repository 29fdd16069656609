package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/services/coach"
)

// QuotaStatusReader reports a user's daily counters
type QuotaStatusReader interface {
	Status(ctx context.Context, userID uuid.UUID) ([]coach.QuotaStatus, error)
}

var _ QuotaStatusReader = (*coach.QuotaGuard)(nil)

// UsageHandler reports daily allowances and generative usage
type UsageHandler struct {
	quota     QuotaStatusReader
	usageRepo database.UsageRepositoryInterface
	now       func() time.Time
}

// NewUsageHandler creates a new usage handler
func NewUsageHandler(quota QuotaStatusReader, usageRepo database.UsageRepositoryInterface) *UsageHandler {
	return &UsageHandler{
		quota:     quota,
		usageRepo: usageRepo,
		now:       time.Now,
	}
}

// RegisterRoutes registers usage routes
// The router should already have the /usage prefix
func (h *UsageHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/today", h.GetToday).Methods("GET")
}

// UsageTodayResponse is today's quota counters and accounted usage
type UsageTodayResponse struct {
	Date   string                `json:"date"`
	Quotas []coach.QuotaStatus   `json:"quotas"`
	Usage  *database.UsageTotals `json:"usage"`
}

// GetToday returns counters and usage since UTC midnight
func (h *UsageHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx := r.Context()
	statuses, err := h.quota.Status(ctx, user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve quotas")
		return
	}

	today := database.UTCDate(h.now())
	totals, err := h.usageRepo.TotalsSince(ctx, user.ID, today)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve usage")
		return
	}

	respondJSON(w, http.StatusOK, UsageTodayResponse{
		Date:   today.Format(time.DateOnly),
		Quotas: statuses,
		Usage:  totals,
	})
}
