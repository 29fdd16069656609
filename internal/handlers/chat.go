package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	logpkg "github.com/benvon/crux-journal/internal/logger"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/services/coach"
)

const (
	defaultChatHistoryLimit = coach.ChatHistoryTurns
	maxChatHistoryLimit     = 100
)

// ChatService streams coach replies
type ChatService interface {
	Stream(ctx context.Context, userID uuid.UUID, message string, emit func(delta string) error) (*models.ChatMessage, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

var _ ChatService = (*coach.ChatService)(nil)

// ChatHandler handles coach chat requests
type ChatHandler struct {
	chat   ChatService
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{chat: chat, logger: logger}
}

// RegisterRoutes registers chat routes
// The router should already have the /coach prefix
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.SendMessage).Methods("POST")
	r.HandleFunc("/chat/history", h.GetHistory).Methods("GET")
}

// ChatMessageRequest represents a chat message request
type ChatMessageRequest struct {
	Message string `json:"message" validate:"required"`
}

// sseWriter starts the event stream on the first event so errors raised before
// any output can still be sent as ordinary JSON responses
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) send(event string, data any) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", formatSSEMessage(event, data)); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// SendMessage sends a message to the coach and streams the reply as server-sent events
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req ChatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message, err := coach.ValidateMessage(req.Message)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	flusher, _ := w.(http.Flusher)
	stream := &sseWriter{w: w, flusher: flusher}

	reply, err := h.chat.Stream(r.Context(), user.ID, message, func(delta string) error {
		return stream.send("delta", map[string]string{"content": delta})
	})
	if err != nil {
		h.respondStreamError(w, stream, err)
		return
	}

	if err := stream.send("done", reply); err != nil {
		h.logger.Debug("chat_stream_client_gone", zap.String("error", logpkg.SanitizeError(err)))
	}
}

func (h *ChatHandler) respondStreamError(w http.ResponseWriter, stream *sseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	if stream.started {
		h.logger.Warn("chat_stream_failed", zap.String("error", logpkg.SanitizeError(err)))
		_ = stream.send("error", map[string]string{"message": "The coach is unavailable right now. Please try again."})
		return
	}

	var quotaErr *coach.QuotaError
	switch {
	case errors.As(err, &quotaErr):
		respondQuotaError(w, quotaErr)
	case errors.Is(err, coach.ErrInvalidMessage):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("chat_request_failed", zap.String("error", logpkg.SanitizeError(err)))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "The coach is unavailable right now. Please try again.")
	}
}

// GetHistory returns the latest conversation turns, oldest first
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	limit := queryLimit(r, defaultChatHistoryLimit, maxChatHistoryLimit)
	messages, err := h.chat.History(r.Context(), user.ID, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve chat history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// formatSSEMessage formats a message for SSE
func formatSSEMessage(event string, data any) string {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(`{"event":"%s","data":%s}`, event, string(jsonData))
}
