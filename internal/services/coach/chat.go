package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benvon/crux-journal/internal/anonymize"
	"github.com/benvon/crux-journal/internal/database"
	"github.com/benvon/crux-journal/internal/models"
	"github.com/benvon/crux-journal/internal/patterns"
	"github.com/benvon/crux-journal/internal/services/ai"
)

const (
	// MaxChatMessageLength is the longest accepted user message, in characters
	MaxChatMessageLength = 2000
	// ChatHistoryTurns is how many earlier turns are sent with each message
	ChatHistoryTurns = 20

	chatMaxTokens = 800
)

// ChatService streams coach replies and keeps the conversation
type ChatService struct {
	provider ai.AIProvider
	messages database.ChatMessageRepositoryInterface
	climbs   database.ClimbRepositoryInterface
	prefs    database.PreferencesRepositoryInterface
	quota    *QuotaGuard
	usage    *UsageRecorder
	anon     *anonymize.Anonymizer
	logger   *zap.Logger
}

// NewChatService creates a chat service
func NewChatService(
	provider ai.AIProvider,
	messages database.ChatMessageRepositoryInterface,
	climbs database.ClimbRepositoryInterface,
	prefs database.PreferencesRepositoryInterface,
	quota *QuotaGuard,
	usage *UsageRecorder,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		provider: provider,
		messages: messages,
		climbs:   climbs,
		prefs:    prefs,
		quota:    quota,
		usage:    usage,
		anon:     anonymize.Default,
		logger:   logger,
	}
}

// ValidateMessage trims message and checks it is non-empty and short enough
func ValidateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidMessage)
	}
	if n := utf8.RuneCountInString(message); n > MaxChatMessageLength {
		return "", fmt.Errorf("%w: message is %d characters, maximum is %d", ErrInvalidMessage, n, MaxChatMessageLength)
	}
	return message, nil
}

// History returns the last limit turns, oldest first
func (s *ChatService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	return s.messages.ListRecent(ctx, userID, limit)
}

// Stream sends message to the coach and passes reply fragments to emit as they arrive.
// The user turn is stored before the call; the assistant turn only after a complete stream.
func (s *ChatService) Stream(ctx context.Context, userID uuid.UUID, message string, emit func(delta string) error) (*models.ChatMessage, error) {
	message, err := ValidateMessage(message)
	if err != nil {
		return nil, err
	}
	ctx = ai.WithUserID(ctx, userID)

	if err := s.quota.Consume(ctx, userID, models.QuotaChat); err != nil {
		return nil, err
	}

	var (
		history []models.ChatMessage
		climbs  []models.Climb
		prefs   *models.CoachingPreferences
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = s.messages.ListRecent(gctx, userID, ChatHistoryTurns)
		if err != nil {
			return fmt.Errorf("failed to load chat history: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		climbs, err = s.climbs.ListRecentByUser(gctx, userID, patterns.WindowSize)
		if err != nil {
			return fmt.Errorf("failed to load climbs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := s.prefs.GetByUserID(gctx, userID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to load preferences: %w", err)
		}
		prefs = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	system, err := buildChatSystemPrompt(anonymize.Analysis(patterns.Extract(climbs)), preferenceSummary(prefs, s.anon.Notes))
	if err != nil {
		return nil, err
	}

	userTurn := &models.ChatMessage{UserID: userID, Role: models.ChatRoleUser, Content: message}
	if err := s.messages.Create(ctx, userTurn); err != nil {
		return nil, fmt.Errorf("failed to save chat message: %w", err)
	}

	turns := make([]ai.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		turns = append(turns, ai.ChatMessage{Role: string(m.Role), Content: s.anon.Notes(m.Content)})
	}
	turns = append(turns, ai.ChatMessage{Role: string(models.ChatRoleUser), Content: s.anon.Notes(message)})

	req := ai.CompletionRequest{
		Operation:   ai.OperationChat,
		System:      system,
		Messages:    turns,
		MaxTokens:   chatMaxTokens,
		Temperature: 0.7,
	}

	completion, err := s.provider.Stream(ctx, req, emit)
	if err != nil {
		s.usage.Record(ctx, userID, ai.OperationChat, s.provider.Model(), ai.Usage{}, false)
		if ctx.Err() != nil {
			s.logger.Info("chat_stream_aborted",
				zap.String("user_id", ai.HashUserID(userID.String())),
			)
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("chat stream failed: %w", err)
	}
	s.usage.Record(ctx, userID, ai.OperationChat, modelOf(completion, s.provider), completion.Usage, true)

	reply := &models.ChatMessage{UserID: userID, Role: models.ChatRoleAssistant, Content: completion.Content}
	if err := s.messages.Create(context.WithoutCancel(ctx), reply); err != nil {
		return nil, fmt.Errorf("failed to save assistant reply: %w", err)
	}
	return reply, nil
}
