package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/4444ph/capstone-2/internal/llm"
	"github.com/4444ph/capstone-2/internal/metrics"
	"github.com/4444ph/capstone-2/internal/models"
	"github.com/4444ph/capstone-2/internal/store"
)

var (
	// ErrEmptyMessage is returned when the user submits an empty turn.
	ErrEmptyMessage = errors.New("chat: message body is required")

	// ErrInvalidSession covers both a missing session and a session owned
	// by someone else, so callers cannot probe which session IDs exist.
	ErrInvalidSession = errors.New("chat: invalid session for the given user")
)

// FallbackReply is the assistant turn recorded and returned when the
// generative backend fails. The user always gets a reply to a sent message.
const FallbackReply = "Sorry, there was an error communicating with the assistant."

const (
	// firstExchangeCount is the message count that marks the end of the
	// first exchange (one user turn plus one assistant turn) and triggers
	// title synthesis.
	firstExchangeCount = 2

	generationTimeout = 60 * time.Second
)

// Service orchestrates conversational turns: it owns the append order of a
// turn, the call into the generative backend, and the one-shot title
// synthesis that follows the first exchange.
type Service struct {
	store     store.DataStore
	generator llm.Generator
	logger    zerolog.Logger

	titleWG sync.WaitGroup
}

// NewService creates the chat service.
func NewService(dataStore store.DataStore, generator llm.Generator, logger zerolog.Logger) *Service {
	return &Service{
		store:     dataStore,
		generator: generator,
		logger:    logger,
	}
}

// Close waits for in-flight title synthesis to finish.
func (s *Service) Close() {
	s.titleWG.Wait()
}

// Send runs one conversational exchange and returns the assistant's reply.
//
// Concurrent Sends against the same session are not serialized: their user
// and assistant appends may interleave in the log. Order keys stay unique
// and ascending, so the log remains well-formed, but the history handed to
// the backend may already be stale by the time the reply is appended.
func (s *Service) Send(ctx context.Context, sessionID uuid.UUID, userID, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyMessage
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidSession
		}
		return "", err
	}
	if session.UserID != userID {
		return "", ErrInvalidSession
	}

	log := s.logger.With().
		Stringer("session_id", sessionID).
		Str("user_id", userID).
		Logger()

	// From the first append onward the exchange must survive a client
	// disconnect: appended messages are permanent.
	ctx = context.WithoutCancel(ctx)

	userMsg := &models.ChatMessage{
		SessionID: sessionID,
		UserID:    userID,
		Sender:    models.SenderUser,
		Body:      body,
	}
	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		log.Error().Err(err).Msg("failed to append user message")
		return "", err
	}

	history, err := s.store.ListMessages(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read history")
		return "", err
	}

	// The freshly appended user turn is already the final entry of the
	// history read above; it is never appended to the prompt a second time.
	turns := historyToTurns(history)

	reply, genErr := s.generate(ctx, turns)
	outcome := "ok"
	if genErr != nil {
		log.Warn().Err(genErr).Msg("generation failed, substituting fallback reply")
		metrics.GenerationFailures.Inc()
		reply = FallbackReply
		outcome = "fallback"
	}

	assistantMsg := &models.ChatMessage{
		SessionID: sessionID,
		UserID:    models.AssistantUserID,
		Sender:    models.SenderAssistant,
		Body:      reply,
	}
	if err := s.store.AppendMessage(ctx, assistantMsg); err != nil {
		log.Error().Err(err).Msg("failed to append assistant message")
		return "", err
	}
	metrics.TurnsCompleted.WithLabelValues(outcome).Inc()

	// Counted explicitly from the store rather than inferred from side
	// effects. Concurrent first exchanges may both get here; the store's
	// title guard picks the single winner. Using >= keeps an interleaved
	// first exchange (count jumping past the threshold) from leaving the
	// session untitled.
	count, err := s.store.CountMessages(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count messages, using history length")
		count = int64(len(history)) + 1
	}
	if session.Title == nil && count >= firstExchangeCount {
		s.titleWG.Add(1)
		go func() {
			defer s.titleWG.Done()
			s.synthesizeTitle(sessionID)
		}()
	}

	return reply, nil
}

func (s *Service) generate(ctx context.Context, turns []llm.Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.generator.Generate(ctx, turns)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	return reply, err
}

// historyToTurns maps stored messages to backend roles. The role comes from
// the stored sender tag, never from comparing author identities.
func historyToTurns(history []models.ChatMessage) []llm.Turn {
	turns := make([]llm.Turn, 0, len(history))
	for _, msg := range history {
		role := llm.RoleUser
		if msg.Sender == models.SenderAssistant {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: msg.Body})
	}
	return turns
}
