package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4444ph/capstone-2/internal/llm"
	"github.com/4444ph/capstone-2/internal/metrics"
	"github.com/4444ph/capstone-2/internal/store"
)

const (
	// titleContextMessages is how many opening messages feed the title
	// prompt. Three turns carry enough signal for a short label.
	titleContextMessages = 3

	maxTitleLength = 120

	titleTimeout = 30 * time.Second
)

// synthesizeTitle labels the session from its opening messages. It runs
// detached from the originating request and is best-effort throughout: a
// backend failure or a lost SetSessionTitle race leaves the session
// untitled or titled by the other writer, and neither is retried.
func (s *Service) synthesizeTitle(sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
	defer cancel()

	log := s.logger.With().Stringer("session_id", sessionID).Logger()

	history, err := s.store.ListMessages(ctx, sessionID)
	if err != nil || len(history) == 0 {
		log.Debug().Err(err).Msg("title synthesis skipped: no history")
		metrics.TitlesSynthesized.WithLabelValues("error").Inc()
		return
	}
	if len(history) > titleContextMessages {
		history = history[:titleContextMessages]
	}

	opening := make([]string, 0, len(history))
	for _, msg := range history {
		opening = append(opening, msg.Body)
	}

	prompt := []llm.Turn{{Role: llm.RoleUser, Text: llm.TitlePrompt(opening)}}
	title, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		log.Debug().Err(err).Msg("title generation failed")
		metrics.TitlesSynthesized.WithLabelValues("error").Inc()
		return
	}

	title = cleanTitle(title)
	if title == "" {
		log.Debug().Msg("title generation returned empty text")
		metrics.TitlesSynthesized.WithLabelValues("error").Inc()
		return
	}

	if err := s.store.SetSessionTitle(ctx, sessionID, title); err != nil {
		if errors.Is(err, store.ErrTitleAlreadySet) {
			log.Debug().Msg("lost title race, keeping existing title")
			metrics.TitlesSynthesized.WithLabelValues("lost_race").Inc()
			return
		}
		log.Warn().Err(err).Msg("failed to store session title")
		metrics.TitlesSynthesized.WithLabelValues("error").Inc()
		return
	}

	log.Debug().Str("title", title).Msg("session title set")
	metrics.TitlesSynthesized.WithLabelValues("ok").Inc()
}

// cleanTitle normalizes model output into a single short line.
func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	title = strings.Trim(title, `"'`)
	title = strings.Join(strings.Fields(title), " ")
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	return title
}
