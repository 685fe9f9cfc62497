package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4444ph/capstone-2/internal/llm"
	"github.com/4444ph/capstone-2/internal/models"
)

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Pick and Roll Basics", cleanTitle("  \"Pick and Roll Basics\"\n"))
	assert.Equal(t, "One line", cleanTitle("One\nline"))
	assert.Equal(t, "", cleanTitle("  "))

	long := make([]rune, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, 'x')
	}
	assert.Len(t, []rune(cleanTitle(string(long))), maxTitleLength)
}

func TestSynthesizeTitleSwallowsBackendFailure(t *testing.T) {
	db := newFakeStore()
	gen := generatorFunc(func(_ context.Context, _ []llm.Turn) (string, error) {
		return "", errors.New("backend down")
	})
	svc := NewService(db, gen, zerolog.Nop())

	session, err := db.CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, db.AppendMessage(context.Background(), &models.ChatMessage{
		SessionID: session.ID, UserID: "u1", Sender: models.SenderUser, Body: "hi",
	}))

	svc.synthesizeTitle(session.ID)

	got, err := db.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Title)
}

func TestSynthesizeTitleLosesRaceSilently(t *testing.T) {
	db := newFakeStore()
	gen := generatorFunc(func(_ context.Context, _ []llm.Turn) (string, error) {
		return "a new title", nil
	})
	svc := NewService(db, gen, zerolog.Nop())

	session, err := db.CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	require.NoError(t, db.AppendMessage(context.Background(), &models.ChatMessage{
		SessionID: session.ID, UserID: "u1", Sender: models.SenderUser, Body: "hi",
	}))
	require.NoError(t, db.SetSessionTitle(context.Background(), session.ID, "existing"))

	svc.synthesizeTitle(session.ID)

	// The concurrent winner's title is untouched.
	got, err := db.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Title)
	assert.Equal(t, "existing", *got.Title)
}

func TestTitlePromptUsesOpeningMessages(t *testing.T) {
	db := newFakeStore()
	var prompt string
	gen := generatorFunc(func(_ context.Context, history []llm.Turn) (string, error) {
		prompt = history[len(history)-1].Text
		return "title", nil
	})
	svc := NewService(db, gen, zerolog.Nop())

	session, err := db.CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	for _, body := range []string{"one", "two", "three", "four"} {
		require.NoError(t, db.AppendMessage(context.Background(), &models.ChatMessage{
			SessionID: session.ID, UserID: "u1", Sender: models.SenderUser, Body: body,
		}))
	}

	svc.synthesizeTitle(session.ID)

	// Only the first three messages feed the prompt.
	assert.Contains(t, prompt, "one, two, three")
	assert.NotContains(t, prompt, "four")
}
