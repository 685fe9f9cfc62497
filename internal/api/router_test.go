package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4444ph/capstone-2/internal/chat"
	"github.com/4444ph/capstone-2/internal/llm"
	"github.com/4444ph/capstone-2/internal/store"
)

// scriptedGenerator returns canned replies, or an error when failing.
type scriptedGenerator struct {
	reply   string
	failing bool
}

func (g *scriptedGenerator) Generate(_ context.Context, _ []llm.Turn) (string, error) {
	if g.failing {
		return "", errors.New("backend unavailable")
	}
	return g.reply, nil
}

type testServer struct {
	srv *httptest.Server
	db  *store.SQLiteStore
	gen *scriptedGenerator
	svc *chat.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	gen := &scriptedGenerator{reply: "canned reply"}
	svc := chat.NewService(db, gen, zerolog.Nop())
	t.Cleanup(svc.Close)

	router := NewRouter(zerolog.Nop(), db, svc, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, db: db, gen: gen, svc: svc}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var fields map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&fields)
	return resp, fields
}

func (ts *testServer) createSession(t *testing.T, userID string) string {
	t.Helper()
	resp, fields := ts.do(t, http.MethodPost, "/sessions", map[string]string{"userId": userID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sessionID string
	require.NoError(t, json.Unmarshal(fields["sessionId"], &sessionID))
	return sessionID
}

func TestCreateSessionValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sessionID := ts.createSession(t, "u1")
	assert.NotEmpty(t, sessionID)
}

func TestListSessions(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/sessions", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	first := ts.createSession(t, "u1")
	second := ts.createSession(t, "u1")

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/sessions?userId=u1", nil)
	require.NoError(t, err)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var sessions []struct {
		ID    string  `json:"id"`
		Title *string `json:"title"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&sessions))
	require.Len(t, sessions, 2)
	// Newest first; both untitled.
	assert.Equal(t, second, sessions[0].ID)
	assert.Equal(t, first, sessions[1].ID)
	assert.Nil(t, sessions[0].Title)
}

func TestSendTurnScenario(t *testing.T) {
	ts := newTestServer(t)
	ts.gen.reply = "A pick and roll is a two-player play."

	sessionID := ts.createSession(t, "u1")

	resp, fields := ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId":    "u1",
		"sessionId": sessionID,
		"body":      "What is a pick and roll?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var output string
	require.NoError(t, json.Unmarshal(fields["output"], &output))
	assert.Equal(t, "A pick and roll is a two-player play.", output)

	// Log holds exactly user then assistant.
	msgResp, err := http.Get(ts.srv.URL + "/messages?userId=u1&sessionId=" + sessionID)
	require.NoError(t, err)
	defer msgResp.Body.Close()
	require.Equal(t, http.StatusOK, msgResp.StatusCode)

	var messages []struct {
		Sender    string `json:"sender"`
		Message   string `json:"message"`
		CreatedAt int64  `json:"createdAt"`
	}
	require.NoError(t, json.NewDecoder(msgResp.Body).Decode(&messages))
	require.Len(t, messages, 2)
	assert.Equal(t, "user", messages[0].Sender)
	assert.Equal(t, "What is a pick and roll?", messages[0].Message)
	assert.Equal(t, "assistant", messages[1].Sender)

	// Title appears once synthesis completes.
	require.Eventually(t, func() bool {
		listResp, err := http.Get(ts.srv.URL + "/sessions?userId=u1")
		if err != nil {
			return false
		}
		defer listResp.Body.Close()
		var sessions []struct {
			Title *string `json:"title"`
		}
		if err := json.NewDecoder(listResp.Body).Decode(&sessions); err != nil {
			return false
		}
		return len(sessions) == 1 && sessions[0].Title != nil && *sessions[0].Title != ""
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSendTurnBackendFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.gen.failing = true

	sessionID := ts.createSession(t, "u1")

	resp, fields := ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId":    "u1",
		"sessionId": sessionID,
		"body":      "hello",
	})
	// Backend failure is not an HTTP error: the fallback is a normal reply.
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var output string
	require.NoError(t, json.Unmarshal(fields["output"], &output))
	assert.Equal(t, chat.FallbackReply, output)

	msgResp, err := http.Get(ts.srv.URL + "/messages?userId=u1&sessionId=" + sessionID)
	require.NoError(t, err)
	defer msgResp.Body.Close()
	var messages []struct {
		Sender string `json:"sender"`
	}
	require.NoError(t, json.NewDecoder(msgResp.Body).Decode(&messages))
	assert.Len(t, messages, 2)
}

func TestSendTurnValidationAndOwnership(t *testing.T) {
	ts := newTestServer(t)
	sessionID := ts.createSession(t, "u1")

	resp, _ := ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId": "u1", "sessionId": sessionID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId": "u1", "sessionId": "not-a-uuid", "body": "hi",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId": "intruder", "sessionId": sessionID, "body": "hi",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A missing session looks identical to a foreign one.
	resp, _ = ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId": "u1", "sessionId": "00000000-0000-0000-0000-000000000099", "body": "hi",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListMessagesOwnership(t *testing.T) {
	ts := newTestServer(t)
	sessionID := ts.createSession(t, "u1")

	resp, _ := ts.do(t, http.MethodGet, "/messages?sessionId="+sessionID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/messages?userId=intruder&sessionId="+sessionID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/messages?userId=u1&sessionId="+sessionID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteSessionCascade(t *testing.T) {
	ts := newTestServer(t)
	sessionID := ts.createSession(t, "u1")

	_, _ = ts.do(t, http.MethodPost, "/messages", map[string]string{
		"userId": "u1", "sessionId": sessionID, "body": "hello",
	})

	resp, _ := ts.do(t, http.MethodDelete, "/sessions", map[string]string{
		"userId": "intruder", "sessionId": sessionID,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, fields := ts.do(t, http.MethodDelete, "/sessions", map[string]string{
		"userId": "u1", "sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var message string
	require.NoError(t, json.Unmarshal(fields["message"], &message))
	assert.Equal(t, "Chat session deleted successfully", message)

	// Gone for list-messages too, reported as the usual 403.
	resp, _ = ts.do(t, http.MethodGet, "/messages?userId=u1&sessionId="+sessionID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/sessions", map[string]string{
		"userId": "u1", "sessionId": sessionID,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteSessionValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodDelete, "/sessions", map[string]string{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodDelete, "/sessions", map[string]string{
		"userId": "u1", "sessionId": "not-a-uuid",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndRoot(t *testing.T) {
	ts := newTestServer(t)

	resp, fields := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var status string
	require.NoError(t, json.Unmarshal(fields["status"], &status))
	assert.Equal(t, "healthy", status)

	resp, _ = ts.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireJSONContentType(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/sessions", bytes.NewBufferString(`{"userId":"u1"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}
