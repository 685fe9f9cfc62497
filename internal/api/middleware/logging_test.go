package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRecordsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	body := `{"error":"invalid session for the given user"}`
	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(body))
	}))

	req := httptest.NewRequest(http.MethodGet, "/messages?userId=u1&sessionId=s-123", nil)
	req.Header.Set("User-Agent", "course-frontend/1.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/messages", entry["path"])
	assert.EqualValues(t, http.StatusForbidden, entry["status"])
	assert.EqualValues(t, len(body), entry["bytes"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "s-123", entry["session_id"])
	assert.Equal(t, "course-frontend/1.0", entry["user_agent"])
}

func TestLoggerOmitsAbsentIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	handler := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	_, hasUser := entry["user_id"]
	assert.False(t, hasUser)
	_, hasSession := entry["session_id"]
	assert.False(t, hasSession)
}
