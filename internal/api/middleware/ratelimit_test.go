package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryUserKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/messages?userId=u1&sessionId=s1", nil)
	assert.Equal(t, "ratelimit:user:u1", queryUserKey(req))

	req = httptest.NewRequest("GET", "/messages", nil)
	req.RemoteAddr = "10.0.0.7:52000"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", queryUserKey(req))
}

func TestBodyUserKey(t *testing.T) {
	payload := `{"userId":"u1","sessionId":"s1","body":"What is a pick and roll?"}`
	req := httptest.NewRequest("POST", "/messages", strings.NewReader(payload))

	assert.Equal(t, "ratelimit:user:u1", bodyUserKey(req))

	// The body must survive the peek for the handler to decode.
	rest, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(rest))
}

func TestBodyUserKeyFallsBackToIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/messages", strings.NewReader("not json"))
	req.RemoteAddr = "10.0.0.7:52000"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", bodyUserKey(req))

	req = httptest.NewRequest("POST", "/messages", strings.NewReader(`{"body":"hi"}`))
	req.RemoteAddr = "10.0.0.7:52000"
	assert.Equal(t, "ratelimit:ip:10.0.0.7", bodyUserKey(req))
}

func TestRealIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/sessions", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", RealIP(req))
}
