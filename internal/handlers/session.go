package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/4444ph/capstone-2/internal/metrics"
	"github.com/4444ph/capstone-2/internal/store"
)

// CreateSessionRequest represents the session creation request.
type CreateSessionRequest struct {
	UserID string `json:"userId"`
}

// CreateSessionResponse represents the session creation response.
type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// SessionResponse represents a session in list responses. Title is null
// until the session has been titled.
type SessionResponse struct {
	ID        string  `json:"id"`
	Title     *string `json:"title"`
	CreatedAt string  `json:"createdAt"`
}

// DeleteSessionRequest represents the session deletion request.
type DeleteSessionRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// CreateSession handles creating a new chat session for a user.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" {
		h.Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	session, err := h.db.CreateSession(r.Context(), req.UserID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create chat session")
		return
	}
	metrics.SessionsCreated.Inc()

	h.JSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID.String(),
	})
}

// ListSessions handles fetching all of a user's sessions, newest first.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.Error(w, http.StatusBadRequest, "userId is required")
		return
	}

	sessions, err := h.db.ListSessionsByUser(r.Context(), userID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch chat sessions")
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, SessionResponse{
			ID:        session.ID.String(),
			Title:     session.Title,
			CreatedAt: session.CreatedAt.UTC().Format(timeFormat),
		})
	}

	h.JSON(w, http.StatusOK, resp)
}

// DeleteSession handles deleting a session and its full message log.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	var req DeleteSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.SessionID == "" {
		h.Error(w, http.StatusBadRequest, "userId and sessionId are required")
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID format")
		return
	}

	if !h.ownsSession(w, r, sessionID, req.UserID) {
		return
	}

	if err := h.db.DeleteSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Deleted concurrently; the outcome the caller wanted.
			h.JSON(w, http.StatusOK, map[string]string{"message": "Chat session deleted successfully"})
			return
		}
		h.Error(w, http.StatusInternalServerError, "failed to delete chat session")
		return
	}
	metrics.SessionsDeleted.Inc()

	h.JSON(w, http.StatusOK, map[string]string{"message": "Chat session deleted successfully"})
}

// ownsSession verifies the session exists and belongs to userID. Missing
// and foreign sessions get the same 403 so session IDs cannot be probed.
func (h *Handler) ownsSession(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, userID string) bool {
	session, err := h.db.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusForbidden, "invalid session for the given user")
			return false
		}
		h.Error(w, http.StatusInternalServerError, "database error")
		return false
	}
	if session.UserID != userID {
		h.Error(w, http.StatusForbidden, "invalid session for the given user")
		return false
	}
	return true
}

const timeFormat = "2006-01-02T15:04:05.000Z"
