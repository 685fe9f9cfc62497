package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/4444ph/capstone-2/internal/chat"
)

// maxMessageBytes caps a single user turn.
const maxMessageBytes = 4096

// MessageResponse represents a message in list responses.
type MessageResponse struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"` // Unix ms
}

// SendMessageRequest represents the send-turn request.
type SendMessageRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	Body      string `json:"body"`
}

// SendMessageResponse represents the send-turn response.
type SendMessageResponse struct {
	Output string `json:"output"`
}

// ListMessages handles fetching a session's message log in order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	sessionIDStr := r.URL.Query().Get("sessionId")
	if userID == "" || sessionIDStr == "" {
		h.Error(w, http.StatusBadRequest, "userId and sessionId are required")
		return
	}

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID format")
		return
	}

	if !h.ownsSession(w, r, sessionID, userID) {
		return
	}

	messages, err := h.db.ListMessages(r.Context(), sessionID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	resp := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, MessageResponse{
			Sender:    string(msg.Sender),
			Message:   msg.Body,
			CreatedAt: msg.CreatedAt,
		})
	}

	h.JSON(w, http.StatusOK, resp)
}

// SendMessage handles one conversational turn.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.SessionID == "" || req.Body == "" {
		h.Error(w, http.StatusBadRequest, "userId, sessionId, and body are required")
		return
	}
	if len(req.Body) > maxMessageBytes {
		h.Error(w, http.StatusUnprocessableEntity, "body too long (max 4096 bytes)")
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid session ID format")
		return
	}

	output, err := h.chat.Send(r.Context(), sessionID, req.UserID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			h.Error(w, http.StatusBadRequest, "userId, sessionId, and body are required")
		case errors.Is(err, chat.ErrInvalidSession):
			h.Error(w, http.StatusForbidden, "invalid session for the given user")
		default:
			h.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.JSON(w, http.StatusOK, SendMessageResponse{Output: output})
}
