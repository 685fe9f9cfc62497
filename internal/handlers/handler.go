package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/4444ph/capstone-2/internal/chat"
	"github.com/4444ph/capstone-2/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db    store.DataStore
	chat  *chat.Service
	redis *store.RedisStore
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(db store.DataStore, chatSvc *chat.Service, redis *store.RedisStore) *Handler {
	return &Handler{db: db, chat: chatSvc, redis: redis}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
