package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Question string `json:"question" validate:"required"`
	UserID   string `json:"user_id" validate:"required"`
}

// ChatHandler answers questions about an owner's statements.
type ChatHandler struct {
	assistant Assistant
	log       zerolog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(assistant Assistant, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{assistant: assistant, log: log}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if msg, ok := decodeJSON(r, &req); !ok {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	answer, err := h.assistant.Ask(r.Context(), req.UserID, req.Question)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", req.UserID).Msg("Chat failed")
		middleware.WriteError(w, http.StatusInternalServerError, "An internal error occurred: "+err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"response": answer})
}
