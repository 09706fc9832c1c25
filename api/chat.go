package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yataro/chatterbox/llm"
	"github.com/yataro/chatterbox/store"
)

// ChatRequest is one submitted turn. SessionID is optional: a missing or
// dangling id silently gets a fresh session, which is reported back so the
// client can hold on to it.
type ChatRequest struct {
	SessionID *int64 `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse carries the generated reply and the session the turn was
// persisted under.
type ChatResponse struct {
	SessionID int64  `json:"session_id"`
	Reply     string `json:"reply"`
}

// Chat handles one conversation turn: resolve the session, load its history,
// generate and persist the reply.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	sess, err := h.store.GetOrCreateSession(ctx, req.SessionID)
	if err != nil {
		log.Printf("ERROR: failed to resolve session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to resolve session"})
	}

	history, err := h.service.History(ctx, sess.ID)
	if err != nil {
		log.Printf("ERROR: failed to load history: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
	}

	reply, err := h.service.ReplyAndSave(ctx, sess.ID, req.Message, history)
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrGeneration):
			log.Printf("ERROR: generation failed: %v", err)
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "generation failed"})
		case errors.Is(err, store.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		default:
			// The reply was generated but not persisted. Surface the failure;
			// the turn is not part of durable history.
			log.Printf("ERROR: failed to persist turn for session %d: %v", sess.ID, err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to persist turn"})
		}
	}

	return c.JSON(http.StatusOK, ChatResponse{SessionID: sess.ID, Reply: reply})
}
