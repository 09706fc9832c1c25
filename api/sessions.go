package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yataro/chatterbox/policy"
	"github.com/yataro/chatterbox/session"
	"github.com/yataro/chatterbox/store"
)

// BindSessionRequest optionally carries an existing UI-context handle. A
// missing handle means a brand-new context.
type BindSessionRequest struct {
	ContextID string `json:"context_id,omitempty"`
}

// BindSessionResponse returns the handle and the durable session bound to it.
type BindSessionResponse struct {
	ContextID string `json:"context_id"`
	SessionID int64  `json:"session_id"`
}

// BindSession binds a UI context to a durable session, creating both lazily.
// Called once per context lifetime; repeat calls with the same context_id
// return the same session.
// POST /v1/sessions
func (h *Handler) BindSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req BindSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.ContextID == "" {
		req.ContextID = session.NewContextID()
	}

	sessionID, err := h.binder.Bind(ctx, req.ContextID)
	if err != nil {
		log.Printf("ERROR: failed to bind session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to bind session"})
	}

	return c.JSON(http.StatusOK, BindSessionResponse{ContextID: req.ContextID, SessionID: sessionID})
}

// GetSessionMessages returns the persisted turns for a session in history
// order. An unknown session yields an empty list, not an error.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}

	messages, err := h.store.GetSessionMessages(ctx, sessionID)
	if err != nil {
		log.Printf("ERROR: failed to get messages: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get messages"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// ListSessions lists all sessions, newest first. Administrative; gated by
// the admin policy.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.authorize(c, "session.list") {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
	}

	sessions, err := h.store.ListSessions(ctx)
	if err != nil {
		log.Printf("ERROR: failed to list sessions: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list sessions"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// DeleteSession deletes a session and all of its messages. Administrative;
// gated by the admin policy.
// DELETE /v1/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	ctx := c.Request().Context()

	if !h.authorize(c, "session.delete") {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
	}

	sessionID, err := strconv.ParseInt(c.Param("session_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid session id"})
	}

	if err := h.store.DeleteSession(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
		}
		log.Printf("ERROR: failed to delete session: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete session"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// authorize evaluates the admin policy for the caller's role. Failure to
// evaluate is treated as a block.
func (h *Handler) authorize(c echo.Context, action string) bool {
	input := map[string]interface{}{
		"action": action,
		"role":   c.Request().Header.Get("X-Role"),
	}
	decision, err := h.policy.Evaluate(c.Request().Context(), input)
	if err != nil {
		log.Printf("ERROR: policy evaluation failed: %v", err)
		return false
	}
	return decision == policy.DecisionAllow
}
