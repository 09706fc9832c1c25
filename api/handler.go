// Package api exposes the chat core over HTTP for the UI collaborator. The
// handlers only ever call the operations the core defines; all rendering and
// per-context state stays on the client side.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/yataro/chatterbox/chat"
	"github.com/yataro/chatterbox/policy"
	"github.com/yataro/chatterbox/session"
	"github.com/yataro/chatterbox/store"
)

// Handler holds the dependencies for the HTTP handlers.
type Handler struct {
	store   store.Store
	service *chat.Service
	binder  *session.Binder
	policy  *policy.Engine
}

// NewHandler creates a new handler.
func NewHandler(st store.Store, svc *chat.Service, binder *session.Binder, policyEngine *policy.Engine) *Handler {
	return &Handler{
		store:   st,
		service: svc,
		binder:  binder,
		policy:  policyEngine,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.POST("/v1/sessions", h.BindSession)
	e.POST("/v1/chat", h.Chat)
	e.GET("/v1/sessions/:session_id/messages", h.GetSessionMessages)

	// Administrative, policy-gated
	e.GET("/v1/sessions", h.ListSessions)
	e.DELETE("/v1/sessions/:session_id", h.DeleteSession)
}

// Health returns service health.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
