package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/honeypot-card-monitor/internal/domain/subscription"
)

// SubscriptionRegistry is the slice of the alerts registry the handlers use
type SubscriptionRegistry interface {
	RegisterAll(sessionID string, cardTokens []string, sess subscription.Session) []subscription.RegistrationResult
	Unregister(sessionID string) bool
	Health(sessionID string) *subscription.HealthRecord
	Connections() subscription.ConnectionsSnapshot
}

// SessionDirectory is the slice of the WebSocket gateway the handlers use
type SessionDirectory interface {
	HandleConnection(w http.ResponseWriter, r *http.Request, sessionID string) error
	Lookup(sessionID string) (subscription.Session, bool)
	CloseSession(sessionID string) bool
}

// SubscriptionHandler serves the subscription lifecycle endpoints
type SubscriptionHandler struct {
	logger   *slog.Logger
	registry SubscriptionRegistry
	sessions SessionDirectory
}

func NewSubscriptionHandler(logger *slog.Logger, registry SubscriptionRegistry, sessions SessionDirectory) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:   logger,
		registry: registry,
		sessions: sessions,
	}
}

// Connect upgrades the request to a WebSocket session.
// GET /ws?session_id=<id>
func (h *SubscriptionHandler) Connect(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		RespondBadRequest(c, "session_id query parameter is required")
		return
	}

	if err := h.sessions.HandleConnection(c.Writer, c.Request, sessionID); err != nil {
		// The upgrader has already written its own error response
		h.logger.Error("WebSocket upgrade failed", "session_id", sessionID, "error", err)
		c.Abort()
	}
}

// Subscribe registers a connected session for alerts on one or more cards.
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid subscription request", "error", err)
		RespondBadRequest(c, "Invalid request format: "+err.Error())
		return
	}
	if len(req.CardTokens) == 0 {
		RespondBadRequest(c, "card_tokens must not be empty")
		return
	}

	sess, ok := h.sessions.Lookup(req.SessionID)
	if !ok {
		RespondNotFound(c, "No connected session with id "+req.SessionID)
		return
	}

	results := h.registry.RegisterAll(req.SessionID, req.CardTokens, sess)

	resp := SubscribeResponse{
		SessionID: req.SessionID,
		Cards:     results,
	}
	for _, r := range results {
		if r.OK {
			resp.Active = true
			break
		}
	}

	if !resp.Active {
		RespondWithData(c, http.StatusUnprocessableEntity, resp)
		return
	}
	RespondCreated(c, resp)
}

// Unsubscribe removes every card registration for the session and closes its
// socket. Unregistering an unknown session is a success; the response reports
// whether anything was actually removed.
// DELETE /api/v1/sessions/:session_id
func (h *SubscriptionHandler) Unsubscribe(c *gin.Context) {
	sessionID := c.Param("session_id")

	unregistered := h.registry.Unregister(sessionID)
	closed := h.sessions.CloseSession(sessionID)

	RespondOK(c, UnsubscribeResponse{
		SessionID: sessionID,
		Removed:   unregistered || closed,
	})
}

// Connections returns a snapshot of every active card registration.
// GET /api/v1/connections
func (h *SubscriptionHandler) Connections(c *gin.Context) {
	RespondOK(c, h.registry.Connections())
}

// SessionHealth returns the advisory health record for one session.
// GET /api/v1/connections/:session_id/health
func (h *SubscriptionHandler) SessionHealth(c *gin.Context) {
	sessionID := c.Param("session_id")

	record := h.registry.Health(sessionID)
	if record == nil {
		RespondNotFound(c, "No session with id "+sessionID)
		return
	}

	if sess, ok := h.sessions.Lookup(sessionID); ok {
		record.Live = sess.IsLive()
	}

	RespondOK(c, record)
}
