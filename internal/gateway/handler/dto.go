package handler

import "github.com/honeypot-card-monitor/internal/domain/subscription"

// SubscribeRequest registers a connected session for alerts on card tokens
type SubscribeRequest struct {
	SessionID  string   `json:"session_id" binding:"required"`
	CardTokens []string `json:"card_tokens" binding:"required"`
}

// SubscribeResponse reports the per-card outcome of a subscription request.
// Active is true when at least one card registered.
type SubscribeResponse struct {
	SessionID string                            `json:"session_id"`
	Active    bool                              `json:"active"`
	Cards     []subscription.RegistrationResult `json:"cards"`
}

// UnsubscribeResponse reports whether the request removed anything: a card
// registration, a live socket, or both
type UnsubscribeResponse struct {
	SessionID string `json:"session_id"`
	Removed   bool   `json:"removed"`
}
