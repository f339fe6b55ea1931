// Package subscription defines the contract between listening sessions and
// the alert fan-out. Any concrete session type (server-push stream, socket,
// test double) implements the Session capability set.
package subscription

import "time"

// Session is a handle capable of delivering a payload to one listening
// session and reporting its liveness
type Session interface {
	Send(payload []byte) error
	IsLive() bool
	Metadata() map[string]string
}

// Subscriber pairs a registered session with its identifier so delivery
// outcomes can be attributed
type Subscriber struct {
	SessionID string
	Session   Session
}

// HealthRecord tracks advisory liveness for one session. Counters are
// informational only; sessions are never disconnected automatically.
type HealthRecord struct {
	SessionID    string    `json:"session_id"`
	Live         bool      `json:"live"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
	ProbesPassed int       `json:"probes_passed"`
	ProbesFailed int       `json:"probes_failed"`
	Reconnects   int       `json:"reconnects"`
}

// RegistrationResult reports the outcome of one card registration within a
// batch subscription request
type RegistrationResult struct {
	CardToken string `json:"card_token"`
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
}

// ConnectionDetail describes one live fan-out edge
type ConnectionDetail struct {
	SessionID    string    `json:"session_id"`
	CardToken    string    `json:"card_token"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ConnectionsSnapshot is a point-in-time view of all registered edges
type ConnectionsSnapshot struct {
	TotalActive       int                `json:"total_active"`
	ConnectionDetails []ConnectionDetail `json:"connection_details"`
}
