package alerts

import (
	"log/slog"
	"sync"
	"time"

	"github.com/honeypot-card-monitor/internal/domain/subscription"
)

// Registry tracks which listening sessions are interested in which card
// tokens. One session may watch several cards and one card may have several
// watchers. All methods are safe for concurrent use; readers get a
// point-in-time snapshot.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	logger   *slog.Logger
}

type sessionState struct {
	session subscription.Session
	cards   map[string]struct{}
	health  subscription.HealthRecord
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionState),
		logger:   logger,
	}
}

// Register adds a fan-out edge from the card token to the session. Returns
// false only on a hard failure (missing ids or a nil handle); re-registering
// an existing edge is a no-op success.
func (r *Registry) Register(sessionID, cardToken string, sess subscription.Session) bool {
	if sessionID == "" || cardToken == "" || sess == nil {
		r.logger.Warn("Rejecting invalid registration",
			"session_id", sessionID,
			"card_token", cardToken,
			"nil_handle", sess == nil,
		)
		return false
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[sessionID]
	if !ok {
		state = &sessionState{
			session: sess,
			cards:   make(map[string]struct{}),
			health: subscription.HealthRecord{
				SessionID:   sessionID,
				ConnectedAt: now,
			},
		}
		r.sessions[sessionID] = state
	} else if state.session != sess {
		// The session re-attached with a fresh handle; keep its card edges
		state.session = sess
		state.health.Reconnects++
	}

	state.cards[cardToken] = struct{}{}
	state.health.LastActivity = now

	r.logger.Info("Registered card subscription",
		"session_id", sessionID,
		"card_token", cardToken,
	)
	return true
}

// RegisterAll registers a batch of card tokens for one session and reports
// the outcome per card. The overall subscription is active when at least one
// card registered.
func (r *Registry) RegisterAll(sessionID string, cardTokens []string, sess subscription.Session) []subscription.RegistrationResult {
	results := make([]subscription.RegistrationResult, 0, len(cardTokens))
	for _, card := range cardTokens {
		ok := r.Register(sessionID, card, sess)
		result := subscription.RegistrationResult{CardToken: card, OK: ok}
		if !ok {
			result.Reason = "registration rejected"
			if card == "" {
				result.Reason = "empty card token"
			}
		}
		results = append(results, result)
	}
	return results
}

// Rebind swaps the delivery handle of an already-registered session, keeping
// its card edges. Returns false when the session has no entry.
func (r *Registry) Rebind(sessionID string, sess subscription.Session) bool {
	if sessionID == "" || sess == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	state.session = sess
	state.health.Reconnects++
	state.health.LastActivity = time.Now()
	return true
}

// Unregister removes every edge for the session. It always succeeds; the
// return value reports whether anything was removed.
func (r *Registry) Unregister(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)
		r.logger.Info("Unregistered session", "session_id", sessionID)
	}
	return ok
}

// SubscribersOf returns a snapshot of the sessions currently watching the
// card token. Mutations after the snapshot do not affect an in-flight fan-out.
func (r *Registry) SubscribersOf(cardToken string) []subscription.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []subscription.Subscriber
	for id, state := range r.sessions {
		if _, watching := state.cards[cardToken]; watching {
			subs = append(subs, subscription.Subscriber{
				SessionID: id,
				Session:   state.session,
			})
		}
	}
	return subs
}

// Health returns a copy of the session's health record, or nil when unknown
func (r *Registry) Health(sessionID string) *subscription.HealthRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	record := state.health
	return &record
}

// RecordProbe updates the advisory liveness counters for a session. Liveness
// is never enforced by disconnecting sessions here.
func (r *Registry) RecordProbe(sessionID string, passed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	if passed {
		state.health.ProbesPassed++
	} else {
		state.health.ProbesFailed++
	}
	state.health.LastActivity = time.Now()
}

// Connections returns a point-in-time view of every registered edge
func (r *Registry) Connections() subscription.ConnectionsSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := subscription.ConnectionsSnapshot{}
	for id, state := range r.sessions {
		for card := range state.cards {
			snapshot.ConnectionDetails = append(snapshot.ConnectionDetails, subscription.ConnectionDetail{
				SessionID:    id,
				CardToken:    card,
				ConnectedAt:  state.health.ConnectedAt,
				LastActivity: state.health.LastActivity,
			})
		}
	}
	snapshot.TotalActive = len(snapshot.ConnectionDetails)
	return snapshot
}
