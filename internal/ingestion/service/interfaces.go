package service

import (
	"context"
	"encoding/json"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
)

// MerchantResolver finds or creates the merchant owning a sighting
type MerchantResolver interface {
	Resolve(ctx context.Context, d merchant.Descriptor, token string) (*merchant.Merchant, error)
}

// AlertBroadcaster fans a persisted transaction out to listening sessions.
// Delivery is fire-and-forget; failures never reach the caller.
type AlertBroadcaster interface {
	Broadcast(ctx context.Context, txn *transaction.Transaction, m *merchant.Merchant)
}

// PayloadArchiver keeps the raw upstream payload for audit
type PayloadArchiver interface {
	Archive(ctx context.Context, token, cardToken string, payload json.RawMessage) error
}

// DeadLetterParker stores events the parser rejected
type DeadLetterParker interface {
	Park(ctx context.Context, key string, payload json.RawMessage, reason string) error
}
