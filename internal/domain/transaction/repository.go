package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines transaction persistence operations.
// Upsert-by-token semantics make concurrent and duplicate writers safe
// without explicit locks.
type Repository interface {
	// Upsert writes the transaction, replacing any existing row with the same
	// token. Once it returns success, Exists observes true for that token.
	Upsert(ctx context.Context, txn *Transaction) error

	// Exists reports whether a row with the given token is stored. Used as the
	// dedup gate before a candidate event enters the pipeline.
	Exists(ctx context.Context, token string) (bool, error)

	// LatestTimestamp returns the creation time of the most recent stored
	// transaction, or nil when the store is empty. The poller uses it as the
	// watermark for the next upstream query.
	LatestTimestamp(ctx context.Context) (*time.Time, error)

	// LinkMerchant records the transaction-merchant join pair. Returns false
	// when the pair already existed; a duplicate link is not an error.
	LinkMerchant(ctx context.Context, token string, merchantID uuid.UUID) (bool, error)

	// Stats computes aggregate figures over the stored transactions
	Stats(ctx context.Context) (*Stats, error)
}
