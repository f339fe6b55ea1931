package merchant

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines merchant directory persistence operations
type Repository interface {
	// GetByAcceptorID looks up the merchant carrying the given stable acceptor
	// identifier. Returns nil, nil when no such merchant exists.
	GetByAcceptorID(ctx context.Context, acceptorID string) (*Merchant, error)

	// FindMatching returns every merchant whose (descriptor, city, state,
	// country, mcc) tuple matches the sighting exactly, with nil fields
	// matching only stored NULLs. The acceptor id is not part of this query.
	FindMatching(ctx context.Context, d Descriptor) ([]*Merchant, error)

	Create(ctx context.Context, m *Merchant) error
	Update(ctx context.Context, m *Merchant) error
}

// ErrMerchantNotFound indicates a missing merchant row
type ErrMerchantNotFound struct {
	MerchantID uuid.UUID
}

func (e ErrMerchantNotFound) Error() string {
	return "merchant not found: " + e.MerchantID.String()
}
