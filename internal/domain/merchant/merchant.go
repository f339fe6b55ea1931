package merchant

import (
	"time"

	"github.com/google/uuid"
)

// UnknownDescriptor is the sentinel used when an upstream transaction carries
// no merchant block. Transactions with this descriptor are stored unlinked.
const UnknownDescriptor = "Unknown Merchant"

// Merchant represents a physical or logical point of sale. Rows are created on
// first sighting and updated in place when later sightings drift; they are
// never deleted.
type Merchant struct {
	ID                  uuid.UUID `json:"id"`
	AcceptorID          *string   `json:"acceptor_id,omitempty"`
	Descriptor          string    `json:"descriptor"`
	City                *string   `json:"city,omitempty"`
	State               *string   `json:"state,omitempty"`
	Country             *string   `json:"country,omitempty"`
	MCC                 *string   `json:"mcc,omitempty"`
	Category            *string   `json:"category,omitempty"`
	CategoryDescription *string   `json:"category_description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Descriptor is the canonical merchant sighting extracted from one upstream
// transaction. City, state, country, and MCC stay nil when absent because they
// participate in exact-match resolution; only the descriptor text gets a
// sentinel default.
type Descriptor struct {
	AcceptorID *string
	Descriptor string
	City       *string
	State      *string
	Country    *string
	MCC        *string
}

// Resolvable reports whether the sighting carries enough identity to resolve
// or create a merchant row
func (d Descriptor) Resolvable() bool {
	return d.Descriptor != "" && d.Descriptor != UnknownDescriptor
}

// Matches compares the stored identity fields against the sighting. A nil
// field on either side only matches nil on the other.
func (m *Merchant) Matches(d Descriptor) bool {
	return m.Descriptor == d.Descriptor &&
		equalPtr(m.City, d.City) &&
		equalPtr(m.State, d.State) &&
		equalPtr(m.Country, d.Country) &&
		equalPtr(m.MCC, d.MCC)
}

// Apply overwrites the identity fields with the sighting's values and stamps
// the update time. The acceptor id is preserved, or adopted when the sighting
// carries one and the row has none.
func (m *Merchant) Apply(d Descriptor) {
	m.Descriptor = d.Descriptor
	m.City = d.City
	m.State = d.State
	m.Country = d.Country
	m.MCC = d.MCC
	if m.AcceptorID == nil && d.AcceptorID != nil {
		m.AcceptorID = d.AcceptorID
	}
	m.UpdatedAt = time.Now()
}

// New builds a merchant row from a sighting
func New(d Descriptor) *Merchant {
	now := time.Now()
	return &Merchant{
		ID:         uuid.New(),
		AcceptorID: d.AcceptorID,
		Descriptor: d.Descriptor,
		City:       d.City,
		State:      d.State,
		Country:    d.Country,
		MCC:        d.MCC,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
