// Package resolver maps merchant sightings to durable merchant rows, creating
// or updating rows as sightings drift.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
	"github.com/honeypot-card-monitor/internal/taxonomy"
)

// Resolver finds or creates the merchant entity owning a sighting
type Resolver struct {
	merchants merchant.Repository
	logger    *slog.Logger
}

func NewResolver(merchants merchant.Repository, logger *slog.Logger) *Resolver {
	return &Resolver{
		merchants: merchants,
		logger:    logger,
	}
}

// Resolve returns the merchant owning the sighting, or nil when the sighting
// carries too little identity to resolve. The transaction token is used for
// logging only.
//
// Resolution order: acceptor-id match, then exact combination match, then
// create. More than one combination match is treated as unresolvable by
// combination and falls through to create — duplicate rows for genuinely
// ambiguous descriptors are accepted rather than guessing a link.
func (r *Resolver) Resolve(ctx context.Context, d merchant.Descriptor, token string) (*merchant.Merchant, error) {
	if d.AcceptorID != nil && *d.AcceptorID != "" {
		m, err := r.merchants.GetByAcceptorID(ctx, *d.AcceptorID)
		if err != nil {
			return nil, fmt.Errorf("acceptor id lookup failed: %w", err)
		}
		if m != nil {
			r.syncIfChanged(ctx, m, d, token)
			return m, nil
		}
	}

	if !d.Resolvable() {
		r.logger.Debug("Merchant sighting carries no usable identity, transaction stays unlinked", "token", token)
		return nil, nil
	}

	matches, err := r.merchants.FindMatching(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("combination lookup failed: %w", err)
	}

	switch len(matches) {
	case 1:
		m := matches[0]
		r.syncIfChanged(ctx, m, d, token)
		return m, nil
	case 0:
		// No match, fall through to create
	default:
		r.logger.Warn("Ambiguous merchant combination, creating a new merchant rather than guessing",
			"token", token,
			"descriptor", d.Descriptor,
			"matches", len(matches),
		)
	}

	m := merchant.New(d)
	r.enrich(m)
	if err := r.merchants.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("merchant create failed: %w", err)
	}

	r.logger.Info("Created merchant",
		"token", token,
		"merchant_id", m.ID.String(),
		"descriptor", m.Descriptor,
	)
	return m, nil
}

// syncIfChanged overwrites the stored row when the sighting's identity fields
// drifted, re-running taxonomy enrichment. An update failure degrades to a
// stale row rather than failing the resolution.
func (r *Resolver) syncIfChanged(ctx context.Context, m *merchant.Merchant, d merchant.Descriptor, token string) {
	newAcceptor := m.AcceptorID == nil && d.AcceptorID != nil && *d.AcceptorID != ""
	if m.Matches(d) && !newAcceptor {
		return
	}

	m.Apply(d)
	r.enrich(m)

	if err := r.merchants.Update(ctx, m); err != nil {
		r.logger.Warn("Failed to update drifted merchant, keeping stale record",
			"token", token,
			"merchant_id", m.ID.String(),
			"error", err,
		)
		return
	}

	r.logger.Info("Updated merchant after drifted sighting",
		"token", token,
		"merchant_id", m.ID.String(),
	)
}

// enrich derives the human category from the MCC. A lookup miss yields null
// enrichment and never blocks the write.
func (r *Resolver) enrich(m *merchant.Merchant) {
	m.Category = nil
	m.CategoryDescription = nil
	if m.MCC == nil {
		return
	}
	if entry, ok := taxonomy.Lookup(*m.MCC); ok {
		m.Category = &entry.Category
		m.CategoryDescription = &entry.Description
	}
}
