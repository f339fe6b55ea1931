package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
	"github.com/honeypot-card-monitor/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// MerchantRepository implements the merchant.Repository interface for PostgreSQL
type MerchantRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewMerchantRepository creates a new PostgreSQL merchant repository
func NewMerchantRepository(logger *slog.Logger, db *persistence.PostgresDB) merchant.Repository {
	return &MerchantRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByAcceptorID retrieves the merchant carrying the given acceptor
// identifier. Returns nil, nil when no such merchant exists.
func (r *MerchantRepository) GetByAcceptorID(ctx context.Context, acceptorID string) (*merchant.Merchant, error) {
	query := `
		SELECT id, acceptor_id, descriptor, city, state, country, mcc, category, category_description, created_at, updated_at
		FROM merchants
		WHERE acceptor_id = $1
	`

	var m merchant.Merchant
	err := r.querier.QueryRow(ctx, query, acceptorID).Scan(
		&m.ID,
		&m.AcceptorID,
		&m.Descriptor,
		&m.City,
		&m.State,
		&m.Country,
		&m.MCC,
		&m.Category,
		&m.CategoryDescription,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get merchant by acceptor id", "acceptor_id", acceptorID, "error", err)
		return nil, fmt.Errorf("failed to get merchant by acceptor id: %w", err)
	}

	return &m, nil
}

// FindMatching returns every merchant whose identity tuple matches the
// sighting exactly. IS NOT DISTINCT FROM makes a nil field match only a
// stored NULL, never act as a wildcard.
func (r *MerchantRepository) FindMatching(ctx context.Context, d merchant.Descriptor) ([]*merchant.Merchant, error) {
	query := `
		SELECT id, acceptor_id, descriptor, city, state, country, mcc, category, category_description, created_at, updated_at
		FROM merchants
		WHERE descriptor = $1
		  AND city IS NOT DISTINCT FROM $2
		  AND state IS NOT DISTINCT FROM $3
		  AND country IS NOT DISTINCT FROM $4
		  AND mcc IS NOT DISTINCT FROM $5
	`

	rows, err := r.querier.Query(ctx, query, d.Descriptor, d.City, d.State, d.Country, d.MCC)
	if err != nil {
		r.logger.Error("Failed to query matching merchants", "descriptor", d.Descriptor, "error", err)
		return nil, fmt.Errorf("failed to query matching merchants: %w", err)
	}
	defer rows.Close()

	var merchants []*merchant.Merchant
	for rows.Next() {
		var m merchant.Merchant
		err := rows.Scan(
			&m.ID,
			&m.AcceptorID,
			&m.Descriptor,
			&m.City,
			&m.State,
			&m.Country,
			&m.MCC,
			&m.Category,
			&m.CategoryDescription,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan merchant row", "error", err)
			return nil, fmt.Errorf("failed to scan merchant row: %w", err)
		}
		merchants = append(merchants, &m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over merchant rows", "error", err)
		return nil, fmt.Errorf("error iterating over merchant rows: %w", err)
	}

	return merchants, nil
}

// Create stores a new merchant row
func (r *MerchantRepository) Create(ctx context.Context, m *merchant.Merchant) error {
	query := `
		INSERT INTO merchants (id, acceptor_id, descriptor, city, state, country, mcc, category, category_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID,
		m.AcceptorID,
		m.Descriptor,
		m.City,
		m.State,
		m.Country,
		m.MCC,
		m.Category,
		m.CategoryDescription,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create merchant", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to create merchant: %w", err)
	}

	return nil
}

// Update overwrites an existing merchant row in place
func (r *MerchantRepository) Update(ctx context.Context, m *merchant.Merchant) error {
	query := `
		UPDATE merchants
		SET acceptor_id = $1, descriptor = $2, city = $3, state = $4, country = $5,
			mcc = $6, category = $7, category_description = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := r.querier.Exec(ctx, query,
		m.AcceptorID,
		m.Descriptor,
		m.City,
		m.State,
		m.Country,
		m.MCC,
		m.Category,
		m.CategoryDescription,
		m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update merchant", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to update merchant: %w", err)
	}

	if result.RowsAffected() == 0 {
		return merchant.ErrMerchantNotFound{MerchantID: m.ID}
	}

	return nil
}
