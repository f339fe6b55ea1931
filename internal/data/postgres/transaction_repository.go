// Package postgres provides PostgreSQL implementations of the domain
// repositories. Writes are idempotent by design so concurrent or repeated
// poll cycles cannot duplicate rows.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
	"github.com/honeypot-card-monitor/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Upsert writes the transaction keyed by token. A second write for the same
// token overwrites the row rather than duplicating or erroring.
func (r *TransactionRepository) Upsert(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (
			token, card_token, network, authorization_code, retrieval_reference,
			cardholder_amount, cardholder_currency, merchant_amount, merchant_currency,
			conversion_rate, result, created, raw_payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (token) DO UPDATE SET
			card_token = EXCLUDED.card_token,
			network = EXCLUDED.network,
			authorization_code = EXCLUDED.authorization_code,
			retrieval_reference = EXCLUDED.retrieval_reference,
			cardholder_amount = EXCLUDED.cardholder_amount,
			cardholder_currency = EXCLUDED.cardholder_currency,
			merchant_amount = EXCLUDED.merchant_amount,
			merchant_currency = EXCLUDED.merchant_currency,
			conversion_rate = EXCLUDED.conversion_rate,
			result = EXCLUDED.result,
			created = EXCLUDED.created,
			raw_payload = EXCLUDED.raw_payload
	`

	_, err := r.querier.Exec(ctx, query,
		txn.Token,
		txn.CardToken,
		txn.Network,
		txn.AuthorizationCode,
		txn.RetrievalReference,
		txn.CardholderAmount,
		txn.CardholderCurrency,
		txn.MerchantAmount,
		txn.MerchantCurrency,
		txn.ConversionRate,
		string(txn.Result),
		txn.Created,
		txn.Raw,
	)
	if err != nil {
		r.logger.Error("Failed to upsert transaction", "token", txn.Token, "error", err)
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return nil
}

// Exists reports whether a transaction with the given token is stored
func (r *TransactionRepository) Exists(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM transactions WHERE token = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, token).Scan(&exists); err != nil {
		r.logger.Error("Failed to check transaction existence", "token", token, "error", err)
		return false, fmt.Errorf("failed to check transaction existence: %w", err)
	}

	return exists, nil
}

// LatestTimestamp returns the creation time of the most recent stored
// transaction, or nil when the table is empty
func (r *TransactionRepository) LatestTimestamp(ctx context.Context) (*time.Time, error) {
	query := `SELECT MAX(created) FROM transactions`

	var latest *time.Time
	if err := r.querier.QueryRow(ctx, query).Scan(&latest); err != nil {
		r.logger.Error("Failed to read latest transaction timestamp", "error", err)
		return nil, fmt.Errorf("failed to read latest transaction timestamp: %w", err)
	}

	return latest, nil
}

// LinkMerchant records the transaction-merchant join pair. A duplicate link
// attempt is a no-op; the return value reports whether a new pair was written.
func (r *TransactionRepository) LinkMerchant(ctx context.Context, token string, merchantID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO transaction_merchants (transaction_token, merchant_id)
		VALUES ($1, $2)
		ON CONFLICT (transaction_token, merchant_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query, token, merchantID)
	if err != nil {
		r.logger.Error("Failed to link transaction to merchant",
			"token", token,
			"merchant_id", merchantID.String(),
			"error", err,
		)
		return false, fmt.Errorf("failed to link transaction to merchant: %w", err)
	}

	if result.RowsAffected() == 0 {
		r.logger.Debug("Transaction-merchant link already exists",
			"token", token,
			"merchant_id", merchantID.String(),
		)
		return false, nil
	}

	return true, nil
}

// Stats reads the aggregate view maintained alongside the transactions table
func (r *TransactionRepository) Stats(ctx context.Context) (*transaction.Stats, error) {
	query := `SELECT total_count, approval_rate, average_amount FROM transaction_summary`

	var stats transaction.Stats
	err := r.querier.QueryRow(ctx, query).Scan(
		&stats.Count,
		&stats.ApprovalRate,
		&stats.AverageAmount,
	)
	if err != nil {
		r.logger.Error("Failed to read transaction summary", "error", err)
		return nil, fmt.Errorf("failed to read transaction summary: %w", err)
	}

	return &stats, nil
}
