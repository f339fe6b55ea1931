// Package service orchestrates the per-candidate pipeline: dedup gate, parse,
// merchant resolution, idempotent persistence, audit archival, and alert
// fan-out, in that order.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
	"github.com/honeypot-card-monitor/internal/ingestion/parser"
)

// Outcome classifies what happened to one candidate event
type Outcome int

const (
	// OutcomeSaved means the candidate was new and is now persisted and broadcast
	OutcomeSaved Outcome = iota
	// OutcomeSkipped means the dedup gate matched an already-stored token
	OutcomeSkipped
	// OutcomeMalformed means the candidate failed to parse and was parked
	OutcomeMalformed
)

// IngestionService drives one candidate event through the pipeline
type IngestionService struct {
	transactions transaction.Repository
	resolver     MerchantResolver
	broadcaster  AlertBroadcaster
	archive      PayloadArchiver
	deadLetters  DeadLetterParker
	logger       *slog.Logger
}

func NewIngestionService(
	transactions transaction.Repository,
	resolver MerchantResolver,
	broadcaster AlertBroadcaster,
	archive PayloadArchiver,
	deadLetters DeadLetterParker,
	logger *slog.Logger,
) *IngestionService {
	return &IngestionService{
		transactions: transactions,
		resolver:     resolver,
		broadcaster:  broadcaster,
		archive:      archive,
		deadLetters:  deadLetters,
		logger:       logger,
	}
}

// ProcessEvent runs one raw candidate through the pipeline. A returned error
// is always a persistence failure; enrichment failures degrade in place.
func (s *IngestionService) ProcessEvent(ctx context.Context, raw json.RawMessage) (Outcome, error) {
	token, err := parser.PeekToken(raw)
	if err != nil {
		s.park(ctx, raw, err)
		return OutcomeMalformed, nil
	}

	// Dedup gate: a stored token skips the rest of the pipeline entirely.
	// Hitting this is expected every cycle for the event at the watermark
	// boundary, since the watermark query is inclusive.
	exists, err := s.transactions.Exists(ctx, token)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("dedup check failed for %s: %w", token, err)
	}
	if exists {
		s.logger.Debug("Transaction already stored, skipping", "token", token)
		return OutcomeSkipped, nil
	}

	parsed, err := parser.Parse(raw)
	if err != nil {
		s.park(ctx, raw, err)
		return OutcomeMalformed, nil
	}
	txn := parsed.Transaction

	// Merchant resolution failures degrade to an unlinked save: the
	// transaction fact still lands, only the enrichment is lost.
	m, err := s.resolver.Resolve(ctx, parsed.Merchant, txn.Token)
	if err != nil {
		s.logger.Warn("Merchant resolution failed, saving transaction unlinked",
			"token", txn.Token,
			"error", err,
		)
		m = nil
	}

	if err := s.transactions.Upsert(ctx, txn); err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to persist transaction %s: %w", txn.Token, err)
	}

	if m != nil {
		created, err := s.transactions.LinkMerchant(ctx, txn.Token, m.ID)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("failed to link transaction %s to merchant: %w", txn.Token, err)
		}
		if created {
			s.logger.Debug("Linked transaction to merchant",
				"token", txn.Token,
				"merchant_id", m.ID.String(),
			)
		}
	}

	// Best-effort audit copy; the canonical row already holds the raw payload
	if s.archive != nil {
		if err := s.archive.Archive(ctx, txn.Token, txn.CardToken, raw); err != nil {
			s.logger.Warn("Failed to archive raw payload", "token", txn.Token, "error", err)
		}
	}

	s.logger.Info("Stored transaction",
		"token", txn.Token,
		"card_token", txn.CardToken,
		"result", string(txn.Result),
		"amount", txn.CardholderAmount,
	)

	// Broadcast strictly after the store confirmed the write. A broadcast
	// failure never rolls back or retries the save.
	s.broadcaster.Broadcast(ctx, txn, m)

	return OutcomeSaved, nil
}

func (s *IngestionService) park(ctx context.Context, raw json.RawMessage, parseErr error) {
	reason := parseErr.Error()
	s.logger.Error("Dropping malformed candidate event", "error", parseErr)

	if s.deadLetters == nil {
		return
	}
	// Malformed events have no usable token, so the parking key is synthetic
	key := uuid.New().String()
	if err := s.deadLetters.Park(ctx, key, raw, reason); err != nil {
		s.logger.Warn("Failed to park malformed event", "key", key, "error", err)
	}
}
