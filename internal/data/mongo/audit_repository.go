// Package mongo provides the raw payload audit archive. Every upstream
// transaction object is kept verbatim so enrichment decisions can be replayed
// against what the processor actually sent.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// AuditCollectionName is the name of the raw payload collection in MongoDB
	AuditCollectionName = "raw_transactions"
)

// AuditRecord is one archived upstream payload, keyed by transaction token
type AuditRecord struct {
	Token      string          `bson:"token" json:"token"`
	CardToken  string          `bson:"card_token" json:"card_token"`
	Payload    json.RawMessage `bson:"payload" json:"payload"`
	ArchivedAt time.Time       `bson:"archived_at" json:"archived_at"`
}

// AuditRepository archives raw upstream payloads in MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Archive stores the raw payload for a token, replacing any previous copy.
// Re-archiving the same token is idempotent, matching the transaction store.
func (r *AuditRepository) Archive(ctx context.Context, token, cardToken string, payload json.RawMessage) error {
	collection := r.db.Collection(AuditCollectionName)

	record := AuditRecord{
		Token:      token,
		CardToken:  cardToken,
		Payload:    payload,
		ArchivedAt: time.Now(),
	}

	filter := bson.M{"token": token}
	opts := options.Replace().SetUpsert(true)

	if _, err := collection.ReplaceOne(ctx, filter, record, opts); err != nil {
		r.logger.Error("Failed to archive raw transaction payload",
			"token", token,
			"error", err)
		return fmt.Errorf("failed to archive raw transaction payload: %w", err)
	}

	return nil
}

// GetByToken retrieves an archived payload. Returns nil, nil when the token
// was never archived.
func (r *AuditRepository) GetByToken(ctx context.Context, token string) (*AuditRecord, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"token": token}
	var record AuditRecord
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get archived payload",
			"token", token,
			"error", err)
		return nil, fmt.Errorf("failed to get archived payload: %w", err)
	}

	return &record, nil
}
