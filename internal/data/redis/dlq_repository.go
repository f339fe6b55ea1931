// Package redis parks upstream events the parser rejected so they can be
// inspected later. Parking is best-effort; a DLQ failure never blocks the
// rest of the poll cycle.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const malformedKeyPrefix = "dlq:event:"

// MalformedEvent wraps a rejected raw payload with the rejection reason
type MalformedEvent struct {
	Key      string          `json:"key"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	ParkedAt time.Time       `json:"parked_at"`
}

// DeadLetterRepository stores malformed upstream events in Redis
type DeadLetterRepository struct {
	client *redis.Client
	logger *slog.Logger
}

func NewDeadLetterRepository(client *redis.Client, logger *slog.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{client: client, logger: logger}
}

// Park stores a rejected event under "dlq:event:<key>". Entries have no TTL;
// they are cleared manually after inspection.
func (r *DeadLetterRepository) Park(ctx context.Context, key string, payload json.RawMessage, reason string) error {
	event := MalformedEvent{
		Key:      key,
		Payload:  payload,
		Reason:   reason,
		ParkedAt: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal malformed event: %w", err)
	}

	if err := r.client.Set(ctx, malformedKeyPrefix+key, data, 0).Err(); err != nil {
		r.logger.Error("Failed to park malformed event", "key", key, "error", err)
		return fmt.Errorf("failed to park malformed event: %w", err)
	}

	r.logger.Info("Parked malformed event", "key", key, "reason", reason)
	return nil
}
