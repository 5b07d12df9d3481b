package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

func idempotencyKey(messageID string) string { return "booking:msg:" + messageID }

// IdempotencyRepository consumes message ids with SET NX so a redelivered
// message is detected before any durable write happens.
type IdempotencyRepository struct {
	rdb *redis.Client
	l   logger.Logger
}

func NewIdempotencyRepository(rdb *redis.Client, l logger.Logger) *IdempotencyRepository {
	return &IdempotencyRepository{rdb: rdb, l: l}
}

// MarkProcessed returns true only the first time messageID is seen within
// the TTL window.
func (r *IdempotencyRepository) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, idempotencyKey(messageID), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark message processed: %w", err)
	}
	return ok, nil
}
