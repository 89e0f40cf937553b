package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingSetKey     = "identity:provision_pending"
	defaultStaleAfter = 5 * time.Minute
)

// ProvisionJournal records in-flight provisioning in a Redis sorted set
// scored by mark time. Entries are removed when the credential is finalized;
// whatever stays past staleAfter marks an identity stranded between the two
// provisioning steps. Entries are never expired automatically — a stale
// entry is the signal, not garbage.
type ProvisionJournal struct {
	client     *redis.Client
	staleAfter time.Duration
}

// NewProvisionJournal creates a journal wrapping the given Redis client.
// If staleAfter <= 0, a default of five minutes is used.
func NewProvisionJournal(client *redis.Client, staleAfter time.Duration) *ProvisionJournal {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &ProvisionJournal{client: client, staleAfter: staleAfter}
}

func (j *ProvisionJournal) MarkPending(ctx context.Context, key string) error {
	member := redis.Z{Score: float64(time.Now().Unix()), Member: key}
	if err := j.client.ZAdd(ctx, pendingSetKey, member).Err(); err != nil {
		return fmt.Errorf("journal mark: %w", err)
	}
	return nil
}

func (j *ProvisionJournal) ClearPending(ctx context.Context, key string) error {
	if err := j.client.ZRem(ctx, pendingSetKey, key).Err(); err != nil {
		return fmt.Errorf("journal clear: %w", err)
	}
	return nil
}

func (j *ProvisionJournal) StalePending(ctx context.Context) ([]string, error) {
	cutoff := time.Now().Add(-j.staleAfter).Unix()
	keys, err := j.client.ZRangeByScore(ctx, pendingSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("journal scan: %w", err)
	}
	return keys, nil
}
