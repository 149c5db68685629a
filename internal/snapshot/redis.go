package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsdesk/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each snapshot under desk:snapshot:<list>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. A zero ttl keeps snapshots forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Key returns the Redis key holding list's snapshot.
func Key(list string) string {
	return "desk:snapshot:" + list
}

func (r *RedisStore) Load(ctx context.Context, list string) ([]models.ContentItem, error) {
	if list == "" {
		return nil, ErrInvalidList
	}
	data, err := r.client.Get(ctx, Key(list)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.ContentItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", list, err)
	}
	items := []models.ContentItem{}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", list, err)
	}
	return items, nil
}

func (r *RedisStore) Save(ctx context.Context, list string, items []models.ContentItem) error {
	if list == "" {
		return ErrInvalidList
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", list, err)
	}
	if err := r.client.Set(ctx, Key(list), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", list, err)
	}
	return nil
}
