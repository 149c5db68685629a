package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsdesk/internal/middleware"
	"newsdesk/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	ContentListKeyPrefix = "content:list:%s"
	ContentItemKeyPrefix = "content:item:%s"
	UserPointsKeyPrefix  = "points:user:%s"
)

const (
	ContentListTTL = 2 * time.Minute
	ContentItemTTL = 10 * time.Minute
	UserPointsTTL  = 5 * time.Minute
)

func ContentListKey(kind string) string {
	return fmt.Sprintf(ContentListKeyPrefix, kind)
}

func ContentItemKey(id string) string {
	return fmt.Sprintf(ContentItemKeyPrefix, id)
}

func UserPointsKey(userID string) string {
	return fmt.Sprintf(UserPointsKeyPrefix, userID)
}

// Aside reads key into dest, or calls load to fill dest and stores the result
// for ttl. Cache failures never fail the call: they fall back to load.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client == nil {
		return load()
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
			observability.CacheLookups.WithLabelValues("hit").Inc()
			return nil
		}
		observability.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		observability.CacheLookups.WithLabelValues("miss").Inc()
	default:
		observability.CacheLookups.WithLabelValues("error").Inc()
	}

	if err := load(); err != nil {
		return err
	}

	encoded, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	if err := client.Set(ctx, key, encoded, ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidateContent drops the list entry for kind and the given item entries.
func InvalidateContent(ctx context.Context, kind string, ids ...string) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, ContentListKey(kind))
	for _, id := range ids {
		keys = append(keys, ContentItemKey(id))
	}
	Invalidate(ctx, keys...)
}

func InvalidateUserPoints(ctx context.Context, userID string) {
	Invalidate(ctx, UserPointsKey(userID))
}
