package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"eventhub/internal/domain"
)

const keyPrefix = "views:"

// RedisConfig holds the connection settings of the view cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a go-redis client from cfg.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type viewCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewViewCache stores raw view counts under views:<uri> for ttl.
func NewViewCache(client redis.Cmdable, ttl time.Duration) domain.ViewCache {
	return &viewCache{client: client, ttl: ttl}
}

func viewKey(uri string) string {
	return keyPrefix + uri
}

func (c *viewCache) GetViews(ctx context.Context, uris []string) (map[string]int64, error) {
	views := make(map[string]int64, len(uris))
	if len(uris) == 0 {
		return views, nil
	}
	keys := make([]string, len(uris))
	for i, uri := range uris {
		keys[i] = viewKey(uri)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return views, fmt.Errorf("mget views: %w", err)
	}
	for i, v := range values {
		if n, ok := parseCount(v); ok {
			views[uris[i]] = n
		}
	}
	return views, nil
}

func (c *viewCache) SetViews(ctx context.Context, views map[string]int64) error {
	if len(views) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for uri, n := range views {
		pipe.Set(ctx, viewKey(uri), n, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set views: %w", err)
	}
	return nil
}

// parseCount reads one MGET value. Missing keys come back as nil.
func parseCount(v any) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
