package cache

import (
	"context"
	"time"
)

// Cache хранилище ответов для часто читаемых маршрутов API
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
