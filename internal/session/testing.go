package session

import (
	"time"

	"github.com/redis/rueidis"
)

// NewRedisStoreForTest creates a RedisStore with the provided rueidis client (test-only).
func NewRedisStoreForTest(c rueidis.Client, capacity int, ttl time.Duration) *RedisStore {
	return &RedisStore{client: c, capacity: capacity, ttl: ttl}
}
