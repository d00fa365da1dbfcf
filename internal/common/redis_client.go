package common

import (
	"time"

	"github.com/redis/go-redis/v9"

	"schraper/catalog/internal/logging"
)

// NewRedisClient builds a pooled client for addr. The connection is verified
// by NewRedisCacheService.
func NewRedisClient(addr, password string) *redis.Client {
	logging.Info("Initializing Redis client", "addr", addr)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	return client
}
