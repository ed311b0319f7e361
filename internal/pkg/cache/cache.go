package cache

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/QuizFox/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// Options returns the connection settings shared by the cache client and the
// rate limiter storage.
func Options() (host string, port int, password string, db int) {
	host = env.GetEnv("CACHE_HOST", "localhost")
	port = env.GetPositiveInt("CACHE_PORT", 6379)
	password = env.GetEnv("CACHE_PASSWORD", "")
	db = env.GetInt("CACHE_DB", 0)
	return host, port, password, db
}

// SetupCache initializes the connection to the Redis server
func SetupCache() {
	host, port, password, db := Options()

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to Redis: %v", err)
	} else {
		log.Infof("[Cache] Successfully connected to Redis: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Ping reports whether Redis answers within the context deadline
func Ping(c context.Context) error {
	return GetClient().Ping(c).Err()
}
