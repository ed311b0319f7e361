package router

import (
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/QuizFox/internal/pkg/cache"
)

// limiterDatabase keeps rate limit counters apart from the job queue.
const limiterDatabase = 2

// NewLimiterStorage returns a Redis storage for the rate limiters using the
// cache connection settings.
func NewLimiterStorage() *redis.Storage {
	host, port, password, _ := cache.Options()
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
