package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter limits requests per client IP. With a Redis client the counters
// are shared by every API instance; without one they live in process memory.
func RateLimiter(client *redis.Client, perMinute int64) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  perMinute,
	}

	store := limiter.Store(memory.NewStore())
	if client != nil {
		redisStore, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix: "petalboard:ratelimit",
		})
		if err != nil {
			log.WithError(err).Warn("redis rate limit store unavailable, using memory store")
		} else {
			store = redisStore
		}
	}

	// 🚦 Gin-compatible middleware
	return ginlimiter.NewMiddleware(limiter.New(store, rate))
}
