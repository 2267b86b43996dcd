package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tunewish/tunewish-api/internal/pkg/response"
)

// RateLimit returns middleware that applies a fixed-window per-user limit
// backed by Redis. Used on the redeem endpoint to slow down transfer-code
// guessing. A nil client disables limiting (Redis is optional in dev).
// Redis failures fail open: redemption must not depend on cache uptime.
func RateLimit(client *redis.Client, prefix string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("ratelimit:%s:%s", prefix, limiterSubject(r))

			count, err := client.Incr(r.Context(), key).Result()
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				client.Expire(r.Context(), key, window)
			}

			if count > int64(limit) {
				log.Warn().Str("key", key).Int64("count", count).Msg("Rate limit exceeded")
				response.TooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func limiterSubject(r *http.Request) string {
	if id := GetUserID(r.Context()); id != uuid.Nil {
		return id.String()
	}
	return getClientIP(r)
}
