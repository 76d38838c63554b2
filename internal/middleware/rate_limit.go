package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiter throttles a route per authenticated agent, falling back to client IP.
// rateStr uses the limiter format, e.g. "20-M" for 20 requests per minute.
// A nil client selects the in-process store.
func RateLimiter(rateStr, routeID string, client *redis.Client, logger *logrus.Logger) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q for %s: %w", rateStr, routeID, err)
	}

	prefix := fmt.Sprintf("rate_limiter:%s", routeID)

	var store limiter.Store
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   prefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis rate limit store for %s: %w", routeID, err)
		}
	} else {
		store = memorystore.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: rate.Period,
		})
	}

	instance := limiter.New(store, rate)

	return ginmiddleware.NewMiddleware(instance,
		ginmiddleware.WithKeyGetter(rateLimitKey),
		ginmiddleware.WithLimitReachedHandler(func(c *gin.Context) {
			logger.WithFields(logrus.Fields{
				"route": routeID,
				"key":   rateLimitKey(c),
			}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests. Please try again later.",
				"code":    "RATE_LIMITED",
			})
		}),
		ginmiddleware.WithErrorHandler(func(c *gin.Context, err error) {
			// Fail open
			logger.WithError(err).WithField("route", routeID).Error("Rate limiter store error")
			c.Next()
		}),
	), nil
}

func rateLimitKey(c *gin.Context) string {
	if userCtx, ok := GetUserContext(c); ok {
		return "user:" + userCtx.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
