package middlewares

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/config"
	"github.com/iamramakanthreddyk/fuelsync-new-sub006/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RateLimiter is a fixed-window request counter kept in redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// rateLimitKey counts per user once authenticated, per client IP before that.
func rateLimitKey(c *gin.Context) string {
	if id, ok := utils.GetUserIdFromContext(c.Request.Context()); ok && id > 0 {
		return "ratelimit:user:" + strconv.Itoa(id)
	}
	return "ratelimit:ip:" + c.ClientIP()
}

// RateLimitMiddleware lets requests through when redis is unavailable.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	if rl == nil || rl.client == nil {
		c.Next()
		return
	}
	ctx := c.Request.Context()
	key := rateLimitKey(c)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		rl.warn(key, err)
		c.Next()
		return
	}
	// First hit of a window, or a counter left without an expiry.
	retryIn := ttl.Val()
	if retryIn < 0 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.warn(key, err)
		}
		retryIn = rl.window
	}
	if incr.Val() > rl.limit {
		RespondError(c, fmt.Errorf("%w: try again in %d seconds", utils.ErrRateLimited, int(retryIn.Seconds())))
		return
	}
	c.Next()
}

func (rl *RateLimiter) warn(key string, err error) {
	config.GetLogger().WithFields(logrus.Fields{
		"field": "RateLimitMiddleware",
		"key":   key,
	}).Warn("rate limiter unavailable: " + err.Error())
}
