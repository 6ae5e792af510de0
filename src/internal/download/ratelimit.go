package download

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// RateLimiter 速率限制器（每秒最多 requestsPerSecond 个请求，突发 1）
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter 创建速率限制器，requestsPerSecond<=0 表示不限速
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 || math.IsInf(requestsPerSecond, 1) {
		limit = rate.Inf
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1)}
}

// Wait 等待直到可以发送下一个请求，ctx 取消时立即返回
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
