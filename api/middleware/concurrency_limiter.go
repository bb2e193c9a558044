package middleware

import (
	"net/http"

	"github.com/anoixa/tidypics/api/common"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter 限制同时处理的上传请求数
type ConcurrencyLimiter struct {
	sem *semaphore.Weighted
}

// NewConcurrencyLimiter 并发限制器
func NewConcurrencyLimiter(maxConcurrency int64) *ConcurrencyLimiter {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &ConcurrencyLimiter{sem: semaphore.NewWeighted(maxConcurrency)}
}

// Middleware 达到上限时立即拒绝
func (cl *ConcurrencyLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.sem.TryAcquire(1) {
			log.Warn().Str("path", c.FullPath()).Msg("Upload concurrency limit reached")
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
			return
		}
		defer cl.sem.Release(1)

		c.Next()
	}
}
