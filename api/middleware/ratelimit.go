package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/anoixa/tidypics/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (cl *clientLimiter) touch() {
	cl.mu.Lock()
	cl.lastSeen = time.Now()
	cl.mu.Unlock()
}

func (cl *clientLimiter) idleSince(cutoff time.Time) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.lastSeen.Before(cutoff)
}

// IPRateLimiter 按客户端 IP 的令牌桶限流
type IPRateLimiter struct {
	rps        rate.Limit
	burst      int
	expireTime time.Duration
	clients    sync.Map
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewIPRateLimiter 创建限流器并启动过期客户端清理
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	if expireTime <= 0 {
		expireTime = 10 * time.Minute
	}
	rl := &IPRateLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		expireTime: expireTime,
		stopChan:   make(chan struct{}),
	}
	go rl.cleanupStaleClients()
	return rl
}

// Middleware 返回 gin 中间件
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// Allow 消耗 ip 的一个令牌
func (rl *IPRateLimiter) Allow(ip string) bool {
	val, ok := rl.clients.Load(ip)
	if !ok {
		val, _ = rl.clients.LoadOrStore(ip, &clientLimiter{
			limiter:  rate.NewLimiter(rl.rps, rl.burst),
			lastSeen: time.Now(),
		})
	}
	client := val.(*clientLimiter)
	client.touch()
	return client.limiter.Allow()
}

// StopCleanup 停止后台清理
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.expireTime)
			rl.clients.Range(func(key, value interface{}) bool {
				if value.(*clientLimiter).idleSince(cutoff) {
					rl.clients.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}
