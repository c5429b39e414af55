package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	resp "go-gin-gorm-accounts/internal/transport/http/response"
	"golang.org/x/time/rate"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		resp.Abort(c, resp.CodeTooManyRequests, "too many requests")
	}
}

const (
	// 空闲超过 ipIdleTTL 的桶会被清掉
	ipIdleTTL = 10 * time.Minute
	// 同时跟踪的 IP 上限，满了先清空闲桶，仍满则拒绝新 IP
	maxTrackedIPs = 10000
)

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type ipLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	ttl     time.Duration
	maxIPs  int
	buckets map[string]*ipBucket
	swept   time.Time
	now     func() time.Time
}

func newIPLimiter(rps rate.Limit, burst int, ttl time.Duration, maxIPs int) *ipLimiter {
	return &ipLimiter{
		rps: rps, burst: burst, ttl: ttl, maxIPs: maxIPs,
		buckets: make(map[string]*ipBucket),
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.swept) >= l.ttl {
		l.sweep(now)
	}
	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= l.maxIPs {
			l.sweep(now)
			if len(l.buckets) >= l.maxIPs {
				return false
			}
		}
		b = &ipBucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	for ip, b := range l.buckets {
		if now.Sub(b.seen) >= l.ttl {
			delete(l.buckets, ip)
		}
	}
	l.swept = now
}

func (l *ipLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitPerIP 每 IP 限速（用于 /auth，防爆破）
// 依赖 ClientIP，engine 必须配置 SetTrustedProxies，否则 X-Forwarded-For 可被伪造
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	return rateLimitPerIP(newIPLimiter(rps, burst, ipIdleTTL, maxTrackedIPs))
}

func rateLimitPerIP(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.allow(c.ClientIP()) {
			c.Next()
			return
		}
		resp.Abort(c, resp.CodeTooManyRequests, "too many requests")
	}
}
