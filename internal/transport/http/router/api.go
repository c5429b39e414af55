package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/core/config"
	"go-gin-gorm-accounts/internal/core/server"
	"go-gin-gorm-accounts/internal/transport/http/ez"
	mdw "go-gin-gorm-accounts/internal/transport/http/middleware"
)

func init() {
	// 自更新只允许 name/password，未知字段（email、role 等）直接 400
	binding.EnableDecoderDisallowUnknownFields = true
}

func NewAPIEngine(l *zap.Logger, cfg config.HTTP, gate *access.Gate, mods ...APIModule) *gin.Engine {
	r := server.NewRouter(l, cfg.TrustedProxies)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		mdw.ConcurrencyLimit(cfg.MaxConcurrent),
		mdw.MaxBodyBytes(cfg.MaxBodyBytes),
		mdw.Timeout(time.Duration(cfg.RequestTimeoutSec)*time.Second),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	// /auth 下按 IP 限流，防撞库
	authLimit := mdw.RateLimitPerIP(rate.Limit(cfg.AuthRPSPerIP), cfg.AuthBurstPerIP)
	r.Use(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/auth/") {
			authLimit(c)
			return
		}
		c.Next()
	})

	mountAll(ez.New(&r.RouterGroup, gate), mods)
	return r
}
