package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-gin-gorm-accounts/internal/core/server"
	mdw "go-gin-gorm-accounts/internal/transport/http/middleware"
)

// NewAdminEngine 运维端口：健康检查 + Prometheus 指标，只监听内网
func NewAdminEngine(l *zap.Logger) *gin.Engine {
	r := server.NewRouter(l, nil)
	r.Use(mdw.RequestID())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
