package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/core/auth"
	"go-gin-gorm-accounts/internal/core/config"
	"go-gin-gorm-accounts/internal/core/database"
	"go-gin-gorm-accounts/internal/core/logger"
	"go-gin-gorm-accounts/internal/core/server"
	"go-gin-gorm-accounts/internal/repo"
	"go-gin-gorm-accounts/internal/service"
	"go-gin-gorm-accounts/internal/transport/http/handler"
	"go-gin-gorm-accounts/internal/transport/http/router"
	"go-gin-gorm-accounts/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	restore, err := logger.RedirectStdLog(log, zapcore.InfoLevel)
	if err != nil {
		log.Warn("redirect std log failed", zap.Error(err))
	}
	defer restore()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	users := repo.NewUserRepo(db)
	if cfg.DB.AutoMigrate {
		if err := users.Migrate(context.Background()); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// 依赖
	hasher := utils.NewHasher(cfg.Password.Cost)
	jwter := auth.NewJWTer(cfg.JWT)
	gate := access.NewGate(jwter)

	authSvc, err := service.NewAuthService(users, hasher, jwter, log.Named("auth"))
	if err != nil {
		log.Fatal("auth service init failed", zap.Error(err))
	}
	userSvc := service.NewUserService(users, hasher, log.Named("users"))

	// 路由
	api := router.NewAPIEngine(log, cfg.App.HTTP, gate,
		handler.NewAuthHandler(authSvc),
		handler.NewUserHandler(userSvc),
	)
	ops := router.NewAdminEngine(log)

	h := cfg.App.HTTP
	apiSrv := server.BuildServer(
		server.Addr(h.Host, h.Port), api,
		time.Duration(h.ReadTimeoutSec)*time.Second,
		time.Duration(h.WriteTimeoutSec)*time.Second,
		time.Duration(h.IdleTimeoutSec)*time.Second,
	)
	opsSrv := server.BuildServer(server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port), ops,
		5*time.Second, 10*time.Second, 60*time.Second)

	// 启动日志
	host4human := h.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(h.Port)
	log.Info("accounts api starting",
		zap.String("addr", apiSrv.Addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("metrics", "http://"+opsSrv.Addr+"/metrics"),
		zap.String("env", cfg.App.Env),
	)

	// 异步启动
	for name, srv := range map[string]*http.Server{"api": apiSrv, "admin": opsSrv} {
		name, srv := name, srv
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("server start FAILED", zap.String("server", name), zap.Error(err))
			}
		}()
	}
	log.Info("accounts api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(ctx)
	_ = opsSrv.Shutdown(ctx)
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("accounts api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	opts := database.OptsFromConfig(cfg.DB)
	opts.LogWriter = logger.ToWriter(l.Named("gorm"), zapcore.WarnLevel)
	db, err := database.NewGorm(opts)
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
