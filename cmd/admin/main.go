// Command admin migrates the schema and provisions an ADMIN account.
//
//	go run ./cmd/admin -email root@example.com -name Root -password 's3cret-pass'
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-gin-gorm-accounts/internal/core/config"
	"go-gin-gorm-accounts/internal/core/database"
	"go-gin-gorm-accounts/internal/core/errs"
	"go-gin-gorm-accounts/internal/core/logger"
	"go-gin-gorm-accounts/internal/domain"
	"go-gin-gorm-accounts/internal/repo"
	"go-gin-gorm-accounts/internal/service"
	"go-gin-gorm-accounts/pkg/utils"
)

// 不发 token，只用到 Signup
type noTokens struct{}

func (noTokens) Issue(string, domain.Role) (string, error) {
	return "", fmt.Errorf("token issuing is not available in the admin tool")
}

func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Admin", "display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password, 8-72 chars (default $ADMIN_PASSWORD)")
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "config file")
	flag.Parse()

	if *email == "" || len(*password) < 8 || len(*password) > 72 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load(*configPath)
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()

	opts := database.OptsFromConfig(cfg.DB)
	opts.LogWriter = logger.ToWriter(log.Named("gorm"), zapcore.WarnLevel)
	db, err := database.NewGorm(opts)
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repo.NewUserRepo(db)
	if err := users.Migrate(ctx); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	svc, err := service.NewAuthService(users, utils.NewHasher(cfg.Password.Cost), noTokens{}, log.Named("auth"))
	if err != nil {
		log.Fatal("auth service init failed", zap.Error(err))
	}
	u, err := svc.Signup(ctx, service.SignupInput{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     domain.RoleAdmin,
	})
	switch {
	case errs.IsConflict(err):
		log.Warn("account already exists", zap.String("email", *email))
		os.Exit(1)
	case err != nil:
		log.Fatal("create admin failed", zap.Error(err))
	}
	log.Info("admin created", zap.Uint("id", u.ID), zap.String("email", u.Email))
}
