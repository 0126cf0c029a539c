package main

import (
	"context"
	"flag"

	"customer-service/internal/auth"
	"customer-service/internal/config"
	"customer-service/internal/db"
	"customer-service/internal/observability"
	"customer-service/internal/seed"
	"go.uber.org/zap"
)

func main() {
	adminPassword := flag.String("admin-password", "123", "password for the seeded admin customer")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		panic("load .env: " + err.Error())
	}
	cfg := config.FromEnv()
	logger := observability.NewLogger(cfg.LogLevel).Named("seed")
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, pool, auth.NewPasswordEncoder(0), *adminPassword, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied")
}
