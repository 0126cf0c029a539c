package main

import (
	"context"
	"flag"

	"customer-service/internal/config"
	"customer-service/internal/db"
	"customer-service/internal/migrate"
	"customer-service/internal/observability"
	"go.uber.org/zap"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	cfg := config.FromEnv()
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if *down > 0 {
		if err := migrate.Rollback(ctx, pool, *down); err != nil {
			logger.Fatal("roll back migrations", zap.Error(err))
		}
	} else if err := migrate.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	version, dirty, err := migrate.Version(ctx, pool)
	if err != nil {
		logger.Fatal("read schema version", zap.Error(err))
	}
	logger.Info("migrations done", zap.Uint("version", version), zap.Bool("dirty", dirty))
}

func newLogger() *zap.Logger {
	if err := config.LoadDotEnv(".env"); err != nil {
		panic("load .env: " + err.Error())
	}
	return observability.NewLogger(config.FromEnv().LogLevel).Named("migrate")
}
