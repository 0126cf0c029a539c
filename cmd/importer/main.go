package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"customer-service/internal/auth"
	"customer-service/internal/config"
	"customer-service/internal/db"
	"customer-service/internal/importer"
	"customer-service/internal/observability"
	customerrepo "customer-service/internal/repository/customer"
	"customer-service/internal/repository/unitofwork"
	customersvc "customer-service/internal/service/customer"
	"go.uber.org/zap"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a customer CSV file")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := config.LoadDotEnv(".env"); err != nil {
		panic("load .env: " + err.Error())
	}
	cfg := config.FromEnv()
	logger := observability.NewLogger(cfg.LogLevel).Named("importer")
	defer logger.Sync() //nolint:errcheck
	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	svc := customersvc.New(customersvc.Deps{
		Customers:  customerrepo.NewPostgres(pool, logger),
		UnitOfWork: unitofwork.NewPostgres(pool, logger),
		Encoder:    auth.NewPasswordEncoder(0),
		Logger:     logger,
	}, customersvc.PictureConfig{Prefix: cfg.ProfilePrefix, Size: cfg.ProfileSize})
	imp := importer.NewCSVImporter(f, svc, logger)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d customers (%d rejected) in %s\n", count, imp.Skipped(), time.Since(start).Truncate(time.Millisecond))
}
