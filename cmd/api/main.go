package main

import (
	"context"
	"os/signal"
	"syscall"

	"customer-service/internal/auth"
	"customer-service/internal/config"
	"customer-service/internal/db"
	"customer-service/internal/httpserver"
	"customer-service/internal/observability"
	"customer-service/internal/picture"
	customerrepo "customer-service/internal/repository/customer"
	"customer-service/internal/repository/unitofwork"
	authsvc "customer-service/internal/service/auth"
	customersvc "customer-service/internal/service/customer"
	"customer-service/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		panic("load .env: " + err.Error())
	}
	cfg := config.FromEnv()
	logger := observability.NewLogger(cfg.LogLevel).Named("api")
	defer logger.Sync() //nolint:errcheck
	if err := cfg.CheckSecrets(); err != nil {
		logger.Fatal("refusing to start", zap.Error(err))
	}
	if cfg.DevMode && cfg.JWTSecret == config.DevJWTSecret {
		logger.Warn("dev mode: signing tokens with the built-in JWT secret")
	}

	ctx := context.Background()
	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "customer-service")
	if err != nil {
		logger.Fatal("init tracer", zap.Error(err))
	}

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	store, files, err := newStorage(cfg, logger)
	if err != nil {
		logger.Fatal("init storage", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiration)
	encoder := auth.NewPasswordEncoder(0)
	customerRepo := customerrepo.NewPostgres(dbpool, logger)

	customerService := customersvc.New(customersvc.Deps{
		Customers:  customerRepo,
		UnitOfWork: unitofwork.NewPostgres(dbpool, logger),
		Encoder:    encoder,
		Images:     picture.New(),
		Storage:    store,
		Metrics:    metrics,
		Logger:     logger.Named("customers"),
	}, customersvc.PictureConfig{Prefix: cfg.ProfilePrefix, Size: cfg.ProfileSize})
	authService := authsvc.New(customerRepo, encoder, tokens, logger.Named("auth"))

	deps := httpserver.Deps{
		CustomerSvc: customerService,
		AuthSvc:     authService,
		Tokens:      tokens,
		Metrics:     metrics,
	}
	if files != nil {
		deps.Files = files
	}
	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, deps, httpserver.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ShutdownTimeout:    cfg.ShutdownTimeout,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(runCtx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}

	tracerCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdownTracer(tracerCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

// newStorage returns S3 storage behind a circuit breaker when an endpoint is
// configured, otherwise in-process storage that the API also serves.
func newStorage(cfg config.Config, logger *zap.Logger) (storage.Store, *storage.Memory, error) {
	if cfg.S3Endpoint == "" {
		logger.Warn("S3_ENDPOINT not set, keeping uploads in memory", zap.String("base_url", cfg.FileURLHost))
		mem, err := storage.NewMemory(cfg.FileURLHost)
		return mem, mem, err
	}
	s3, err := storage.NewMinIO(storage.MinIOConfig{
		Endpoint:  cfg.S3Endpoint,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	}, logger.Named("storage"))
	if err != nil {
		return nil, nil, err
	}
	return storage.NewBreaker(s3, logger.Named("storage")), nil, nil
}
