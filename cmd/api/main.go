package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eatoff-settlement/config"
	httpHandler "eatoff-settlement/internal/adapter/http/handler"
	pgStorage "eatoff-settlement/internal/adapter/storage/postgres"
	redisStorage "eatoff-settlement/internal/adapter/storage/redis"
	"eatoff-settlement/internal/core/ports"
	"eatoff-settlement/internal/service"
	"eatoff-settlement/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("settlement-api", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting EatOff Settlement Service")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Run schema migrations
	if err := pgStorage.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Schema migrations applied")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	customerRepo := pgStorage.NewCustomerRepo(pool)
	restaurantRepo := pgStorage.NewRestaurantRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	loyaltyRepo := pgStorage.NewLoyaltyRepo(pool)
	voucherRepo := pgStorage.NewVoucherRepo(pool)
	settlementRepo := pgStorage.NewSettlementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	nonceCache := redisStorage.NewNonceCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	codec := service.NewTokenCodec(cfg.Token.Secret)
	validator := service.NewTokenValidator(settlementRepo, nonceCache, log)
	allocator := service.NewAllocator()
	commission := service.NewCommissionEngine(cfg.Commission.DefaultRateBasisPoints)

	// Initialize business services
	tokenSvc := service.NewTokenService(customerRepo, restaurantRepo, codec, log)
	settlementSvc := service.NewSettlementService(
		codec,
		validator,
		allocator,
		commission,
		walletRepo,
		loyaltyRepo,
		voucherRepo,
		settlementRepo,
		restaurantRepo,
		nonceCache,
		transactor,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TokenSvc:       tokenSvc,
		SettlementSvc:  settlementSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
