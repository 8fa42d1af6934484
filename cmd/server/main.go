// @title        Auth Service API
// @version      1.0
// @description  Credential, token and role management with per-user rate limiting.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/service"
	mongodb "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/internal/infrastructure/ratelimit"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth-service",
	})

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

// run owns every resource it opens, so each deferred close runs before main
// decides the exit code.
func run(cfg *config.Config) error {
	log := logger.Get()

	// --- Services that need no connection ---
	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		HashCost:   cfg.JWT.TokenHashCost,
	}, logger.Component("tokens"))
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}
	hasher, err := service.NewBcryptHasher(cfg.JWT.BcryptCost)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.StoreTimeout,
	})
	if err != nil {
		return fmt.Errorf("mongo connection: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.StoreTimeout,
	})
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer rdb.Close()

	users := redisdb.NewCachedUserRepository(
		mongodb.NewUserRepository(db), rdb, cfg.Redis.CacheTTL, logger.Component("user_cache"))

	// --- Audit trail ---
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, mongodb.NewAuditRepository(db), logger.Component("audit"))
	dispatcher.Start(dispatcherCtx)
	defer func() {
		stopDispatcher()
		dispatcher.Wait()
	}()

	auth, err := service.NewAuthService(users, tokens, hasher, dispatcher, cfg.StoreTimeout, logger.Component("auth"))
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	userSvc := service.NewUserService(users, hasher, dispatcher, cfg.StoreTimeout, logger.Component("users"))

	limiter := ratelimit.New(ratelimit.Config{
		Max:              cfg.RateLimit.Max,
		Window:           cfg.RateLimit.Window,
		SweepProbability: cfg.RateLimit.SweepProbability,
	})

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Auth:     auth,
		Users:    userSvc,
		Tokens:   tokens,
		Profiles: users,
		Limiter:  limiter,
		Throttle: middleware.NewThrottle(middleware.ThrottleConfig{
			PerMinute: cfg.Throttle.PerMinute,
			Burst:     cfg.Throttle.Burst,
		}),
		Checks:  []handler.DependencyCheck{handler.MongoCheck(db), handler.RedisCheck(rdb)},
		Log:     logger.Component("http"),
		Version: version,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	log.Info().Msg("server stopped")
	return nil
}
