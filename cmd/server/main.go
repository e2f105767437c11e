package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/user-auth/config"
	"github.com/ErlanBelekov/user-auth/internal/credential"
	"github.com/ErlanBelekov/user-auth/internal/email"
	"github.com/ErlanBelekov/user-auth/internal/health"
	"github.com/ErlanBelekov/user-auth/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/user-auth/internal/log"
	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/ErlanBelekov/user-auth/internal/ratelimit"
	httptransport "github.com/ErlanBelekov/user-auth/internal/transport/http"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/user-auth/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		logger.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	deps := map[string]health.Pinger{"postgres": pool}

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.EmailRateWindow, cfg.EmailRateLimit)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process rate limiter", "error", err)
		} else {
			limiter = ratelimit.NewRedisLimiter(redisClient, "ratelimit", cfg.EmailRateWindow, cfg.EmailRateLimit)
			deps["redis"] = health.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		}
		cancel()
	}

	sender, err := email.NewSender(email.Settings{
		Provider: cfg.EmailProvider,
		SMTP: email.SMTPSettings{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		},
		ResendAPIKey: cfg.ResendAPIKey,
		ResendFrom:   cfg.ResendFrom,
	}, logger)
	if err != nil {
		stop()
		log.Fatalf("email: %v", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	sessions := credential.NewSessionManager([]byte(cfg.JWTSecret))

	authUsecase := usecase.NewAuthUsecase(userRepo, tokenRepo, sessions, sender, cfg.PublicBaseURL, logger)
	authHandler := handler.NewAuthHandler(authUsecase, logger)

	metrics.Register()
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, authHandler, sessions, limiter),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "email_provider", cfg.EmailProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

