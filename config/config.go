package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV"       envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT"      envDefault:"8080"  validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"  validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE"          envDefault:"true"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret     string `env:"JWT_SECRET,required" validate:"required,min=32"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL"     envDefault:"http://localhost:8080" validate:"required,url"`

	// EmailProvider selects the outbound mail transport. "log" only prints emails.
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"log" validate:"oneof=log smtp resend"`
	SMTPHost      string `env:"SMTP_HOST"      validate:"required_if=EmailProvider smtp"`
	SMTPPort      int    `env:"SMTP_PORT"      envDefault:"465" validate:"min=1,max=65535"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPass      string `env:"SMTP_PASS"`
	SMTPFrom      string `env:"SMTP_FROM"      validate:"required_if=EmailProvider smtp"`
	SMTPFromName  string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS    bool   `env:"SMTP_USE_TLS"   envDefault:"true"`
	ResendAPIKey  string `env:"RESEND_API_KEY" validate:"required_if=EmailProvider resend"`
	ResendFrom    string `env:"RESEND_FROM"    validate:"required_if=EmailProvider resend"`

	// Empty RedisAddr falls back to the in-process rate limiter.
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB"          envDefault:"0"   validate:"min=0"`
	EmailRateLimit  int           `env:"EMAIL_RATE_LIMIT"  envDefault:"5"   validate:"min=1"`
	EmailRateWindow time.Duration `env:"EMAIL_RATE_WINDOW" envDefault:"15m" validate:"min=1s"`

	TokenSweepCron  string        `env:"TOKEN_SWEEP_CRON"  envDefault:"@every 1h" validate:"required"`
	TokenSweepGrace time.Duration `env:"TOKEN_SWEEP_GRACE" envDefault:"24h"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
