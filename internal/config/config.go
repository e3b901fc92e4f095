package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	devSecretKey = "dev-secret-key-change-me"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Env          string
	Host         string
	Port         string
	SecretKey    string
	DatabaseURL  string
	RedisAddr    string
	SessionTTL   time.Duration
	BcryptCost   int
	OtelEndpoint string
	LogLevel     slog.Level
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Load reads a .env file from the working directory when present and then
// builds the Config from the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:          getenv("APP_ENV", EnvDevelopment),
		Host:         getenv("APP_HOST", "0.0.0.0"),
		Port:         getenv("APP_PORT", "8080"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		DatabaseURL:  getenv("DATABASE_URL", "sqlite://./master.db"),
		RedisAddr:    os.Getenv("REDIS_CONNSTRING"),
		OtelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	switch cfg.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q", cfg.Env)
	}

	if cfg.SecretKey == "" {
		if cfg.Env == EnvProduction {
			return nil, errors.New("SECRET_KEY must be set in production")
		}
		cfg.SecretKey = devSecretKey
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("invalid APP_PORT %q: %w", cfg.Port, err)
	}

	ttl, err := time.ParseDuration(getenv("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", ttl)
	}
	cfg.SessionTTL = ttl

	cost, err := strconv.Atoi(getenv("BCRYPT_COST", strconv.Itoa(bcrypt.DefaultCost)))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	cfg.BcryptCost = cost

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
