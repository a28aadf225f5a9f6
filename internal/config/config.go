// Package config holds the server's tunables: a typed environment config
// and the fixed transport constants shared by the hub.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Auth modes for the websocket handshake.
const (
	AuthModeHard = "hard"
	AuthModeSoft = "soft"
)

const (
	// Websocket transport
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096
	SendBufferSize = 256

	// Chat
	MaxChatBodyLength   = 2000
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200

	// Sweeper
	SweepBatchSize = 100

	// Direct shares
	MinDirectTTL = time.Minute
	MaxDirectTTL = 24 * time.Hour
)

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseDSN   string `env:"DATABASE_DSN" envDefault:"host=localhost user=user password=password dbname=sharetrack port=5432 sslmode=disable"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"sharetrack"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"72h"`
	AuthMode  string        `env:"AUTH_MODE" envDefault:"soft"`

	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SweepInterval       time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`
	LocationMinInterval time.Duration `env:"LOCATION_MIN_INTERVAL" envDefault:"1s"`
	// Retention is how long ended sessions and resolved requests are kept.
	// Zero keeps them forever.
	Retention time.Duration `env:"RETENTION" envDefault:"720h"`

	DefaultLocale string `env:"LOCALE_DEFAULT" envDefault:"en"`

	// ServerURL is where the admin CLI reaches the running server.
	ServerURL string `env:"SERVER_URL" envDefault:"http://localhost:8080"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: no .env file loaded, using process environment")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env.Parse cannot.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AuthMode != AuthModeHard && c.AuthMode != AuthModeSoft {
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeHard, AuthModeSoft, c.AuthMode)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.LocationMinInterval < 0 {
		return fmt.Errorf("LOCATION_MIN_INTERVAL must not be negative")
	}
	if c.Retention < 0 {
		return fmt.Errorf("RETENTION must not be negative")
	}
	return nil
}
