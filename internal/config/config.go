// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// GatewayURL and GatewayKey reach the hosted backend. Without both the
	// portal starts in "backend not configured" mode.
	GatewayURL string `env:"GATEWAY_URL"`
	GatewayKey string `env:"GATEWAY_KEY"`

	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	RefreshTTL      time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"24h"`

	StorageBucket string        `env:"STORAGE_BUCKET" envDefault:"documents"`
	AWSRegion     string        `env:"AWS_REGION" envDefault:"eu-west-2"`
	AWSEndpoint   string        `env:"AWS_ENDPOINT_URL"`
	PresignTTL    time.Duration `env:"PRESIGN_TTL" envDefault:"15m"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"itsa.lifecycle"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	Currency string `env:"CURRENCY" envDefault:"NGN"`
	Locale   string `env:"LOCALE" envDefault:"en-NG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg, nil
}

func (c Config) GatewayConfigured() bool {
	return strings.TrimSpace(c.GatewayURL) != "" && strings.TrimSpace(c.GatewayKey) != ""
}

// CallbackURL is where verification and recovery links land.
func (c Config) CallbackURL() string { return c.PublicBaseURL + "/auth/callback" }
