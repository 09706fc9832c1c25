// Package config provides configuration for the chat application.
package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config holds the application configuration.
type Config struct {
	// Server settings
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:chatterbox.db?cache=shared&mode=rwc"`

	// Generation settings
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	GenerateTimeout time.Duration `env:"GENERATE_TIMEOUT" envDefault:"120s"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// New loads configuration from environment variables.
func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
