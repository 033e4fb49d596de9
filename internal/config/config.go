// Package config loads runtime configuration from the environment, with an
// optional .env file picked up from the working directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration. CLI flags may override
// individual values after loading.
type Config struct {
	MongoURI       string        `env:"MONGO_URI"`
	Database       string        `env:"DB_NAME"`
	Collection     string        `env:"COLLECTION_NAME"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"5s"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`

	// ResultLimit bounds every query's result set.
	ResultLimit int `env:"RESULT_LIMIT" envDefault:"100"`
	// SampleSize bounds the documents read for schema inference.
	SampleSize int `env:"SAMPLE_SIZE" envDefault:"100"`

	TranslateTimeout   time.Duration `env:"TRANSLATE_TIMEOUT" envDefault:"30s"`
	TranslateRetryWait time.Duration `env:"TRANSLATE_RETRY_WAIT" envDefault:"2s"`
	QueryTimeout       time.Duration `env:"QUERY_TIMEOUT" envDefault:"15s"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Batch worker options.
	Workers      int     `env:"WORKERS" envDefault:"4"`
	MaxRetries   int     `env:"MAX_RETRIES" envDefault:"3"`
	RateLimitRPS float64 `env:"RATE_LIMIT_RPS" envDefault:"0"`
	FailFast     bool    `env:"FAIL_FAST" envDefault:"false"`
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ValidateStore checks the settings needed to reach MongoDB.
func (c Config) ValidateStore() error {
	var missing []string
	if strings.TrimSpace(c.MongoURI) == "" {
		missing = append(missing, "MONGO_URI")
	}
	if strings.TrimSpace(c.Database) == "" {
		missing = append(missing, "DB_NAME")
	}
	if strings.TrimSpace(c.Collection) == "" {
		missing = append(missing, "COLLECTION_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateGemini checks the settings needed to call the translator.
func (c Config) ValidateGemini() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(c.GeminiModel) == "" {
		return fmt.Errorf("GEMINI_MODEL is required")
	}
	return nil
}
