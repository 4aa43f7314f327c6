// Package config содержит логику чтения конфигурации сервиса маркетплейса курсов.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	DatabaseURI    string `env:"DATABASE_URI"`
	JWTSecret      string `env:"JWT_SECRET"`
	PayPalClientID string `env:"PAYPAL_CLIENT_ID"`
	PayPalSecretID string `env:"PAYPAL_SECRET_ID"`
	PayPalMode     string `env:"PAYPAL_MODE"`
	ClientURL      string `env:"CLIENT_URL"`
	UploadDir      string `env:"UPLOAD_DIR"`
}

// Parse считывает конфигурацию из .env-файла, флагов командной строки и
// переменных окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env необязателен: в проде переменные задаются окружением.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envClientURL := cfg.ClientURL
	envUploadDir := cfg.UploadDir

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.ClientURL, "c", "http://localhost:5173", "frontend base URL for payment redirects")
	flag.StringVar(&cfg.UploadDir, "u", "uploads", "directory for uploaded files")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envClientURL != "" {
		cfg.ClientURL = envClientURL
	}
	if envUploadDir != "" {
		cfg.UploadDir = envUploadDir
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.ClientURL == "" {
		cfg.ClientURL = "http://localhost:5173"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "coursehub-secret"
	}
	if cfg.PayPalMode == "" {
		cfg.PayPalMode = "sandbox"
	}

	return cfg, nil
}
