// Package config loads application configuration from environment variables
// and an optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	Environment string
	LogLevel    string
	HTTPAddr    string

	Accounting AccountingAPIConfig
}

// AccountingAPIConfig describes the remote accounting API boundary. The
// bearer token comes from the session layer; this service only forwards it.
type AccountingAPIConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "voucherd"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8086"),
		Accounting: AccountingAPIConfig{
			BaseURL:        strings.TrimRight(getenv("ACCOUNTING_API_URL", "http://localhost:9000"), "/"),
			Token:          strings.TrimSpace(getenv("ACCOUNTING_API_TOKEN", "")),
			TimeoutSeconds: getenvInt("ACCOUNTING_API_TIMEOUT_SECONDS", 12),
		},
	}
}

// Module provides Config to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
