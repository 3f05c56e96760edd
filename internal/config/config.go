// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load returns an
// error and the process exits.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the API service.
type Config struct {
	Port          string
	GRPCPort      string
	DatabaseURL   string
	RedisURL      string
	StatsInterval time.Duration // how often the catalog gauges are refreshed
	BcryptCost    int
	AutoMigrate   bool
	LogLevel      slog.Level
	LogFormat     string // "text" or "json"
}

// Load reads an optional .env file, then environment variables, and returns
// a validated Config. Variables already set in the environment win over the
// .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	interval := 5 * time.Minute
	if s := os.Getenv("STATS_INTERVAL"); s != "" {
		v, err := time.ParseDuration(s)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("STATS_INTERVAL must be a positive duration, got %q", s)
		}
		interval = v
	}

	cost := 12
	if s := os.Getenv("BCRYPT_COST"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 4 || v > 31 {
			return nil, fmt.Errorf("BCRYPT_COST must be an integer between 4 and 31, got %q", s)
		}
		cost = v
	}

	autoMigrate := false
	if s := os.Getenv("AUTO_MIGRATE"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("AUTO_MIGRATE must be a boolean, got %q", s)
		}
		autoMigrate = v
	}

	level, err := parseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	switch format {
	case "":
		format = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", format)
	}

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "3001"
	}

	grpcPort := os.Getenv("GRPC_PORT")
	if grpcPort == "" {
		grpcPort = "9091"
	}

	return &Config{
		Port:          port,
		GRPCPort:      grpcPort,
		DatabaseURL:   dbURL,
		RedisURL:      redisURL,
		StatsInterval: interval,
		BcryptCost:    cost,
		AutoMigrate:   autoMigrate,
		LogLevel:      level,
		LogFormat:     format,
	}, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", s)
}
