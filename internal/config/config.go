package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// Base URL of the upstream ticketing API, e.g. "https://tickets.example.com/api".
	// Every /Public, /Auth, /UserActions and /Organizer path is derived from it.
	APIBaseURL string

	UpstreamTimeout time.Duration

	// Catalog snapshot cache.
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins []string

	RateLimit       int
	RateLimitWindow time.Duration

	OTLPEndpoint string
}

// Load reads the environment (plus an optional .env file) into a Config.
// A missing API base URL is a fatal configuration error: the gateway is
// useless without an upstream to talk to.
func Load() Config {
	// best effort, real env vars win over the file
	_ = godotenv.Load()

	apiBase := strings.TrimRight(getEnv("API_BASE_URL", ""), "/")

	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "API_BASE_URL is required")
		os.Exit(1)
	}

	return Config{
		Env:             getEnv("APP_ENV", "dev"),
		Port:            getEnvInt("PORT", 8080),
		APIBaseURL:      apiBase,
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		CacheTTL:        getEnvDuration("CACHE_TTL", 30*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CORSOrigins:     splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimit:       getEnvInt("RATE_LIMIT", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
	}
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
