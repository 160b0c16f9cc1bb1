package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig
	App       AppConfig
	Redis     RedisConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Seed      SeedConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// AppConfig holds HTTP server configuration
type AppConfig struct {
	Mode        string // gin mode: debug, release, test
	Port        string
	JWTSecret   string
	CORSOrigins []string
}

// RedisConfig is optional; an empty Addr disables the tax rule cache.
type RedisConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// SearchConfig configures the vendor discovery backend.
type SearchConfig struct {
	Host    string
	Index   string
	Timeout time.Duration
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

type SchedulerConfig struct {
	AuctionSpec string
}

// SeedConfig holds the bootstrap buyer_admin credentials for the seed command
type SeedConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configs/.env (or .env) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println("No configs/.env or .env file found, using process environment")
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "procurement"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Mode:        getEnv("GIN_MODE", "debug"),
			Port:        getEnv("PORT", "8080"),
			JWTSecret:   os.Getenv("JWT_SECRET"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASS"),
			TTL:      getDuration("TAX_CACHE_TTL", 5*time.Minute),
		},
		Search: SearchConfig{
			Host:    os.Getenv("ELASTICSEARCH_HOST"),
			Index:   getEnv("VENDOR_INDEX", "vendor_directory"),
			Timeout: getDuration("DISCOVERY_TIMEOUT", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getFloat("RATE_LIMIT_RPS", 20),
			Burst:     getInt("RATE_LIMIT_BURST", 40),
		},
		Scheduler: SchedulerConfig{
			AuctionSpec: getEnv("AUCTION_SCHEDULE", "@every 1m"),
		},
		Seed: SeedConfig{
			AdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
			AdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
			AdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		},
	}

	if cfg.App.JWTSecret == "" {
		if cfg.App.Mode == "release" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in release mode")
		}
		cfg.App.JWTSecret = "default_super_secret_key" // development only
	}

	return cfg, nil
}

// DSN returns the postgres connection URL
func (c DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
