package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	JWTSecret        string
	SessionTTL       time.Duration // lifetime of issued session tokens
	SessionCacheTTL  time.Duration // how long a validated session is served from cache
	MongoURI         string
	DBName           string
	Environment      string
	AppId            string
	BcryptCost       int
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	RateLimitMax     int // requests per window per principal/IP
	RateLimitWindow  time.Duration
	LegacyFeedDSN    string // Postgres DSN of the legacy listings feed, empty disables import
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		SessionTTL:       getDuration("SESSION_TTL", 12*time.Hour),
		SessionCacheTTL:  getDuration("SESSION_CACHE_TTL", 5*time.Minute),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:           getEnv("DB_NAME", "estate-cms"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		AppId:            getEnv("APP_ID", "estate-cms"),
		BcryptCost:       getInt("BCRYPT_COST", 12),
		MaxLoginAttempts: getInt("MAX_LOGIN_ATTEMPTS", 5),
		LockoutDuration:  getDuration("LOCKOUT_DURATION", 15*time.Minute),
		RateLimitMax:     getInt("RATE_LIMIT_MAX", 120),
		RateLimitWindow:  getDuration("RATE_LIMIT_WINDOW", time.Minute),
		LegacyFeedDSN:    getEnv("LEGACY_FEED_DSN", ""),
	}, nil
}

// IsDevelopment reports whether internal error detail may be exposed to callers.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
