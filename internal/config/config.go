package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the CookieGuard service.
type Config struct {
	// Service addresses
	HTTPPort string
	NatsURL  string

	// Model artifacts
	ModelPath     string
	ModelCardPath string

	// Analysis settings
	AnalysisWorkers int
	Thresholds      AnalysisThresholds

	// Override store (Redis)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	OverrideTTL   time.Duration

	// Report history storage
	StorageBackend string // postgres | mysql | mongo | none
	DatabaseURL    string
	MySQLDSN       string
	MongoURI       string
	MongoDatabase  string
}

// AnalysisThresholds contains the configurable cutoffs of the analysis
// pipeline. These can be adjusted per environment (dev/staging/prod).
type AnalysisThresholds struct {
	// AuthGate is the authentication probability above which severity
	// rules apply.
	AuthGate float64
	// ReviewConfidence is the probability above which explanations call
	// a cookie high-confidence.
	ReviewConfidence float64
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Try multiple .env locations
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		// Service addresses with defaults
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		NatsURL:  getEnvOrDefault("NATS_URL", "nats://localhost:4222"),

		// Model artifacts
		ModelPath:     getEnvOrDefault("MODEL_PATH", "models/cookie_model.json"),
		ModelCardPath: getEnvOrDefault("MODEL_CARD_PATH", "models/model_card.json"),

		// Analysis settings
		AnalysisWorkers: parseIntOrDefault("ANALYSIS_WORKERS", 4),
		Thresholds: AnalysisThresholds{
			AuthGate:         parseFloatOrDefault("THRESHOLD_AUTH_GATE", 0.3),
			ReviewConfidence: parseFloatOrDefault("THRESHOLD_REVIEW_CONFIDENCE", 0.75),
		},

		// Override store
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       parseIntOrDefault("REDIS_DB", 0),

		// Report history
		StorageBackend: getEnvOrDefault("STORAGE_BACKEND", "none"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MySQLDSN:       os.Getenv("MYSQL_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDatabase:  getEnvOrDefault("MONGO_DATABASE", "cookieguard"),
	}

	// Parse override retention with default; 0 keeps overrides until
	// explicitly removed.
	ttlStr := getEnvOrDefault("OVERRIDE_TTL", "0")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid OVERRIDE_TTL: %w", err)
	}
	config.OverrideTTL = ttl

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present and in range.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.AnalysisWorkers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be at least 1")
	}

	if c.Thresholds.AuthGate <= 0 || c.Thresholds.AuthGate >= 1 {
		return fmt.Errorf("THRESHOLD_AUTH_GATE must be between 0 and 1")
	}

	if c.Thresholds.ReviewConfidence <= 0 || c.Thresholds.ReviewConfidence >= 1 {
		return fmt.Errorf("THRESHOLD_REVIEW_CONFIDENCE must be between 0 and 1")
	}

	if c.OverrideTTL < 0 {
		return fmt.Errorf("OVERRIDE_TTL must not be negative")
	}

	switch c.StorageBackend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	case "mysql":
		if c.MySQLDSN == "" {
			return fmt.Errorf("MYSQL_DSN is required when STORAGE_BACKEND=mysql")
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE_BACKEND=mongo")
		}
	case "none":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of postgres, mysql, mongo, none")
	}

	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
