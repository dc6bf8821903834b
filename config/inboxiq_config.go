package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	minProviderTimeout = 5 * time.Second
	maxProviderTimeout = 15 * time.Second
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// Storage
	DatabaseURL string
	RedisURL    string
	MongoDBURL  string
	MongoDBName string

	// Neo4j
	Neo4jURL      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	// Auth
	JWTSecret     string
	EncryptionKey string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// UseTemplateFallback forces the template backend even when a model is configured.
	UseTemplateFallback bool

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string

	// ProviderTimeout bounds every remote call, clamped to 5-15s.
	ProviderTimeout time.Duration

	// Heuristic tuning
	IntentActionThreshold float64
	ContactMinScore       float64
	ContactMaxResults     int
	ContactCacheTTL       time.Duration
	WindowBufferSize      int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		MongoDBURL:  getEnv("MONGODB_URL", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGODB_NAME", "inboxiq"),

		Neo4jURL:      getEnv("NEO4J_URL", ""),
		Neo4jUsername: getEnv("NEO4J_USER", ""),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 600),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),

		UseTemplateFallback: getEnvBool("USE_TEMPLATE_FALLBACK", false),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		ProviderTimeout: clampTimeout(time.Duration(getEnvInt("PROVIDER_TIMEOUT_SEC", 10)) * time.Second),

		IntentActionThreshold: getEnvFloat("INTENT_ACTION_THRESHOLD", 0.7),
		ContactMinScore:       getEnvFloat("CONTACT_MIN_SCORE", 0.6),
		ContactMaxResults:     getEnvInt("CONTACT_MAX_RESULTS", 5),
		ContactCacheTTL:       time.Duration(getEnvInt("CONTACT_CACHE_TTL_MIN", 30)) * time.Minute,
		WindowBufferSize:      getEnvInt("WINDOW_BUFFER_SIZE", 3),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EncryptionKey == "" {
		cfg.EncryptionKey = cfg.JWTSecret
	}
	return cfg, nil
}

func clampTimeout(d time.Duration) time.Duration {
	if d < minProviderTimeout {
		return minProviderTimeout
	}
	if d > maxProviderTimeout {
		return maxProviderTimeout
	}
	return d
}

// RemoteModelEnabled reports whether content generation should try the model first.
func (c *Config) RemoteModelEnabled() bool {
	return c.OpenAIAPIKey != "" && !c.UseTemplateFallback
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
