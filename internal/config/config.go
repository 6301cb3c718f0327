package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/negraodenio/roast/internal/constants"
)

type Config struct {
	Server   ServerConfig
	Primary  PrimaryLLMConfig
	Fallback FallbackLLMConfig
	LLM      LLMConfig
	Scraper  ScraperConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Roast    RoastConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Addr           string
	Mode           string
	AllowedOrigins []string
	PublicAppURL   string
}

// PrimaryLLMConfig is the OpenAI-compatible SiliconFlow endpoint plus the
// model used for each prompt slot.
type PrimaryLLMConfig struct {
	APIKey     string
	BaseURL    string
	MaxTokens  int
	RoastModel string
	UXModel    string
	SEOModel   string
}

const (
	FallbackGroq   = "groq"
	FallbackGemini = "gemini"
)

type FallbackLLMConfig struct {
	Provider      string
	GroqAPIKey    string
	GroqBaseURL   string
	GroqModel     string
	GroqMaxTokens int
	GeminiAPIKey  string
	GeminiModel   string
}

// LLMConfig covers every provider: the per-request timeout and the breaker in
// front of the primary.
type LLMConfig struct {
	RequestTimeout   time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

type ScraperConfig struct {
	Timeout   time.Duration
	UserAgent string
}

type PostgresConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig is optional. An empty Host disables the rate limiter and the
// wall cache.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type AuthConfig struct {
	JWTSecret string
}

type RoastConfig struct {
	Timeout         time.Duration
	AnonDailyLimit  int
	FreePlanCredits int
}

type LoggingConfig struct {
	Level  string
	File   string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:           getEnv("SERVER_ADDR", ":8080"),
			Mode:           getEnv("SERVER_MODE", "release"),
			AllowedOrigins: parseCommaSeparated(getEnv("CORS_ALLOWED_ORIGINS", "")),
			PublicAppURL:   getEnv("PUBLIC_APP_URL", ""),
		},
		Primary: PrimaryLLMConfig{
			APIKey:     getEnv("SILICONFLOW_API_KEY", ""),
			BaseURL:    getEnv("SILICONFLOW_API_URL", "https://api.siliconflow.com/v1"),
			MaxTokens:  getEnvInt("SILICONFLOW_MAX_TOKENS", constants.LLMConfig.PrimaryMaxTokens),
			RoastModel: getEnv("SILICONFLOW_ROAST_MODEL", "deepseek-ai/DeepSeek-V3"),
			UXModel:    getEnv("SILICONFLOW_UX_MODEL", "Qwen/Qwen2.5-72B-Instruct"),
			SEOModel:   getEnv("SILICONFLOW_SEO_MODEL", "deepseek-ai/DeepSeek-V3"),
		},
		Fallback: FallbackLLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_FALLBACK_PROVIDER", FallbackGroq)),
			GroqAPIKey:    getEnv("GROQ_API_KEY", ""),
			GroqBaseURL:   getEnv("GROQ_API_URL", "https://api.groq.com/openai/v1"),
			GroqModel:     getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			GroqMaxTokens: getEnvInt("GROQ_MAX_TOKENS", constants.LLMConfig.FallbackMaxTokens),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		LLM: LLMConfig{
			RequestTimeout:   getEnvDuration("LLM_REQUEST_TIMEOUT_SECONDS", constants.LLMConfig.RequestTimeout),
			BreakerThreshold: getEnvInt("LLM_BREAKER_THRESHOLD", constants.CircuitBreakerConfig.FailureThreshold),
			BreakerReset:     getEnvDuration("LLM_BREAKER_RESET_SECONDS", constants.CircuitBreakerConfig.ResetTimeout),
		},
		Scraper: ScraperConfig{
			Timeout:   getEnvDuration("SCRAPER_TIMEOUT_SECONDS", constants.ScraperConfig.Timeout),
			UserAgent: getEnv("SCRAPER_USER_AGENT", constants.ScraperConfig.UserAgent),
		},
		Postgres: PostgresConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "roast"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "roast"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
		},
		Roast: RoastConfig{
			Timeout:         getEnvDuration("ROAST_TIMEOUT_SECONDS", constants.RoastConfig.Timeout),
			AnonDailyLimit:  getEnvInt("ANON_ROAST_DAILY_LIMIT", constants.RoastConfig.AnonDailyLimit),
			FreePlanCredits: getEnvInt("FREE_PLAN_CREDITS", constants.RoastConfig.FreePlanCredits),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			File:   getEnv("LOG_FILE", ""),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks structural settings only. Missing provider keys are allowed:
// the gateway reports every provider unavailable instead.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("SERVER_MODE must be debug, release or test, got %q", c.Server.Mode)
	}
	switch c.Fallback.Provider {
	case FallbackGroq, FallbackGemini:
	default:
		return fmt.Errorf("LLM_FALLBACK_PROVIDER must be %q or %q, got %q", FallbackGroq, FallbackGemini, c.Fallback.Provider)
	}
	if c.Primary.RoastModel == "" || c.Primary.UXModel == "" || c.Primary.SEOModel == "" {
		return fmt.Errorf("SILICONFLOW_*_MODEL must not be empty")
	}
	if c.Postgres.URL == "" && c.Postgres.Host == "" {
		return fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
	}
	if c.LLM.BreakerThreshold < 0 {
		return fmt.Errorf("LLM_BREAKER_THRESHOLD must not be negative, 0 disables the breaker")
	}
	if c.Roast.Timeout <= 0 {
		return fmt.Errorf("ROAST_TIMEOUT_SECONDS must be positive")
	}
	if c.Roast.AnonDailyLimit <= 0 {
		return fmt.Errorf("ANON_ROAST_DAILY_LIMIT must be positive")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
