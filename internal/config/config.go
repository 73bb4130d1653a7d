package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"dario/internal/logger"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Auth       AuthConfig
	Chatbot    ChatbotConfig
	NLU        NLUConfig
	Redis      RedisConfig
	Logging    LoggingConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence over the parts below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
}

// AuthConfig holds the bearer token verification settings
type AuthConfig struct {
	JWTSecret string
}

// ChatbotConfig holds the chatbot identity and reply formatting
type ChatbotConfig struct {
	BotUserID      string
	Language       string // BCP 47 tag used to format prices
	Currency       string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NLUConfig selects and configures the intent detection collaborator
type NLUConfig struct {
	Provider        string // "dialogflow" or "openai"
	ProjectID       string
	CredentialsFile string
	LanguageCode    string

	APIKey  string
	APIBase string
	Model   string
	Timeout int
}

// RedisConfig holds Redis configuration. An empty Address keeps realtime
// delivery in-process.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Channel  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		PostgreSQL: postgreSQLFromEnv(),
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Chatbot: ChatbotConfig{
			BotUserID:      getEnv("CHATBOT_USER_ID", "chatbot"),
			Language:       getEnv("CHATBOT_LANGUAGE", "en"),
			Currency:       getEnv("CHATBOT_CURRENCY", "Dhs"),
			RateLimitRPS:   getEnvAsFloat("CHATBOT_RATE_LIMIT_RPS", 1),
			RateLimitBurst: getEnvAsInt("CHATBOT_RATE_LIMIT_BURST", 5),
		},
		NLU: NLUConfig{
			Provider:        strings.ToLower(getEnv("NLU_PROVIDER", "dialogflow")),
			ProjectID:       getEnv("DIALOGFLOW_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			LanguageCode:    getEnv("DIALOGFLOW_LANGUAGE_CODE", "fr"),
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			Model:           getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Timeout:         getEnvAsInt("NLU_TIMEOUT", 15),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHAT_CHANNEL", "dario:chat"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the PostgreSQL settings, for tools that never
// serve traffic
func LoadDatabase() *Config {
	_ = godotenv.Load()
	return &Config{PostgreSQL: postgreSQLFromEnv()}
}

func postgreSQLFromEnv() PostgreSQLConfig {
	return PostgreSQLConfig{
		DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
		Host:               getEnv("PG_HOST", "localhost"),
		Port:               getEnvAsInt("PG_PORT", 5432),
		User:               getEnv("PG_USER", "postgres"),
		Password:           getEnv("PG_PASSWORD", ""),
		Database:           getEnv("PG_DATABASE", "dario"),
		SSLMode:            getEnv("PG_SSLMODE", "disable"),
		MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
		MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
	}
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Chatbot.BotUserID == "" {
		return fmt.Errorf("CHATBOT_USER_ID must not be empty")
	}
	switch c.NLU.Provider {
	case "dialogflow":
		if c.NLU.ProjectID == "" {
			return fmt.Errorf("DIALOGFLOW_PROJECT_ID is required for the dialogflow provider")
		}
	case "openai":
		if c.NLU.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("unknown NLU_PROVIDER %q", c.NLU.Provider)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// GetMigrateURL returns the URL form golang-migrate expects
func (c *Config) GetMigrateURL() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logger.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logger.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
