package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system:
// the HTTP server, the OpenAI-compatible text oracle, the market data provider,
// and the optional query audit log backed by PostgreSQL.
//
// Example YAML/ENV equivalent:
//
//	SERVER_PORT=8080
//	OPENAI_API_KEY=sk-...
//	OPENAI_MODEL=gpt-4o-mini
//	OPENAI_BASE_URL=https://api.openai.com/v1
//	YAHOO_BASE_URL=https://query1.finance.yahoo.com
//	QUERY_LOG_ENABLED=false
//	POSTGRES_HOST=localhost
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	OpenAI   OpenAIConfig   // Text oracle (chat completions) settings
	Market   MarketConfig   // Market data provider settings
	QueryLog QueryLogConfig // Optional request audit log
	Postgres PostgresConfig // PostgreSQL connection settings (query log only)
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// OpenAIConfig holds credentials and endpoint settings for the text oracle.
//
// Fields:
//   - APIKey: bearer token for the chat-completions API. Empty is tolerated at
//     startup (the oracle will fail at call time with a clear upstream error).
//   - Model: model identifier sent with every completion request.
//   - BaseURL: API root, overridable for tests or compatible gateways.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// MarketConfig holds settings for the market data provider.
type MarketConfig struct {
	YahooBaseURL string // Root of the Yahoo Finance API (overridable for tests)
}

// QueryLogConfig controls the optional persistence of served prompts.
type QueryLogConfig struct {
	Enabled bool // When true, each request is recorded in PostgreSQL
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Only consulted when the query log is enabled; the core request pipeline
// keeps no persisted state.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
// All services should import this package and read from AppConfig instead of
// reloading environment variables directly.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Behavior:
//   - Sets defaults for all optional fields.
//   - Reads environment variables automatically with viper.AutomaticEnv().
//   - Constructs the PostgreSQL connection string (DSN) for the query log.
//   - Calls validateConfig() to ensure required fields are present.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")

	viper.SetDefault("YAHOO_BASE_URL", "https://query1.finance.yahoo.com")

	viper.SetDefault("QUERY_LOG_ENABLED", false)
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "finquery")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	// Populate global config instance
	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  viper.GetString("OPENAI_API_KEY"),
			Model:   viper.GetString("OPENAI_MODEL"),
			BaseURL: viper.GetString("OPENAI_BASE_URL"),
		},
		Market: MarketConfig{
			YahooBaseURL: viper.GetString("YAHOO_BASE_URL"),
		},
		QueryLog: QueryLogConfig{
			Enabled: viper.GetBool("QUERY_LOG_ENABLED"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
	}

	// Construct Postgres DSN (used by database/sql when the query log is enabled)
	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	// Validate critical fields
	validateConfig()

	if AppConfig.OpenAI.APIKey == "" {
		log.Printf("warning: OPENAI_API_KEY is not set; oracle calls will fail")
	}
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
//
// This avoids unexpected runtime failures due to incomplete configuration.
// The OpenAI API key is deliberately not required here: its absence surfaces
// as an upstream error on the first oracle call, keeping local development
// (tests, stub oracles) possible without credentials.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.OpenAI.Model == "" {
		missing = append(missing, "OPENAI_MODEL")
	}
	if AppConfig.OpenAI.BaseURL == "" {
		missing = append(missing, "OPENAI_BASE_URL")
	}
	if AppConfig.Market.YahooBaseURL == "" {
		missing = append(missing, "YAHOO_BASE_URL")
	}

	if AppConfig.QueryLog.Enabled {
		if AppConfig.Postgres.Host == "" {
			missing = append(missing, "POSTGRES_HOST")
		}
		if AppConfig.Postgres.Port == 0 {
			missing = append(missing, "POSTGRES_PORT")
		}
		if AppConfig.Postgres.User == "" {
			missing = append(missing, "POSTGRES_USER")
		}
		if AppConfig.Postgres.DBName == "" {
			missing = append(missing, "POSTGRES_DB")
		}
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
