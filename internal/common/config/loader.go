package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GENAI_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored when absent.
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or the project root,
// so the binary behaves the same when launched from cmd/ subdirectories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stockshock-backend"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "0.1.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/finance.db"
	}
	if cfg.Database.SQLite.MaxConnections == 0 {
		cfg.Database.SQLite.MaxConnections = 10
	}
	if cfg.Database.SQLite.MaxIdle == 0 {
		cfg.Database.SQLite.MaxIdle = 2
	}

	if cfg.APIs.GenAI.BaseURL == "" {
		cfg.APIs.GenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIs.GenAI.Model == "" {
		cfg.APIs.GenAI.Model = "gpt-4o-mini"
	}
	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 60000
	}
	if cfg.APIs.GenAI.MaxRetries == 0 {
		cfg.APIs.GenAI.MaxRetries = 2
	}
	if cfg.APIs.GenAI.CacheTTL == 0 {
		cfg.APIs.GenAI.CacheTTL = 300000
	}

	if len(cfg.Guard.AllowedTables) == 0 {
		cfg.Guard.AllowedTables = []string{"stock_prices", "news"}
	}
	if len(cfg.Guard.ForbiddenKeywords) == 0 {
		cfg.Guard.ForbiddenKeywords = []string{
			"insert", "update", "delete", "drop", "alter", "create",
			"truncate", "replace", "merge", "grant", "revoke",
			"attach", "detach", "pragma", "vacuum", "reindex",
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// applyEnvOverrides maps well-known environment variables onto fields that
// viper's AutomaticEnv cannot reach through nested structs.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FINANCE_DB_PATH"); v != "" {
		cfg.Database.SQLite.Path = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		cfg.APIs.GenAI.APIKey = v
	}
	if v := os.Getenv("GENAI_BASE_URL"); v != "" {
		cfg.APIs.GenAI.BaseURL = v
	}
	if v := os.Getenv("GENAI_MODEL"); v != "" {
		cfg.APIs.GenAI.Model = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		cfg.Database.Redis.Address = v
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.SQLite.Path == "" {
		return fmt.Errorf("database.sqlite.path is required")
	}

	if cfg.APIs.GenAI.BaseURL == "" {
		return fmt.Errorf("apis.genai.base_url is required")
	}

	if len(cfg.Guard.AllowedTables) == 0 {
		return fmt.Errorf("guard.allowed_tables must not be empty")
	}
	if len(cfg.Guard.ForbiddenKeywords) == 0 {
		return fmt.Errorf("guard.forbidden_keywords must not be empty")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
