package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API        APIConfig
	Extract    ExtractConfig
	Database   DatabaseConfig
	Similarity SimilarityConfig
	Log        LogConfig
}

// APIConfig holds catalog service settings. Addr is where the service
// listens; BaseURL is where the CLI reaches it.
type APIConfig struct {
	Addr    string
	BaseURL string `mapstructure:"base_url"`
}

// ExtractConfig holds extraction service settings.
type ExtractConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Token       string
	FileTimeout time.Duration `mapstructure:"file_timeout"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string
}

// SimilarityConfig holds duplicate-detection thresholds.
type SimilarityConfig struct {
	MaxDistance int `mapstructure:"max_distance"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// Load reads configuration from file and env. Env var overrides use prefix
// STATEMENTDESK_, e.g. STATEMENTDESK_EXTRACT_TOKEN.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("api.addr", ":8085")
	v.SetDefault("api.base_url", "http://localhost:8085")
	v.SetDefault("extract.base_url", "http://localhost:8000")
	v.SetDefault("extract.token", "")
	v.SetDefault("extract.file_timeout", 2*time.Minute)
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "statement-desk", "statement-desk.db"))
	v.SetDefault("similarity.max_distance", 2)
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("STATEMENTDESK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "statement-desk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("STATEMENTDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}
