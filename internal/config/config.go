package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	UserAgent             string        `mapstructure:"user_agent"`
	ConnectTimeoutSeconds int64         `mapstructure:"connect_timeout_seconds"`
	TimeoutSeconds        int64         `mapstructure:"timeout_seconds"`
	FollowRedirects       bool          `mapstructure:"follow_redirects"`
	MaxRedirects          int           `mapstructure:"max_redirects"`
	VerifyTLS             bool          `mapstructure:"verify_tls"`
	ConnectTimeout        time.Duration `mapstructure:"-"`
	Timeout               time.Duration `mapstructure:"-"`

	ProfilesFile string `mapstructure:"profiles_file"`
	SinksFile    string `mapstructure:"sinks_file"`

	HistoryType            string        `mapstructure:"history_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "dakiya")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "warn")
	v.SetDefault("user_agent", "")
	v.SetDefault("connect_timeout_seconds", 30)
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("follow_redirects", true)
	v.SetDefault("max_redirects", 10)
	v.SetDefault("verify_tls", true)
	v.SetDefault("profiles_file", "")
	v.SetDefault("sinks_file", "")
	v.SetDefault("history_type", "none")
	v.SetDefault("bbolt_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("history_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))

	v.SetEnvPrefix("dakiya")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) finalize() error {
	if cfg.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid connect_timeout_seconds (must be positive seconds)")
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout_seconds (must be positive seconds)")
	}
	cfg.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	if cfg.HistoryTTLSeconds <= 0 {
		return fmt.Errorf("invalid history_ttl_seconds (must be positive seconds)")
	}
	if cfg.HistoryCleanupSeconds <= 0 {
		return fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.HistoryTTL = time.Duration(cfg.HistoryTTLSeconds) * time.Second
	cfg.HistoryCleanupInterval = time.Duration(cfg.HistoryCleanupSeconds) * time.Second

	// The user agent is resolved once here so the client never reads the environment.
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = strings.TrimSpace(os.Getenv("HTTP_USER_AGENT"))
	}
	return nil
}
