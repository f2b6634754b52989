// Package config loads and validates frontier configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Frontier  FrontierConfig  `mapstructure:"frontier"`
	Blacklist BlacklistConfig `mapstructure:"blacklist"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// FrontierConfig governs lifecycle and queue behavior.
type FrontierConfig struct {
	// DefaultFollowBudget seeds remaining_follows for new links.
	DefaultFollowBudget int `mapstructure:"default_follow_budget"`
	// MaxParentDepth bounds word parent-chain traversal.
	MaxParentDepth int `mapstructure:"max_parent_depth"`
	// RequeueStuckOnStart sweeps processing entities back to waiting at boot.
	RequeueStuckOnStart bool `mapstructure:"requeue_stuck_on_start"`
}

// BlacklistConfig lists URL substrings blocked from the frontier.
type BlacklistConfig struct {
	Entries []string `mapstructure:"entries"`
}

// DBConfig controls access to the Postgres backing store and the legacy
// relational export read by the bulk loader.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	Provider     string `mapstructure:"provider"`
}

// PubSubConfig holds metadata for transition-event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FRONTIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("frontier.default_follow_budget", 2)
	v.SetDefault("frontier.max_parent_depth", 64)
	v.SetDefault("frontier.requeue_stuck_on_start", true)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Frontier.DefaultFollowBudget < 0 {
		return fmt.Errorf("frontier.default_follow_budget must be >= 0")
	}
	if c.Frontier.MaxParentDepth <= 0 {
		return fmt.Errorf("frontier.max_parent_depth must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.DB.Provider {
	case "memory", "postgres":
	default:
		return fmt.Errorf("db.provider must be memory or postgres")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	return nil
}
