// Package config loads the middleware configuration from file and
// environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Agent          AgentConfig          `mapstructure:"agent"`
	Asset          AssetConfig          `mapstructure:"asset"`
	Sidechain      SidechainConfig      `mapstructure:"sidechain"`
	Networks       NetworksConfig       `mapstructure:"networks"`
	Preferences    PreferencesConfig    `mapstructure:"preferences"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AgentConfig contains wallet agent settings. A missing API key disables
// authentication restoration (logged, not fatal).
type AgentConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	DetectHost   string        `mapstructure:"detect_host" validate:"omitempty,hostname"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// AssetConfig contains the issued-asset settings. Missing issuer or
// currency disables trust-line features (logged, not fatal).
type AssetConfig struct {
	Issuer         string `mapstructure:"issuer"`
	Currency       string `mapstructure:"currency"`
	TrustlineLimit string `mapstructure:"trustline_limit"`
}

// SidechainConfig contains the EVM sidechain account settings
type SidechainConfig struct {
	Address string `mapstructure:"address" validate:"omitempty,eth_addr"`
}

// NetworksConfig contains registry adjustments
type NetworksConfig struct {
	OverridesPath string `mapstructure:"overrides_path"`
}

// PreferencesConfig locates the persisted network selection
type PreferencesConfig struct {
	Path string `mapstructure:"path"`
}

// ReconciliationConfig contains settings for periodic balance refresh
type ReconciliationConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Agent defaults
	viper.SetDefault("agent.base_url", "https://oauth2.xaman.app/api/v1")
	viper.SetDefault("agent.detect_host", "xaman.app")
	viper.SetDefault("agent.poll_interval", "2s")

	// Asset defaults
	viper.SetDefault("asset.trustline_limit", "1000000000")

	// Preferences defaults
	viper.SetDefault("preferences.path", "preferences.json")

	// Reconciliation defaults
	viper.SetDefault("reconciliation.interval", "30s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}
	if config.Agent.APIKey != "" && config.Agent.BaseURL == "" {
		return fmt.Errorf("agent.base_url is required when agent.api_key is set")
	}
	return nil
}
