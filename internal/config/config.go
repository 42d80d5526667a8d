// Package config provides configuration management for the position guard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"positionguard/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Exchange    ExchangeConfig `mapstructure:"exchange"`
	Guard       GuardConfig    `mapstructure:"guard"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
}

// ExchangeConfig holds venue-specific request parameters.
type ExchangeConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ProductType    string        `mapstructure:"product_type"` // UMCBL for USDT-margined futures
	MarginCoin     string        `mapstructure:"margin_coin"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GuardConfig holds reconciliation parameters.
type GuardConfig struct {
	Tolerance      float64 `mapstructure:"tolerance"`       // size-unit epsilon for comparisons
	PricePrecision int     `mapstructure:"price_precision"` // decimals for trigger prices
	SizePrecision  int     `mapstructure:"size_precision"`  // decimals for order sizes
	UserKey        string  `mapstructure:"user_key"`        // key into the signal store
	DBPath         string  `mapstructure:"db_path"`
	TrackSignals   bool    `mapstructure:"track_signals"` // enable the take-profit tracker
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// Credentials holds API credentials.
type Credentials struct {
	Bitget BitgetCredentials `mapstructure:"bitget"`
}

// BitgetCredentials holds Bitget API credentials.
type BitgetCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Passphrase string `mapstructure:"passphrase"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/positionguard"
	}
	return filepath.Join(home, ".config", "positionguard")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// A .env next to the binary or in the working directory may carry
	// credentials; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("exchange.base_url", "https://api.bitget.com")
	v.SetDefault("exchange.product_type", "UMCBL")
	v.SetDefault("exchange.margin_coin", "USDT")
	v.SetDefault("exchange.request_timeout", "10s")
	v.SetDefault("guard.tolerance", 0.0001)
	v.SetDefault("guard.price_precision", 4)
	v.SetDefault("guard.size_precision", 4)
	v.SetDefault("guard.user_key", "default")
	v.SetDefault("guard.db_path", filepath.Join(configDir, "guard.db"))
	v.SetDefault("guard.track_signals", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Defaults are complete; write a template for next time.
			_ = createTemplateConfig(configDir)
		} else {
			return err
		}
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Credentials may arrive via environment; template for next time.
			_ = createTemplateCredentials(configDir)
			return nil
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BITGET_API_KEY"); v != "" {
		cfg.Credentials.Bitget.APIKey = v
	}
	if v := os.Getenv("BITGET_API_SECRET"); v != "" {
		cfg.Credentials.Bitget.APISecret = v
	}
	if v := os.Getenv("BITGET_PASSWORD"); v != "" {
		cfg.Credentials.Bitget.Passphrase = v
	}
	if v := os.Getenv("GUARD_USER_KEY"); v != "" {
		cfg.Guard.UserKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Guard.Tolerance <= 0 {
		return fmt.Errorf("%w: guard.tolerance must be positive", errors.ErrConfigInvalid)
	}
	if c.Guard.PricePrecision < 0 || c.Guard.PricePrecision > 12 {
		return fmt.Errorf("%w: guard.price_precision must be between 0 and 12", errors.ErrConfigInvalid)
	}
	if c.Guard.SizePrecision < 0 || c.Guard.SizePrecision > 12 {
		return fmt.Errorf("%w: guard.size_precision must be between 0 and 12", errors.ErrConfigInvalid)
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("%w: exchange.base_url must not be empty", errors.ErrConfigInvalid)
	}
	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("%w: exchange.request_timeout must be positive", errors.ErrConfigInvalid)
	}
	return nil
}

// ValidateCredentials checks that the API credentials needed for a pass are
// present. Missing credentials are fatal: the pass must not start.
func (c *Config) ValidateCredentials() error {
	b := c.Credentials.Bitget
	if b.APIKey == "" || b.APISecret == "" || b.Passphrase == "" {
		return errors.ErrMissingCredentials
	}
	return nil
}
