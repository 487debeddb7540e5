package utils

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

var (
	EnvPath string = "."
)

// REVISION is stamped into every API response envelope.
var REVISION = "portal-1.4.0"

type Config struct {
	Env               string `mapstructure:"ENV"`
	PortalPort        int    `mapstructure:"PORTAL_PORT"`
	BackendBaseURL    string `mapstructure:"BACKEND_BASE_URL"`
	MarketFeedURL     string `mapstructure:"MARKET_FEED_URL"`
	MarketFeedSecret  string `mapstructure:"MARKET_FEED_SECRET"`
	MarketSymbol      string `mapstructure:"MARKET_SYMBOL"`
	MarketTickGapSecs int    `mapstructure:"MARKET_TICK_GAP_SECS"`
	Papertrail        string `mapstructure:"PAPERTRAIL"`
	PapertrailAppName string `mapstructure:"PAPERTRAIL_APP_NAME"`
	RedisHost         string `mapstructure:"REDIS_HOST"`
	RedisPort         string `mapstructure:"REDIS_PORT"`
	RedisPassword     string `mapstructure:"REDIS_PASSWORD"`
}

func LoadConfig(path string) (*Config, error) {
	// Validate that the path is not empty
	if path == "" {
		path = "."
	}

	// Create a new Viper instance to avoid global state
	v := viper.New()

	// Disable environment variable prefix
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	// Configure config file
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Log the error, but don't fail entirely
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	// Create config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validateConfig(config *Config) error {
	if config.PortalPort == 0 {
		return fmt.Errorf("portal port must be specified")
	}

	if config.BackendBaseURL == "" {
		return fmt.Errorf("backend base URL must be provided")
	}

	if config.MarketSymbol == "" {
		config.MarketSymbol = "XAUUSD"
	}

	if config.MarketTickGapSecs == 0 {
		config.MarketTickGapSecs = 60
	}

	return nil
}

// Masking sensitive information for logging
func (c *Config) Redact() Config {
	redacted := *c
	redacted.MarketFeedSecret = "****"
	redacted.RedisPassword = "****"
	return redacted
}

func LoadCustomConfig(path string, val interface{}) error {
	// Validate that the path is not empty
	if path == "" {
		path = "."
	}

	// Create a new Viper instance to avoid global state
	v := viper.New()

	// Allow overriding config via environment variables
	v.SetEnvPrefix("AURUM") // Prefix for env vars
	v.AutomaticEnv()

	// Configure config file
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Log the error, but don't fail entirely
		log.Printf("Warning: Unable to read config file: %v", err)
	}

	if err := v.Unmarshal(&val); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}
