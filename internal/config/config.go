package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides, e.g. UNAI_SERVER_PORT
const EnvPrefix = "UNAI"

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// newViper layers defaults, the config file and the environment
func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Seed every key from the defaults so environment overrides apply to
	// keys the config file does not mention.
	defaults, err := yaml.Marshal(GetDefaults())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/unai/")
	v.AddConfigPath("$HOME/.unai/")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.MergeInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := GetDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Rewrite.APIKey == "" {
		cfg.Rewrite.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Server.MaxTextLength <= 0 {
		return fmt.Errorf("invalid max text length: %d", config.Server.MaxTextLength)
	}

	if config.Detection.CatalogFile == "" && config.Detection.Catalog != "full" && config.Detection.Catalog != "compact" {
		return fmt.Errorf("invalid catalog: %s (must be full or compact)", config.Detection.Catalog)
	}

	if config.Rewrite.Temperature < 0 || config.Rewrite.Temperature > 2 {
		return fmt.Errorf("invalid rewrite temperature: %v (must be between 0 and 2)", config.Rewrite.Temperature)
	}

	if config.Rewrite.MaxTokens <= 0 {
		return fmt.Errorf("invalid rewrite max tokens: %d", config.Rewrite.MaxTokens)
	}

	if config.History.Enabled && config.History.Driver != "postgres" && config.History.Driver != "sqlite" {
		return fmt.Errorf("invalid history driver: %s (must be postgres or sqlite)", config.History.Driver)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerMin <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: %d/min burst %d", config.RateLimit.RequestsPerMin, config.RateLimit.Burst)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	return nil
}

// Watch watches the configuration file and calls callback with every valid
// new configuration. Invalid edits are reported through onError and skipped.
func Watch(configPath string, callback func(*Config), onError func(error)) error {
	v, err := newViper(configPath)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return fmt.Errorf("no config file to watch")
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}
		callback(newConfig)
	})
	v.WatchConfig()

	return nil
}
