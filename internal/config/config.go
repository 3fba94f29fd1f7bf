package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-phishing-detector/")
	v.AddConfigPath("$HOME/.llm-phishing-detector")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISHING_DETECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Inference provider defaults
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.phase_timeout", "60s")
	v.SetDefault("llm.overall_timeout", "5m")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.requests_per_second", 0.0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("llm.phases", []string{"structural", "content", "intent"})

	// Retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", "1s")
	v.SetDefault("retry.max_delay", "10s")

	// Server defaults
	v.SetDefault("server.filter_type", "smtp")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_high_risk", false)
	v.SetDefault("server.headers.score", "X-Phishing-Score")
	v.SetDefault("server.headers.tier", "X-Phishing-Tier")
	v.SetDefault("server.headers.flags", "X-Phishing-Flags")
	v.SetDefault("server.headers.status", "X-Phishing-Status")
	v.SetDefault("server.relay.enabled", false)
	v.SetDefault("server.relay.address", "localhost")
	v.SetDefault("server.relay.port", 10026)

	// CLI defaults
	v.SetDefault("cli.verbose", false)

	// Ollama defaults
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model_name", "mistral")
	v.SetDefault("ollama.request_timeout", "120s")

	// OpenAI-compatible endpoint defaults
	v.SetDefault("openai.base_url", "http://localhost:8080/v1")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "local-model")
	v.SetDefault("openai.request_timeout", "120s")

	// Trust defaults
	v.SetDefault("trust.domains_file", "./configs/trusted_domains.txt")
	v.SetDefault("trust.watch", true)
	v.SetDefault("trust.government_delta", -4.0)
	v.SetDefault("trust.education_delta", -3.0)
	v.SetDefault("trust.corporate_delta", -2.0)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/verdict_cache.db")
	v.SetDefault("cache.mysql.host", "localhost")
	v.SetDefault("cache.mysql.port", 3306)
	v.SetDefault("cache.mysql.database", "phishing_detector")
	v.SetDefault("cache.mysql.username", "detector")
	v.SetDefault("cache.mysql.password", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
