package config

import "time"

// LLMConfig represents the configuration for the inference provider
type LLMConfig struct {
	Provider          string
	PhaseTimeout      time.Duration
	OverallTimeout    time.Duration
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
	Burst             int
	Phases            []string
}

// RetryConfig represents the retry policy for transient inference failures
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// OllamaConfig represents the configuration for a native Ollama endpoint
type OllamaConfig struct {
	BaseURL        string
	ModelName      string
	RequestTimeout time.Duration
}

// OpenAIConfig represents the configuration for an OpenAI-compatible endpoint
type OpenAIConfig struct {
	BaseURL        string
	APIKey         string
	ModelName      string
	RequestTimeout time.Duration
}

// TrustConfig represents the trusted-domain policy
type TrustConfig struct {
	DomainsFile     string
	Watch           bool
	GovernmentDelta float64
	EducationDelta  float64
	CorporateDelta  float64
}

// MySQLConfig represents the MySQL cache connection settings
type MySQLConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// GetLLM returns the inference provider configuration
func (c *Config) GetLLM() LLMConfig {
	phaseTimeout, err := c.GetDuration("llm.phase_timeout")
	if err != nil {
		phaseTimeout = 60 * time.Second
	}
	overallTimeout, err := c.GetDuration("llm.overall_timeout")
	if err != nil {
		overallTimeout = 5 * time.Minute
	}
	return LLMConfig{
		Provider:          c.GetString("llm.provider"),
		PhaseTimeout:      phaseTimeout,
		OverallTimeout:    overallTimeout,
		MaxTokens:         c.GetInt("llm.max_tokens"),
		Temperature:       c.GetFloat64("llm.temperature"),
		RequestsPerSecond: c.GetFloat64("llm.requests_per_second"),
		Burst:             c.GetInt("llm.burst"),
		Phases:            c.GetStringSlice("llm.phases"),
	}
}

// GetRetry returns the retry policy
func (c *Config) GetRetry() RetryConfig {
	initialDelay, err := c.GetDuration("retry.initial_delay")
	if err != nil {
		initialDelay = time.Second
	}
	maxDelay, err := c.GetDuration("retry.max_delay")
	if err != nil {
		maxDelay = 10 * time.Second
	}
	return RetryConfig{
		MaxAttempts:  c.GetInt("retry.max_attempts"),
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
	}
}

// GetOllama returns the Ollama endpoint configuration
func (c *Config) GetOllama() OllamaConfig {
	timeout, err := c.GetDuration("ollama.request_timeout")
	if err != nil {
		timeout = 120 * time.Second
	}
	return OllamaConfig{
		BaseURL:        c.GetString("ollama.base_url"),
		ModelName:      c.GetString("ollama.model_name"),
		RequestTimeout: timeout,
	}
}

// GetOpenAI returns the OpenAI-compatible endpoint configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	timeout, err := c.GetDuration("openai.request_timeout")
	if err != nil {
		timeout = 120 * time.Second
	}
	return OpenAIConfig{
		BaseURL:        c.GetString("openai.base_url"),
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		RequestTimeout: timeout,
	}
}

// GetTrust returns the trusted-domain policy
func (c *Config) GetTrust() TrustConfig {
	return TrustConfig{
		DomainsFile:     c.GetString("trust.domains_file"),
		Watch:           c.GetBool("trust.watch"),
		GovernmentDelta: c.GetFloat64("trust.government_delta"),
		EducationDelta:  c.GetFloat64("trust.education_delta"),
		CorporateDelta:  c.GetFloat64("trust.corporate_delta"),
	}
}

// GetMySQL returns the MySQL cache connection settings
func (c *Config) GetMySQL() MySQLConfig {
	return MySQLConfig{
		Host:     c.GetString("cache.mysql.host"),
		Port:     c.GetInt("cache.mysql.port"),
		Database: c.GetString("cache.mysql.database"),
		Username: c.GetString("cache.mysql.username"),
		Password: c.GetString("cache.mysql.password"),
	}
}
