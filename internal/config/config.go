// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the engine configuration.
type Config struct {
	LLM           LLMConfig           `toml:"llm"`           // Default model settings
	SummaryLLM    LLMConfig           `toml:"summary_llm"`   // Cheap/fast model for result summarization
	Agent         AgentConfig         `toml:"agent"`         // Single-agent executor defaults
	Selection     SelectionConfig     `toml:"selection"`     // Tool relevance selection
	Orchestration OrchestrationConfig `toml:"orchestration"` // Sub-agent orchestration defaults
	Session       SessionConfig       `toml:"session"`       // Session event persistence
	Telemetry     TelemetryConfig     `toml:"telemetry"`
	Logging       LoggingConfig       `toml:"logging"`
}

// LLMConfig contains model provider settings.
type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	BaseURL   string `toml:"base_url"` // Custom API endpoint
	MaxTokens int    `toml:"max_tokens"`
}

// AgentConfig contains single-agent loop defaults.
type AgentConfig struct {
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float64 `toml:"temperature"`
	MaxSteps     int     `toml:"max_steps"`
}

// SelectionConfig contains tool relevance selection settings.
type SelectionConfig struct {
	MaxTools           int      `toml:"max_tools"`
	MinRelevanceScore  float64  `toml:"min_relevance_score"`
	EnableScoring      bool     `toml:"enable_scoring"`
	AlwaysInclude      []string `toml:"always_include"`
	AlwaysExclude      []string `toml:"always_exclude"`
	PriorityNamespaces []string `toml:"priority_namespaces"`
}

// OrchestrationConfig contains sub-agent defaults.
type OrchestrationConfig struct {
	MaxConcurrency  int    `toml:"max_concurrency"`
	StopOnError     bool   `toml:"stop_on_error"`
	Timeout         string `toml:"timeout"`     // Go duration string
	MaxRetries      int    `toml:"max_retries"`
	RetryDelay      string `toml:"retry_delay"` // Go duration string
	Backoff         bool   `toml:"backoff"`
	MaxResultTokens int    `toml:"max_result_tokens"`
}

// SessionConfig controls session event persistence.
type SessionConfig struct {
	Dir     string `toml:"dir"`
	Persist bool   `toml:"persist"`
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			MaxTokens: 4096,
		},
		Agent: AgentConfig{
			Temperature: 0.7,
			MaxSteps:    10,
		},
		Selection: SelectionConfig{
			MaxTools:      20,
			EnableScoring: true,
		},
		Orchestration: OrchestrationConfig{
			MaxConcurrency:  3,
			MaxRetries:      2,
			RetryDelay:      "2s",
			MaxResultTokens: 500,
		},
		Session: SessionConfig{
			Dir: "~/.local/agent-engine/sessions",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from engine.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "engine.toml"))
}

// GetAPIKey returns the API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (c *Config) GetAPIKey() string {
	envVar := c.LLM.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(c.LLM.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return ""
	}
}
