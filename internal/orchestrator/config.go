package orchestrator

import (
	"time"

	"github.com/cognia-ai/agent-engine/internal/tools"
)

// Priority orders parallel batch scheduling. It never preempts running work.
type Priority string

const (
	PriorityCritical   Priority = "critical"
	PriorityHigh       Priority = "high"
	PriorityNormal     Priority = "normal"
	PriorityLow        Priority = "low"
	PriorityBackground Priority = "background"
)

// rank returns a sortable weight, lower first. Unknown values sort with
// normal so a typo degrades gracefully instead of sinking the agent.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityLow:
		return 3
	case PriorityBackground:
		return 4
	default:
		return 2
	}
}

// RetryConfig controls re-attempts after a failed or timed-out run.
type RetryConfig struct {
	MaxRetries         int           `json:"maxRetries" yaml:"max_retries"`
	RetryDelay         time.Duration `json:"retryDelay" yaml:"retry_delay"`
	ExponentialBackoff bool          `json:"exponentialBackoff" yaml:"exponential_backoff"`
}

// delayFor returns the sleep before attempt number retryCount (1-based).
func (r RetryConfig) delayFor(retryCount int) time.Duration {
	d := r.RetryDelay
	if !r.ExponentialBackoff || retryCount <= 1 {
		return d
	}
	for i := 1; i < retryCount; i++ {
		d *= 2
	}
	return d
}

// Config is the declarative policy for one sub-agent, merged from
// orchestrator defaults and per-agent overrides.
type Config struct {
	Provider     string  `json:"provider,omitempty"`
	Model        string  `json:"model,omitempty"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxSteps     int     `json:"maxSteps,omitempty"`

	Timeout  time.Duration `json:"timeout,omitempty"`
	Priority Priority      `json:"priority,omitempty"`

	// Dependencies lists sub-agent ids that must have completed
	// successfully before this one starts (sequential mode only).
	Dependencies []string `json:"dependencies,omitempty"`
	// Condition gates execution against sibling results; see
	// EvaluateCondition for the accepted forms.
	Condition string `json:"condition,omitempty"`

	Retry RetryConfig `json:"retryConfig"`

	// SummarizeResults replaces long final responses with a model-written
	// summary before siblings see them.
	SummarizeResults bool `json:"summarizeResults,omitempty"`
	// MaxResultTokens is the summarization threshold, estimated at roughly
	// four characters per token. Zero means DefaultMaxResultTokens.
	MaxResultTokens int `json:"maxResultTokens,omitempty"`

	InheritParentContext bool `json:"inheritParentContext,omitempty"`
	ShareResults         bool `json:"shareResults,omitempty"`

	// CustomTools extend or override the orchestrator's tool catalog for
	// this sub-agent only.
	CustomTools map[string]tools.Tool `json:"-"`

	UseExternalAgent bool   `json:"useExternalAgent,omitempty"`
	ExternalAgentID  string `json:"externalAgentId,omitempty"`
}

// DefaultMaxResultTokens is the summarization threshold when unset.
const DefaultMaxResultTokens = 500

// merged overlays c on top of defaults, field by field. c wins wherever it
// sets a non-zero value. The zero value of every field means "unset", so an
// override cannot express "explicitly zero": Temperature 0 or false booleans
// always take the default. Defaults that enable a flag can therefore only be
// widened per agent, never narrowed.
func (c Config) merged(defaults Config) Config {
	out := c
	if out.Provider == "" {
		out.Provider = defaults.Provider
	}
	if out.Model == "" {
		out.Model = defaults.Model
	}
	if out.SystemPrompt == "" {
		out.SystemPrompt = defaults.SystemPrompt
	}
	if out.Temperature == 0 {
		out.Temperature = defaults.Temperature
	}
	if out.MaxSteps == 0 {
		out.MaxSteps = defaults.MaxSteps
	}
	if out.Timeout == 0 {
		out.Timeout = defaults.Timeout
	}
	if out.Priority == "" {
		out.Priority = defaults.Priority
	}
	if out.Retry == (RetryConfig{}) {
		out.Retry = defaults.Retry
	}
	if out.MaxResultTokens == 0 {
		out.MaxResultTokens = defaults.MaxResultTokens
	}
	if !out.SummarizeResults {
		out.SummarizeResults = defaults.SummarizeResults
	}
	if !out.InheritParentContext {
		out.InheritParentContext = defaults.InheritParentContext
	}
	if !out.ShareResults {
		out.ShareResults = defaults.ShareResults
	}
	return out
}

// resultTokenBudget returns the effective summarization threshold.
func (c Config) resultTokenBudget() int {
	if c.MaxResultTokens > 0 {
		return c.MaxResultTokens
	}
	return DefaultMaxResultTokens
}
