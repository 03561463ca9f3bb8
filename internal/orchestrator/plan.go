package orchestrator

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Plan is a declarative orchestration file: a set of sub-agents plus the
// strategy to run them with. Durations are written as Go duration strings
// ("30s", "2m").
type Plan struct {
	Name           string      `yaml:"name"`
	Strategy       string      `yaml:"strategy"` // parallel or sequential
	MaxConcurrency int         `yaml:"max_concurrency"`
	StopOnError    bool        `yaml:"stop_on_error"`
	ParentContext  string      `yaml:"parent_context"`
	Defaults       PlanConfig  `yaml:"defaults"`
	Agents         []PlanAgent `yaml:"agents"`
}

// PlanAgent declares one sub-agent. Order 0 means "unset" and falls back to
// the agent's declaration position; explicit ordering starts at 1.
type PlanAgent struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Task        string     `yaml:"task"`
	Order       int        `yaml:"order"`
	Tags        []string   `yaml:"tags"`
	Config      PlanConfig `yaml:"config"`
}

// PlanConfig mirrors Config with YAML-friendly duration strings.
type PlanConfig struct {
	Provider             string   `yaml:"provider"`
	Model                string   `yaml:"model"`
	SystemPrompt         string   `yaml:"system_prompt"`
	Temperature          float64  `yaml:"temperature"`
	MaxSteps             int      `yaml:"max_steps"`
	Timeout              string   `yaml:"timeout"`
	Priority             string   `yaml:"priority"`
	Dependencies         []string `yaml:"dependencies"`
	Condition            string   `yaml:"condition"`
	MaxRetries           int      `yaml:"max_retries"`
	RetryDelay           string   `yaml:"retry_delay"`
	ExponentialBackoff   bool     `yaml:"exponential_backoff"`
	SummarizeResults     bool     `yaml:"summarize_results"`
	MaxResultTokens      int      `yaml:"max_result_tokens"`
	InheritParentContext bool     `yaml:"inherit_parent_context"`
	ShareResults         bool     `yaml:"share_results"`
	UseExternalAgent     bool     `yaml:"use_external_agent"`
	ExternalAgentID      string   `yaml:"external_agent_id"`
}

// LoadPlan reads and validates an orchestration plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return &plan, nil
}

// Validate checks the plan for structural problems before any agent runs.
func (p *Plan) Validate() error {
	switch p.Strategy {
	case "", "parallel", "sequential":
	default:
		return fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	if len(p.Agents) == 0 {
		return fmt.Errorf("plan declares no agents")
	}
	ids := make(map[string]bool, len(p.Agents))
	for i, a := range p.Agents {
		if a.Task == "" {
			return fmt.Errorf("agent %d (%s) has no task", i, a.Name)
		}
		if a.ID != "" {
			if ids[a.ID] {
				return fmt.Errorf("duplicate agent id %q", a.ID)
			}
			ids[a.ID] = true
		}
	}
	for _, a := range p.Agents {
		for _, dep := range a.Config.Dependencies {
			if !ids[dep] {
				return fmt.Errorf("agent %s depends on unknown id %q", a.Name, dep)
			}
		}
	}
	if _, err := p.Defaults.toConfig(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for _, a := range p.Agents {
		if _, err := a.Config.toConfig(); err != nil {
			return fmt.Errorf("agent %s: %w", a.Name, err)
		}
	}
	return nil
}

// SubAgents materializes the plan's agents. Declared ids are kept so
// dependencies and conditions can reference them.
func (p *Plan) SubAgents() ([]*SubAgent, error) {
	out := make([]*SubAgent, 0, len(p.Agents))
	for i, a := range p.Agents {
		cfg, err := a.Config.toConfig()
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.Name, err)
		}
		sa := NewSubAgent(a.Name, a.Task)
		if a.ID != "" {
			sa.ID = a.ID
		}
		sa.Description = a.Description
		sa.Tags = a.Tags
		sa.Config = cfg
		sa.Order = a.Order
		if a.Order == 0 {
			sa.Order = i
		}
		out = append(out, sa)
	}
	return out, nil
}

// DefaultConfig converts the plan-level defaults.
func (p *Plan) DefaultConfig() (Config, error) {
	return p.Defaults.toConfig()
}

func (pc PlanConfig) toConfig() (Config, error) {
	timeout, err := parseDuration(pc.Timeout)
	if err != nil {
		return Config{}, fmt.Errorf("timeout: %w", err)
	}
	retryDelay, err := parseDuration(pc.RetryDelay)
	if err != nil {
		return Config{}, fmt.Errorf("retry_delay: %w", err)
	}
	return Config{
		Provider:     pc.Provider,
		Model:        pc.Model,
		SystemPrompt: pc.SystemPrompt,
		Temperature:  pc.Temperature,
		MaxSteps:     pc.MaxSteps,
		Timeout:      timeout,
		Priority:     Priority(pc.Priority),
		Dependencies: pc.Dependencies,
		Condition:    pc.Condition,
		Retry: RetryConfig{
			MaxRetries:         pc.MaxRetries,
			RetryDelay:         retryDelay,
			ExponentialBackoff: pc.ExponentialBackoff,
		},
		SummarizeResults:     pc.SummarizeResults,
		MaxResultTokens:      pc.MaxResultTokens,
		InheritParentContext: pc.InheritParentContext,
		ShareResults:         pc.ShareResults,
		UseExternalAgent:     pc.UseExternalAgent,
		ExternalAgentID:      pc.ExternalAgentID,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
