// Package extagent defines the contract for delegating a sub-agent task to
// an externally managed agent runtime instead of the local step loop.
package extagent

import (
	"context"
	"time"

	"github.com/cognia-ai/agent-engine/internal/llm"
)

// Options carries execution parameters for a delegated run.
type Options struct {
	Model       string
	Temperature float64
	MaxSteps    int
	Timeout     time.Duration
}

// Result is the delegated run's outcome, mapped by the orchestrator into
// its own result shape.
type Result struct {
	Success       bool
	FinalResponse string
	Steps         int
	Output        string
	TokenUsage    llm.Usage
	Error         string
}

// Delegate connects to and drives external agents by id. Implementations
// are expected to be safe for reuse across sub-agents.
type Delegate interface {
	// Connect establishes or verifies a connection to the external agent.
	// Idempotent; called before every Execute.
	Connect(ctx context.Context, id string) error
	// Execute runs a task on the external agent and blocks until it
	// settles or ctx is done.
	Execute(ctx context.Context, id, task string, opts Options) (Result, error)
}
