// Package orchestrator runs child agent tasks: one-off sub-agent execution
// with retry, timeout, and cancellation, plus parallel and sequential
// strategies that schedule many sub-agents and aggregate their results.
package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cognia-ai/agent-engine/internal/agent"
	"github.com/cognia-ai/agent-engine/internal/llm"
)

// Status is a sub-agent lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is final. Terminal states never revert; the
// only exception is the internal failure-to-retry path, which goes through
// ResetForRetry before the failed status is ever published.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusTimeout, StatusCancelled:
		return true
	}
	return false
}

// LogEntry is one line of a sub-agent's audit trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// SubAgent is a child agent task tracked by the orchestrator. The
// orchestrator exclusively owns it; siblings only see its Result.
type SubAgent struct {
	ID            string   `json:"id"`
	ParentAgentID string   `json:"parentAgentId,omitempty"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Task          string   `json:"task"`
	Config        Config   `json:"config"`
	Order         int      `json:"order"`
	Tags          []string `json:"tags,omitempty"`

	mu          sync.Mutex
	status      Status
	logs        []LogEntry
	progress    int
	retryCount  int
	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time
	result      *Result
	lastError   string
}

// NewSubAgent creates a pending sub-agent for a task.
func NewSubAgent(name, task string) *SubAgent {
	return &SubAgent{
		ID:        uuid.NewString(),
		Name:      name,
		Task:      task,
		status:    StatusPending,
		createdAt: time.Now(),
	}
}

// Status returns the current lifecycle state.
func (s *SubAgent) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// RetryCount returns how many times the sub-agent has been retried.
func (s *SubAgent) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// Progress returns completion progress in [0,100].
func (s *SubAgent) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Result returns the final result, or nil before completion.
func (s *SubAgent) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Logs returns a copy of the append-only log trail.
func (s *SubAgent) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// Log appends a leveled entry to the audit trail. Entries are never removed.
func (s *SubAgent) Log(level, format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	})
}

// setProgress clamps p into [0,100].
func (s *SubAgent) setProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

// markRunning transitions pending or queued to running. Returns false when
// the sub-agent is already terminal.
func (s *SubAgent) markRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false
	}
	s.status = StatusRunning
	if s.startedAt.IsZero() {
		s.startedAt = time.Now()
	}
	return true
}

// finish records a terminal state. A no-op when already terminal, so a late
// timeout can never overwrite a completed result.
func (s *SubAgent) finish(status Status, result *Result, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return
	}
	s.status = status
	s.result = result
	s.lastError = errMsg
	s.completedAt = time.Now()
	if status == StatusCompleted {
		s.progress = 100
	}
}

// resetForRetry moves a failing attempt back to pending and bumps the retry
// counter. Callable only while non-terminal.
func (s *SubAgent) resetForRetry() {
	s.mu.Lock()
	s.status = StatusPending
	s.retryCount++
	s.mu.Unlock()
}

// cancel marks the sub-agent cancelled unless it already reached a terminal
// state. Returns true when the transition happened.
func (s *SubAgent) cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false
	}
	s.status = StatusCancelled
	s.completedAt = time.Now()
	return true
}

// Result is the immutable outcome of one sub-agent run, the only thing
// siblings and the parent ever see of it.
type Result struct {
	Success       bool          `json:"success"`
	FinalResponse string        `json:"finalResponse"`
	Steps         []agent.Step  `json:"steps,omitempty"`
	TotalSteps    int           `json:"totalSteps"`
	Duration      time.Duration `json:"duration"`
	TokenUsage    llm.Usage     `json:"tokenUsage"`
	Error         string        `json:"error,omitempty"`
}

// OrchestrationResult aggregates a whole parallel or sequential run.
type OrchestrationResult struct {
	Success            bool               `json:"success"`
	Results            map[string]*Result `json:"results"`
	AggregatedResponse string             `json:"aggregatedResponse"`
	TotalDuration      time.Duration      `json:"totalDuration"`
	TotalTokenUsage    llm.Usage          `json:"totalTokenUsage"`
	Errors             map[string]string  `json:"errors,omitempty"`
}
