package agent

import (
	"time"

	"github.com/cognia-ai/agent-engine/internal/llm"
)

// ToolCallStatus is the lifecycle state of a single tool invocation.
type ToolCallStatus string

const (
	ToolCallPending   ToolCallStatus = "pending"
	ToolCallRunning   ToolCallStatus = "running"
	ToolCallCompleted ToolCallStatus = "completed"
	ToolCallError     ToolCallStatus = "error"
)

// ToolCall records one tool invocation parsed from model output. Terminal
// states (completed, error) never revert. A call rejected at the approval
// gate stays pending forever; its tool is never executed.
type ToolCall struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Args        map[string]interface{} `json:"args"`
	Status      ToolCallStatus         `json:"status"`
	Result      interface{}            `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at,omitzero"`
	CompletedAt time.Time              `json:"completed_at,omitzero"`
}

// Step is an immutable record of one loop iteration. One Step is appended
// per iteration whether or not a tool was invoked.
type Step struct {
	StepNumber int        `json:"step_number"`
	Response   string     `json:"response"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// ExecutionState is the mutable state of one run. It is owned exclusively by
// the Execute invocation that created it; stop conditions receive it
// read-only and must not mutate it.
type ExecutionState struct {
	StepCount     int
	StartTime     time.Time
	LastResponse  string
	LastToolCalls []ToolCall // reset every step
	History       []llm.Message
	Running       bool
	Err           string
}

// Elapsed returns the wall-clock time since the run started.
func (s *ExecutionState) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// Result is the outcome of one agent run. A run that hit the step cap is
// still a success; Error is set only when the run aborted (model failure or
// cancellation), in which case Steps holds the partial progress.
type Result struct {
	Success       bool
	FinalResponse string
	Steps         []Step
	TotalSteps    int
	Duration      time.Duration
	TokenUsage    llm.Usage
	Error         string
}

// snapshotToolCalls deep-copies the per-step tool call records so the
// recorded Step stays immutable after the state is reused.
func snapshotToolCalls(calls []ToolCall) []ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]ToolCall, len(calls))
	copy(out, calls)
	for i := range out {
		if len(calls[i].Args) > 0 {
			args := make(map[string]interface{}, len(calls[i].Args))
			for k, v := range calls[i].Args {
				args[k] = v
			}
			out[i].Args = args
		}
	}
	return out
}
