// Package session provides the chronological audit log for agent runs.
//
// Every meaningful transition during a run or an orchestration appends one
// Event; events are never removed. Analysis and replay tooling reads from
// this stream.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session status values.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Event types for the session log.
const (
	EventSystem    = "system"    // System prompt sent to the model
	EventUser      = "user"      // User/task message sent to the model
	EventAssistant = "assistant" // Model response

	EventStepStart = "step_start"
	EventStepEnd   = "step_end"

	EventToolCall         = "tool_call"
	EventToolResult       = "tool_result"
	EventApprovalRequest  = "approval_request"
	EventApprovalDecision = "approval_decision"

	EventSubAgentStart  = "subagent_start"
	EventSubAgentEnd    = "subagent_end"
	EventSubAgentRetry  = "subagent_retry"
	EventSubAgentCancel = "subagent_cancel"

	EventBatchStart = "batch_start"
	EventBatchEnd   = "batch_end"

	EventWarning = "warning"
)

// Session represents one execution's event stream.
type Session struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Events    []Event   `json:"events"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	seq uint64
	mu  sync.Mutex
}

// Event is a single entry in the session log.
type Event struct {
	SeqID     uint64    `json:"seq"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// CorrelationID links related events (tool_call -> tool_result).
	CorrelationID string `json:"corr_id,omitempty"`

	// Agent attribution for sub-agent events.
	Agent string `json:"agent,omitempty"`

	Step    int                    `json:"step,omitempty"`
	Tool    string                 `json:"tool,omitempty"`
	Args    map[string]interface{} `json:"args,omitempty"`
	Content string                 `json:"content,omitempty"`

	Success    *bool  `json:"success,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// New creates a session for the given task.
func New(task string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Task:      task,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds an event to the stream, assigning its sequence number and
// timestamp if unset.
func (s *Session) Append(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ev.SeqID = s.seq
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	s.Events = append(s.Events, ev)
	s.UpdatedAt = time.Now()
}

// CurrentSeqID returns the sequence number of the most recent event.
func (s *Session) CurrentSeqID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// EventsOfType returns a snapshot of all events with the given type.
func (s *Session) EventsOfType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, ev := range s.Events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Snapshot returns a copy of all events appended so far.
func (s *Session) Snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.Events))
	copy(out, s.Events)
	return out
}

// Finish marks the session terminal.
func (s *Session) Finish(status, result, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.Result = result
	s.Error = errMsg
	s.UpdatedAt = time.Now()
}
