// Package metrics provides an injectable per-process execution metrics
// collector. Instances are independent so tests can isolate them; nothing in
// this package is global state.
package metrics

import (
	"sync"
	"time"

	"github.com/cognia-ai/agent-engine/internal/llm"
)

// Execution holds the counters for one execution id.
type Execution struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      int
	ToolCalls  int
	ToolErrors int
	Retries    int
	TokenUsage llm.Usage
	Success    bool
	Finished   bool
}

// Duration returns the execution's wall-clock duration, using the current
// time for executions still in flight.
func (e Execution) Duration() time.Duration {
	if e.Finished {
		return e.FinishedAt.Sub(e.StartedAt)
	}
	return time.Since(e.StartedAt)
}

// Collector accumulates execution metrics keyed by execution id.
type Collector struct {
	mu   sync.Mutex
	runs map[string]*Execution
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{runs: make(map[string]*Execution)}
}

// Start begins tracking an execution id. Starting an already-tracked id
// marks it in flight again but keeps its counters, so retry attempts under
// the same id accumulate instead of wiping earlier attempts.
func (c *Collector) Start(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.runs[id]; ok {
		e.Finished = false
		return
	}
	c.runs[id] = &Execution{ID: id, StartedAt: time.Now()}
}

// End marks an execution finished.
func (c *Collector) End(id string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.runs[id]; ok {
		e.FinishedAt = time.Now()
		e.Success = success
		e.Finished = true
	}
}

// AddStep increments the step counter for an execution.
func (c *Collector) AddStep(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.runs[id]; ok {
		e.Steps++
	}
}

// AddToolCall records a tool call and whether it failed.
func (c *Collector) AddToolCall(id string, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.runs[id]; ok {
		e.ToolCalls++
		if failed {
			e.ToolErrors++
		}
	}
}

// AddRetry records a retry attempt.
func (c *Collector) AddRetry(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.runs[id]; ok {
		e.Retries++
	}
}

// AddUsage accumulates token usage.
func (c *Collector) AddUsage(id string, usage llm.Usage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.runs[id]; ok {
		e.TokenUsage = e.TokenUsage.Add(usage)
	}
}

// Get returns a snapshot of one execution's metrics.
func (c *Collector) Get(id string) (Execution, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.runs[id]
	if !ok {
		return Execution{}, false
	}
	return *e, true
}

// All returns snapshots of every tracked execution.
func (c *Collector) All() []Execution {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Execution, 0, len(c.runs))
	for _, e := range c.runs {
		out = append(out, *e)
	}
	return out
}
