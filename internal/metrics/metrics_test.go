package metrics

import (
	"testing"

	"github.com/cognia-ai/agent-engine/internal/llm"
)

func TestCollectorLifecycle(t *testing.T) {
	c := NewCollector()
	c.Start("run-1")
	c.AddStep("run-1")
	c.AddStep("run-1")
	c.AddToolCall("run-1", false)
	c.AddToolCall("run-1", true)
	c.AddRetry("run-1")
	c.AddUsage("run-1", llm.Usage{InputTokens: 10, OutputTokens: 5})
	c.AddUsage("run-1", llm.Usage{InputTokens: 3, OutputTokens: 2})
	c.End("run-1", true)

	e, ok := c.Get("run-1")
	if !ok {
		t.Fatal("Get(run-1) not found")
	}
	if e.Steps != 2 {
		t.Fatalf("Steps = %d, want 2", e.Steps)
	}
	if e.ToolCalls != 2 || e.ToolErrors != 1 {
		t.Fatalf("ToolCalls/ToolErrors = %d/%d, want 2/1", e.ToolCalls, e.ToolErrors)
	}
	if e.Retries != 1 {
		t.Fatalf("Retries = %d, want 1", e.Retries)
	}
	if e.TokenUsage.Total() != 20 {
		t.Fatalf("token total = %d, want 20", e.TokenUsage.Total())
	}
	if !e.Success || !e.Finished {
		t.Fatalf("Success/Finished = %v/%v, want true/true", e.Success, e.Finished)
	}
	if e.Duration() < 0 {
		t.Fatalf("Duration = %v, want non-negative", e.Duration())
	}
}

func TestCollectorUnknownIDIsIgnored(t *testing.T) {
	c := NewCollector()
	c.AddStep("ghost")
	c.AddToolCall("ghost", true)
	c.End("ghost", true)
	if _, ok := c.Get("ghost"); ok {
		t.Fatal("untracked id should not appear")
	}
}

func TestCollectorRestartKeepsCounters(t *testing.T) {
	c := NewCollector()
	c.Start("run-1")
	c.AddStep("run-1")
	c.AddRetry("run-1")
	c.End("run-1", false)
	c.Start("run-1")

	e, _ := c.Get("run-1")
	if e.Steps != 1 {
		t.Fatalf("Steps after restart = %d, want 1", e.Steps)
	}
	if e.Retries != 1 {
		t.Fatalf("Retries after restart = %d, want 1", e.Retries)
	}
	if e.Finished {
		t.Fatal("restarted execution must be in flight again")
	}
}

func TestCollectorAll(t *testing.T) {
	c := NewCollector()
	c.Start("a")
	c.Start("b")
	all := c.All()
	if len(all) != 2 {
		t.Fatalf("All returned %d executions, want 2", len(all))
	}
	seen := map[string]bool{}
	for _, e := range all {
		seen[e.ID] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("All ids = %v, want a and b", seen)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	c := NewCollector()
	c.Start("run-1")
	e, _ := c.Get("run-1")
	e.Steps = 99
	fresh, _ := c.Get("run-1")
	if fresh.Steps != 0 {
		t.Fatal("mutating a snapshot affected the collector")
	}
}
