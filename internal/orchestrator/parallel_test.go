package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cognia-ai/agent-engine/internal/llm"
)

func TestExecuteParallelPriorityOrder(t *testing.T) {
	orch := New(llm.NewMockCaller("done"))

	normal := NewSubAgent("normal-agent", "task a")
	critical := NewSubAgent("critical-agent", "task b")
	low := NewSubAgent("low-agent", "task c")
	normal.Config.Priority = PriorityNormal
	critical.Config.Priority = PriorityCritical
	low.Config.Priority = PriorityLow

	var mu sync.Mutex
	var started []string
	orch.OnStart = func(sa *SubAgent) {
		mu.Lock()
		started = append(started, sa.Name)
		mu.Unlock()
	}

	result := orch.ExecuteParallel(context.Background(), []*SubAgent{normal, critical, low}, 1)

	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}
	want := []string{"critical-agent", "normal-agent", "low-agent"}
	if len(started) != 3 {
		t.Fatalf("started = %v", started)
	}
	for i := range want {
		if started[i] != want[i] {
			t.Errorf("start order[%d] = %q, want %q", i, started[i], want[i])
		}
	}
}

func TestExecuteParallelPriorityTieBreaksByOrder(t *testing.T) {
	orch := New(llm.NewMockCaller("done"))

	second := NewSubAgent("second", "task")
	first := NewSubAgent("first", "task")
	second.Order = 2
	first.Order = 1

	var started []string
	orch.OnStart = func(sa *SubAgent) { started = append(started, sa.Name) }

	orch.ExecuteParallel(context.Background(), []*SubAgent{second, first}, 1)

	if len(started) != 2 || started[0] != "first" {
		t.Errorf("start order = %v, want first before second", started)
	}
}

func TestExecuteParallelAggregation(t *testing.T) {
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		// Answer keyed by task so concurrent agents stay distinguishable.
		task := req.Messages[0].Content
		return llm.Response{Text: "answer to " + task, Usage: llm.Usage{OutputTokens: 3}}, nil
	}
	orch := New(mock)

	a := NewSubAgent("alpha", "task one")
	b := NewSubAgent("beta", "task two")
	a.Order, b.Order = 1, 2

	result := orch.ExecuteParallel(context.Background(), []*SubAgent{a, b}, 2)

	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}
	wantAggregate := "[alpha]: answer to task one\n[beta]: answer to task two"
	if result.AggregatedResponse != wantAggregate {
		t.Errorf("aggregatedResponse = %q, want %q", result.AggregatedResponse, wantAggregate)
	}
	if result.TotalTokenUsage.OutputTokens != 6 {
		t.Errorf("token usage = %d, want 6", result.TotalTokenUsage.OutputTokens)
	}
	if len(result.Results) != 2 {
		t.Errorf("results = %d entries, want 2", len(result.Results))
	}
}

func TestExecuteParallelFailureContainment(t *testing.T) {
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Messages[0].Content, "explode") {
			return llm.Response{}, context.DeadlineExceeded
		}
		return llm.Response{Text: "fine"}, nil
	}
	orch := New(mock)

	good := NewSubAgent("good", "behave")
	bad := NewSubAgent("bad", "explode")

	result := orch.ExecuteParallel(context.Background(), []*SubAgent{good, bad}, 2)

	if result.Success {
		t.Error("overall success must be AND over all sub-agents")
	}
	if res := result.Results[good.ID]; res == nil || !res.Success {
		t.Error("one sub-agent's failure must not abort its siblings")
	}
	if _, ok := result.Errors[bad.ID]; !ok {
		t.Error("expected an error entry for the failed sub-agent")
	}
	// Only successful agents appear in the aggregate.
	if strings.Contains(result.AggregatedResponse, "bad") {
		t.Errorf("failed agent leaked into aggregate: %q", result.AggregatedResponse)
	}
}

func TestExecuteParallelBatchVisibility(t *testing.T) {
	var mu sync.Mutex
	prompts := map[string]string{}
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		mu.Lock()
		prompts[req.Messages[0].Content] = req.SystemPrompt
		mu.Unlock()
		return llm.Response{Text: "ok"}, nil
	}
	orch := New(mock)

	mk := func(id, name, task string, order int) *SubAgent {
		sa := NewSubAgent(name, task)
		sa.ID = id
		sa.Order = order
		sa.Config.ShareResults = true
		return sa
	}
	batch1a := mk("b1a", "one-a", "task b1a", 1)
	batch1b := mk("b1b", "one-b", "task b1b", 2)
	batch2a := mk("b2a", "two-a", "task b2a", 3)

	result := orch.ExecuteParallel(context.Background(), []*SubAgent{batch1a, batch1b, batch2a}, 2)
	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}

	// Batch 1 agents run concurrently and see no sibling results.
	for _, task := range []string{"task b1a", "task b1b"} {
		if strings.Contains(prompts[task], "sibling") {
			t.Errorf("batch 1 agent saw sibling results:\n%s", prompts[task])
		}
	}
	// The batch 2 agent sees both batch 1 results.
	p := prompts["task b2a"]
	if !strings.Contains(p, "b1a") || !strings.Contains(p, "b1b") {
		t.Errorf("batch 2 agent missing prior-batch results:\n%s", p)
	}
}

func TestExecuteParallelPanicContainment(t *testing.T) {
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if strings.Contains(req.Messages[0].Content, "panic") {
			panic("callback exploded")
		}
		return llm.Response{Text: "fine"}, nil
	}
	orch := New(mock)

	good := NewSubAgent("good", "behave")
	bad := NewSubAgent("bad", "panic now")

	result := orch.ExecuteParallel(context.Background(), []*SubAgent{good, bad}, 2)

	if result.Success {
		t.Error("a panicking sub-agent must count as failed")
	}
	if res := result.Results[good.ID]; res == nil || !res.Success {
		t.Error("sibling must settle despite the panic")
	}
	badRes := result.Results[bad.ID]
	if badRes == nil || !strings.Contains(badRes.Error, "panic") {
		t.Errorf("expected a panic-shaped error, got %+v", badRes)
	}
	if bad.Status() != StatusFailed {
		t.Errorf("panicking sub-agent status = %q, want failed", bad.Status())
	}
}

func TestExecuteParallelConcurrentTracking(t *testing.T) {
	orch := New(llm.NewMockCaller("done"))

	// A wide batch writes the tracking map from many goroutines at once;
	// the race detector flags any unguarded access.
	var subAgents []*SubAgent
	for i := 0; i < 16; i++ {
		subAgents = append(subAgents, NewSubAgent("worker", "small task"))
	}

	result := orch.ExecuteParallel(context.Background(), subAgents, 8)

	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}
	if len(result.Results) != 16 {
		t.Fatalf("results = %d, want 16", len(result.Results))
	}
	// Cancellation lookups share the same map and must stay terminal no-ops.
	for _, sa := range subAgents {
		if orch.CancelSubAgent(sa.ID) {
			t.Fatalf("cancel of completed %s must be a no-op", sa.ID)
		}
	}
}
