package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/cognia-ai/agent-engine/internal/llm"
)

func taskCountingCaller(t *testing.T) (*llm.MockCaller, map[string]int) {
	t.Helper()
	counts := map[string]int{}
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		counts[req.Messages[0].Content]++
		return llm.Response{Text: "ok"}, nil
	}
	return mock, counts
}

func TestExecuteSequentialOrder(t *testing.T) {
	mock, _ := taskCountingCaller(t)
	orch := New(mock)

	var started []string
	orch.OnStart = func(sa *SubAgent) { started = append(started, sa.Name) }

	third := NewSubAgent("third", "t3")
	first := NewSubAgent("first", "t1")
	second := NewSubAgent("second", "t2")
	third.Order, first.Order, second.Order = 3, 1, 2

	result := orch.ExecuteSequential(context.Background(), []*SubAgent{third, first, second}, false)

	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if started[i] != want[i] {
			t.Errorf("start order[%d] = %q, want %q", i, started[i], want[i])
		}
	}
}

func TestExecuteSequentialDependencyLaw(t *testing.T) {
	mock, counts := taskCountingCaller(t)
	orch := New(mock)

	producer := NewSubAgent("producer", "produce")
	producer.ID = "producer"
	producer.Order = 1

	// Depends on a sub-agent that never runs.
	blocked := NewSubAgent("blocked", "consume")
	blocked.ID = "blocked"
	blocked.Order = 2
	blocked.Config.Dependencies = []string{"missing"}

	result := orch.ExecuteSequential(context.Background(), []*SubAgent{producer, blocked}, false)

	if result.Success {
		t.Error("unmet dependency must fail the orchestration")
	}
	if counts["consume"] != 0 {
		t.Error("a sub-agent with unmet dependencies must never start")
	}
	if blocked.Status() != StatusFailed {
		t.Errorf("status = %q, want failed", blocked.Status())
	}
	if msg := result.Errors["blocked"]; !strings.Contains(msg, "unmet dependencies") {
		t.Errorf("error = %q, want unmet-dependencies message", msg)
	}
}

func TestExecuteSequentialDependencyOnFailedResult(t *testing.T) {
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if req.Messages[0].Content == "fail" {
			return llm.Response{}, context.DeadlineExceeded
		}
		return llm.Response{Text: "ok"}, nil
	}
	orch := New(mock)

	failing := NewSubAgent("failing", "fail")
	failing.ID = "failing"
	failing.Order = 1

	dependent := NewSubAgent("dependent", "use result")
	dependent.ID = "dependent"
	dependent.Order = 2
	dependent.Config.Dependencies = []string{"failing"}

	result := orch.ExecuteSequential(context.Background(), []*SubAgent{failing, dependent}, false)

	if dependent.Status() != StatusFailed {
		t.Errorf("a dependency with success=false must block: status = %q", dependent.Status())
	}
	if result.Success {
		t.Error("expected overall failure")
	}
}

func TestExecuteSequentialConditionFalseCancels(t *testing.T) {
	mock, counts := taskCountingCaller(t)
	orch := New(mock)

	gated := NewSubAgent("gated", "guarded work")
	gated.Order = 1
	gated.Config.Condition = "false"

	after := NewSubAgent("after", "later work")
	after.Order = 2

	// stopOnError set: a false condition still must not halt the chain.
	result := orch.ExecuteSequential(context.Background(), []*SubAgent{gated, after}, true)

	if gated.Status() != StatusCancelled {
		t.Errorf("false condition must cancel, not fail: %q", gated.Status())
	}
	if counts["guarded work"] != 0 {
		t.Error("gated sub-agent must never start")
	}
	if counts["later work"] != 1 {
		t.Error("chain must continue past a false condition")
	}
	if after.Status() != StatusCompleted {
		t.Errorf("after status = %q, want completed", after.Status())
	}
	_ = result
}

func TestExecuteSequentialConditionOnSibling(t *testing.T) {
	mock, counts := taskCountingCaller(t)
	orch := New(mock)

	producer := NewSubAgent("producer", "produce")
	producer.ID = "step1"
	producer.Order = 1

	consumer := NewSubAgent("consumer", "consume")
	consumer.Order = 2
	consumer.Config.Condition = "siblingResults.step1.success"

	result := orch.ExecuteSequential(context.Background(), []*SubAgent{producer, consumer}, false)

	if !result.Success {
		t.Fatalf("unexpected failure: %v", result.Errors)
	}
	if counts["consume"] != 1 {
		t.Error("condition on a successful sibling must pass")
	}
}

func TestExecuteSequentialStopOnError(t *testing.T) {
	mock := llm.NewMockCaller("")
	calls := map[string]int{}
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		task := req.Messages[0].Content
		calls[task]++
		if task == "fail" {
			return llm.Response{}, context.DeadlineExceeded
		}
		return llm.Response{Text: "ok"}, nil
	}
	orch := New(mock)

	failing := NewSubAgent("failing", "fail")
	failing.Order = 1
	skipped := NewSubAgent("skipped", "never")
	skipped.Order = 2

	result := orch.ExecuteSequential(context.Background(), []*SubAgent{failing, skipped}, true)

	if result.Success {
		t.Error("expected failure")
	}
	if calls["never"] != 0 {
		t.Error("stopOnError must halt the remaining sub-agents")
	}
	if _, ran := result.Results[skipped.ID]; ran {
		t.Error("halted sub-agent must not appear in results")
	}
}

func TestExecuteSequentialContinuesWithoutStopOnError(t *testing.T) {
	mock := llm.NewMockCaller("")
	mock.GenerateFunc = func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if req.Messages[0].Content == "fail" {
			return llm.Response{}, context.DeadlineExceeded
		}
		return llm.Response{Text: "ok"}, nil
	}
	orch := New(mock)

	failing := NewSubAgent("failing", "fail")
	failing.Order = 1
	survivor := NewSubAgent("survivor", "carry on")
	survivor.Order = 2

	result := orch.ExecuteSequential(context.Background(), []*SubAgent{failing, survivor}, false)

	if result.Success {
		t.Error("expected overall failure")
	}
	if res := result.Results[survivor.ID]; res == nil || !res.Success {
		t.Error("without stopOnError the chain must continue")
	}
}
