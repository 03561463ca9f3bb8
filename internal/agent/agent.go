// Package agent implements the single-agent execution loop: build prompt,
// call the model, detect a tool invocation, execute it, fold the result back
// into the conversation, repeat until a stop condition fires.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cognia-ai/agent-engine/internal/llm"
	"github.com/cognia-ai/agent-engine/internal/logging"
	"github.com/cognia-ai/agent-engine/internal/metrics"
	"github.com/cognia-ai/agent-engine/internal/relevance"
	"github.com/cognia-ai/agent-engine/internal/session"
	"github.com/cognia-ai/agent-engine/internal/tools"
)

// Defaults applied when Config leaves the corresponding field zero.
const (
	DefaultTemperature = 0.7
	DefaultMaxSteps    = 10
)

// ErrEmptyTask is returned when Execute is called without a task.
var ErrEmptyTask = errors.New("agent: task is empty")

// ErrNoCaller is returned when Config has no model caller.
var ErrNoCaller = errors.New("agent: no model caller configured")

// Config describes one agent run.
type Config struct {
	// Caller generates model responses. Required.
	Caller llm.Caller
	// Model is passed through to the caller.
	Model string
	// SystemPrompt is prepended with the tool catalog enumeration.
	SystemPrompt string
	// Temperature defaults to DefaultTemperature when zero.
	Temperature float64
	// MaxSteps defaults to DefaultMaxSteps when zero.
	MaxSteps int
	// Tools is the available catalog. May be empty.
	Tools map[string]tools.Tool
	// Selection, when set, restricts the active catalog by relevance
	// against the task before the run starts.
	Selection *relevance.Options
	// StopCondition defaults to StopAtMaxSteps(MaxSteps).
	StopCondition StopCondition
	// RunID identifies the run in logs and metrics. Defaults to a UUID.
	RunID string

	// Lifecycle callbacks. Nil callbacks are skipped. Callback panics are
	// programmer error; the executor does not recover them.
	OnStepStart    func(step int)
	OnStepComplete func(step Step)
	OnToolCall     func(call ToolCall)
	OnToolResult   func(call ToolCall)
	OnError        func(err error)

	// RequireApproval gates tools flagged RequiresApproval. Returning false
	// records a rejection turn and continues the run without executing the
	// tool. Only consulted for flagged tools; a nil gate approves.
	RequireApproval func(ctx context.Context, call ToolCall) (bool, error)

	Logger         *logging.Logger
	Session        *session.Session
	SessionManager session.Manager
	Metrics        *metrics.Collector
}

// run carries the per-invocation wiring so helpers do not re-thread Config.
type run struct {
	cfg     Config
	runID   string
	logger  *logging.Logger
	catalog []tools.Definition
	active  map[string]tools.Tool
}

// Execute runs the step loop for a task. The returned Result is always
// non-nil; err is non-nil only when the run aborted (invalid input, model
// failure, or context cancellation), and in that case Result still carries
// the partial steps.
func Execute(ctx context.Context, task string, cfg Config) (*Result, error) {
	if strings.TrimSpace(task) == "" {
		return &Result{Error: ErrEmptyTask.Error()}, ErrEmptyTask
	}
	if cfg.Caller == nil {
		return &Result{Error: ErrNoCaller.Error()}, ErrNoCaller
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.StopCondition == nil {
		cfg.StopCondition = StopAtMaxSteps(cfg.MaxSteps)
	}

	r := &run{cfg: cfg, runID: cfg.RunID}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = cfg.Logger
	if r.logger == nil {
		r.logger = logging.New().WithComponent("agent")
	}
	r.buildCatalog(task)

	if cfg.Metrics != nil {
		cfg.Metrics.Start(r.runID)
	}
	r.logger.RunStart(r.runID, task)

	ctx, span := startRunSpan(ctx, r.runID, task)

	state := &ExecutionState{
		StartTime: time.Now(),
		Running:   true,
		History:   []llm.Message{{Role: "user", Content: task}},
	}
	r.logEvent(session.Event{Type: session.EventUser, Content: task})

	result, err := r.loop(ctx, state)

	result.Duration = time.Since(state.StartTime)
	result.TotalSteps = state.StepCount
	if cfg.Metrics != nil {
		cfg.Metrics.End(r.runID, result.Success)
	}
	r.logger.RunComplete(r.runID, result.Duration, result.Success)
	endRunSpan(span, result, err)
	return result, err
}

// loop drives the step state machine. The stop condition is checked twice
// per iteration: as the loop guard and again after the step is recorded.
func (r *run) loop(ctx context.Context, state *ExecutionState) (*Result, error) {
	result := &Result{}
	systemPrompt := r.systemPrompt()

	for state.Running && !r.cfg.StopCondition(state) {
		state.StepCount++
		state.LastToolCalls = nil
		stepNum := state.StepCount

		stepCtx, stepSpan := startStepSpan(ctx, r.runID, stepNum)

		if r.cfg.OnStepStart != nil {
			r.cfg.OnStepStart(stepNum)
		}
		r.logger.StepStart(r.runID, stepNum)
		r.logEvent(session.Event{Type: session.EventStepStart, Step: stepNum})
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.AddStep(r.runID)
		}

		resp, err := r.cfg.Caller.Generate(stepCtx, llm.Request{
			Messages:     state.History,
			SystemPrompt: systemPrompt,
			Temperature:  r.cfg.Temperature,
			Model:        r.cfg.Model,
		})
		if err != nil {
			// Model failure aborts the whole run; partial steps survive.
			stepSpan.RecordError(err)
			stepSpan.End()
			state.Running = false
			state.Err = err.Error()
			if r.cfg.OnError != nil {
				r.cfg.OnError(err)
			}
			result.Success = false
			result.Error = err.Error()
			return result, fmt.Errorf("model call failed at step %d: %w", stepNum, err)
		}
		result.TokenUsage = result.TokenUsage.Add(resp.Usage)
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.AddUsage(r.runID, resp.Usage)
		}
		state.LastResponse = resp.Text
		r.logEvent(session.Event{Type: session.EventAssistant, Step: stepNum, Content: resp.Text})

		intent, found := ParseToolIntent(resp.Text)
		if found {
			if _, known := r.active[intent.Name]; !known {
				// An unknown tool name is treated as a plain answer, and no
				// recognized tool call means the agent is done.
				found = false
			}
		}

		if !found {
			state.History = append(state.History, llm.Message{Role: "assistant", Content: resp.Text})
			state.Running = false
		} else {
			call := ToolCall{
				ID:     uuid.NewString(),
				Name:   intent.Name,
				Args:   intent.Args,
				Status: ToolCallPending,
			}
			r.runToolCall(stepCtx, state, &call, resp.Text)
			state.LastToolCalls = append(state.LastToolCalls, call)
		}

		step := Step{
			StepNumber: stepNum,
			Response:   resp.Text,
			ToolCalls:  snapshotToolCalls(state.LastToolCalls),
			Timestamp:  time.Now(),
		}
		result.Steps = append(result.Steps, step)
		if r.cfg.OnStepComplete != nil {
			r.cfg.OnStepComplete(step)
		}
		r.logger.StepComplete(r.runID, stepNum, len(step.ToolCalls))
		r.logEvent(session.Event{Type: session.EventStepEnd, Step: stepNum})
		stepSpan.End()

		// Same-step early exit.
		if r.cfg.StopCondition(state) {
			state.Running = false
		}
	}

	state.Running = false
	result.Success = true
	result.FinalResponse = state.LastResponse
	return result, nil
}

// runToolCall drives one tool call through its lifecycle: approval gate,
// execution, and folding the outcome back into the conversation. Tool
// failures are folded into history as an error turn and never abort the run.
func (r *run) runToolCall(ctx context.Context, state *ExecutionState, call *ToolCall, assistantText string) {
	tool := r.active[call.Name]

	if r.cfg.OnToolCall != nil {
		r.cfg.OnToolCall(*call)
	}
	r.logEvent(session.Event{
		Type: session.EventToolCall, CorrelationID: call.ID,
		Tool: call.Name, Args: call.Args, Step: state.StepCount,
	})

	if tool.RequiresApproval && r.cfg.RequireApproval != nil {
		r.logEvent(session.Event{Type: session.EventApprovalRequest, CorrelationID: call.ID, Tool: call.Name})
		approved, err := r.cfg.RequireApproval(ctx, *call)
		if err != nil {
			approved = false
		}
		decision := "approved"
		if !approved {
			decision = "rejected"
		}
		r.logEvent(session.Event{Type: session.EventApprovalDecision, CorrelationID: call.ID, Tool: call.Name, Content: decision})
		if !approved {
			// Rejection is an intentional alternate path, not an error: the
			// tool never runs and the model sees exactly two new turns.
			state.History = append(state.History,
				llm.Message{Role: "assistant", Content: assistantText},
				llm.Message{Role: "user", Content: fmt.Sprintf("Tool call %q was rejected by the user. Do not retry it; continue without that tool.", call.Name)},
			)
			return
		}
	}

	call.Status = ToolCallRunning
	call.StartedAt = time.Now()
	output, err := executeTool(ctx, tool, call.Args)
	call.CompletedAt = time.Now()

	ev := session.Event{
		Type: session.EventToolResult, CorrelationID: call.ID,
		Tool: call.Name, Step: state.StepCount,
		DurationMs: call.CompletedAt.Sub(call.StartedAt).Milliseconds(),
	}
	if err != nil {
		call.Status = ToolCallError
		call.Error = err.Error()
		ev.Error = err.Error()
		state.History = append(state.History,
			llm.Message{Role: "assistant", Content: assistantText},
			llm.Message{Role: "tool", Content: fmt.Sprintf("Tool %q failed: %v", call.Name, err)},
		)
	} else {
		call.Status = ToolCallCompleted
		call.Result = output
		content := stringifyResult(output)
		ev.Content = content
		state.History = append(state.History,
			llm.Message{Role: "assistant", Content: assistantText},
			llm.Message{Role: "tool", Content: fmt.Sprintf("Tool %q result: %s", call.Name, content)},
		)
	}
	r.logEvent(ev)
	r.logger.ToolResult(call.Name, call.CompletedAt.Sub(call.StartedAt), err)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.AddToolCall(r.runID, err != nil)
	}
	if r.cfg.OnToolResult != nil {
		r.cfg.OnToolResult(*call)
	}
}

// executeTool invokes the tool, converting panics into errors so a
// misbehaving adapter cannot take down the run.
func executeTool(ctx context.Context, tool tools.Tool, args map[string]interface{}) (output interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panic: %v", rec)
		}
	}()
	if tool.Execute == nil {
		return nil, fmt.Errorf("tool has no execute function")
	}
	return tool.Execute(ctx, args)
}

// buildCatalog applies relevance selection (when configured) and freezes the
// active tool set for the run.
func (r *run) buildCatalog(task string) {
	names := make([]string, 0, len(r.cfg.Tools))
	for name := range r.cfg.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]tools.Definition, 0, len(names))
	for _, name := range names {
		t := r.cfg.Tools[name]
		defs = append(defs, tools.Definition{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}

	r.active = make(map[string]tools.Tool, len(defs))
	if r.cfg.Selection != nil && len(defs) > 0 {
		sel := relevance.Select(defs, relevance.Context{Query: task}, *r.cfg.Selection)
		selected := make(map[string]bool, len(sel.Selected))
		for _, name := range sel.Selected {
			selected[name] = true
		}
		kept := defs[:0]
		for _, def := range defs {
			if selected[def.Name] {
				kept = append(kept, def)
				r.active[def.Name] = r.cfg.Tools[def.Name]
			}
		}
		defs = kept
		if sel.WasLimited {
			r.logger.Info("tool catalog limited", map[string]interface{}{
				"run":      r.runID,
				"selected": len(sel.Selected),
				"total":    sel.TotalAvailable,
				"reason":   sel.Reason,
			})
		}
	} else {
		for _, def := range defs {
			r.active[def.Name] = r.cfg.Tools[def.Name]
		}
	}
	r.catalog = defs
}

// systemPrompt appends the textual tool enumeration to the configured system
// prompt. The model signals tool intent by emitting a JSON object anywhere
// in its response.
func (r *run) systemPrompt() string {
	var b strings.Builder
	b.WriteString(r.cfg.SystemPrompt)
	if len(r.catalog) == 0 {
		return b.String()
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("You have access to the following tools:\n")
	for _, def := range r.catalog {
		fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Description)
	}
	b.WriteString("\nTo call a tool, include a JSON object of the form ")
	b.WriteString(`{"tool": "<name>", "args": {...}} in your response. `)
	b.WriteString("Respond with plain text when you are done.")
	return b.String()
}

// logEvent appends to the session stream when one is attached.
func (r *run) logEvent(ev session.Event) {
	if r.cfg.Session == nil {
		return
	}
	r.cfg.Session.Append(ev)
	if r.cfg.SessionManager != nil {
		if err := r.cfg.SessionManager.Update(r.cfg.Session); err != nil {
			r.logger.Warn("session update failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// stringifyResult renders a tool result for the conversation.
func stringifyResult(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
