package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cognia-ai/agent-engine/internal/agent"
	"github.com/cognia-ai/agent-engine/internal/extagent"
	"github.com/cognia-ai/agent-engine/internal/llm"
	"github.com/cognia-ai/agent-engine/internal/logging"
	"github.com/cognia-ai/agent-engine/internal/metrics"
	"github.com/cognia-ai/agent-engine/internal/session"
	"github.com/cognia-ai/agent-engine/internal/tools"
)

// siblingDigestLimit caps how many characters of each sibling result are
// injected into a sub-agent's prompt.
const siblingDigestLimit = 500

// summaryTemperature is used for the secondary summarization call.
const summaryTemperature = 0.3

// Orchestrator spawns and tracks sub-agents. It owns every SubAgent it
// runs; callers of different sub-agents only ever exchange Result values.
type Orchestrator struct {
	Caller llm.Caller
	Model  string
	// Tools is the shared catalog; per-agent CustomTools override it.
	Tools map[string]tools.Tool
	// Defaults are merged under each sub-agent's own config.
	Defaults Config
	// ParentContext is injected into prompts of sub-agents with
	// InheritParentContext set.
	ParentContext string
	// ExternalAgents serves sub-agents configured with UseExternalAgent.
	ExternalAgents extagent.Delegate

	Logger         *logging.Logger
	Session        *session.Session
	SessionManager session.Manager
	Metrics        *metrics.Collector

	// Lifecycle callbacks. Nil callbacks are skipped.
	OnStart    func(sa *SubAgent)
	OnProgress func(sa *SubAgent, progress int)
	OnStep     func(sa *SubAgent, step agent.Step)
	OnComplete func(sa *SubAgent, result *Result)

	cancel *CancelToken

	// mu guards subAgents; parallel batches track concurrently.
	mu        sync.Mutex
	subAgents map[string]*SubAgent
}

// New creates an orchestrator around a model caller. Remaining fields are
// set directly before use.
func New(caller llm.Caller) *Orchestrator {
	return &Orchestrator{
		Caller:    caller,
		cancel:    NewCancelToken(),
		subAgents: make(map[string]*SubAgent),
	}
}

// Cancel returns the orchestrator's shared cancellation token.
func (o *Orchestrator) Cancel() *CancelToken {
	return o.cancel
}

// CancelSubAgent cancels one tracked sub-agent. A no-op on terminal states;
// a completed result is never overwritten. Returns true when the sub-agent
// transitioned to cancelled.
func (o *Orchestrator) CancelSubAgent(id string) bool {
	o.mu.Lock()
	sa, ok := o.subAgents[id]
	o.mu.Unlock()
	if !ok {
		return false
	}
	if !sa.cancel() {
		return false
	}
	sa.Log("warn", "cancelled by caller")
	o.logEvent(session.Event{Type: session.EventSubAgentCancel, Agent: sa.ID})
	return true
}

// CancelAll signals the shared token and cancels every non-terminal
// tracked sub-agent. In-flight runs observe the token at their next check
// point; already-dispatched tool executions run to completion.
func (o *Orchestrator) CancelAll() {
	o.cancel.Cancel()
	o.mu.Lock()
	ids := make([]string, 0, len(o.subAgents))
	for id := range o.subAgents {
		ids = append(ids, id)
	}
	o.mu.Unlock()
	for _, id := range ids {
		o.CancelSubAgent(id)
	}
}

// track registers a sub-agent so cancellation can find it.
func (o *Orchestrator) track(sa *SubAgent) {
	if sa.ID == "" {
		return
	}
	o.mu.Lock()
	o.subAgents[sa.ID] = sa
	o.mu.Unlock()
}

// ExecuteSubAgent runs one sub-agent to a terminal state, mutating it in
// place (status, progress, logs, result). It always returns a structured
// Result; failure, timeout, and cancellation are states, not errors.
// Failed and timed-out attempts are re-tried per the retry config with an
// explicit loop; cancellation short-circuits the retry path.
func (o *Orchestrator) ExecuteSubAgent(ctx context.Context, sa *SubAgent, siblings map[string]*Result) *Result {
	ctx, span := startSubAgentSpan(ctx, sa)
	res := o.executeSubAgent(ctx, sa, siblings)
	endSubAgentSpan(span, sa, res)
	return res
}

func (o *Orchestrator) executeSubAgent(ctx context.Context, sa *SubAgent, siblings map[string]*Result) *Result {
	o.track(sa)
	cfg := sa.Config.merged(o.Defaults)
	logger := o.logger()
	start := time.Now()

	for {
		if o.cancel.Cancelled() || sa.Status() == StatusCancelled {
			return o.finishCancelled(sa, start)
		}
		if !sa.markRunning() {
			// Terminal before start (external cancellation won the race).
			return o.finishCancelled(sa, start)
		}
		sa.Log("info", "attempt %d starting", sa.RetryCount()+1)
		if sa.RetryCount() == 0 {
			logger.SubAgentStart(sa.ID, sa.Name)
			o.logEvent(session.Event{Type: session.EventSubAgentStart, Agent: sa.ID, Content: sa.Task})
			if o.OnStart != nil {
				o.OnStart(sa)
			}
		}

		res, status := o.runAttempt(ctx, sa, cfg, siblings)

		switch status {
		case StatusCompleted:
			res.Duration = time.Since(start)
			sa.finish(StatusCompleted, res, "")
			sa.Log("info", "completed in %s (%d steps)", res.Duration, res.TotalSteps)
			logger.SubAgentEnd(sa.ID, sa.Name, string(StatusCompleted), res.Duration)
			o.logEvent(session.Event{Type: session.EventSubAgentEnd, Agent: sa.ID, Success: boolPtr(true)})
			if o.OnComplete != nil {
				o.OnComplete(sa, res)
			}
			return res

		case StatusCancelled:
			return o.finishCancelled(sa, start)

		default: // failed or timeout
			retry := cfg.Retry
			if sa.RetryCount() < retry.MaxRetries && !o.cancel.Cancelled() {
				sa.resetForRetry()
				delay := retry.delayFor(sa.RetryCount())
				sa.Log("warn", "attempt failed (%s), retry %d/%d in %s", res.Error, sa.RetryCount(), retry.MaxRetries, delay)
				logger.Retry(sa.ID, sa.RetryCount(), delay)
				o.logEvent(session.Event{Type: session.EventSubAgentRetry, Agent: sa.ID, Error: res.Error})
				if o.Metrics != nil {
					o.Metrics.AddRetry(sa.ID)
				}
				if !o.sleep(delay) {
					return o.finishCancelled(sa, start)
				}
				continue
			}
			res.Duration = time.Since(start)
			sa.finish(status, res, res.Error)
			sa.Log("error", "%s after %d retries: %s", status, sa.RetryCount(), res.Error)
			logger.SubAgentEnd(sa.ID, sa.Name, string(status), res.Duration)
			o.logEvent(session.Event{Type: session.EventSubAgentEnd, Agent: sa.ID, Success: boolPtr(false), Error: res.Error})
			if o.OnComplete != nil {
				o.OnComplete(sa, res)
			}
			return res
		}
	}
}

// runAttempt performs a single attempt and classifies its outcome. The
// timeout timer races the run; whichever side settles first stops the
// other, and the timer is released on both paths.
func (o *Orchestrator) runAttempt(ctx context.Context, sa *SubAgent, cfg Config, siblings map[string]*Result) (*Result, Status) {
	if cfg.UseExternalAgent {
		return o.runExternal(ctx, sa, cfg)
	}

	childCtx, stop := context.WithCancel(ctx)
	defer stop()

	agentCfg := agent.Config{
		Caller:       o.Caller,
		Model:        cfg.Model,
		SystemPrompt: o.buildSystemPrompt(sa, cfg, siblings),
		Temperature:  cfg.Temperature,
		MaxSteps:     cfg.MaxSteps,
		Tools:        o.mergeTools(cfg),
		RunID:        sa.ID,
		Logger:       o.logger().WithComponent("subagent"),
		Metrics:      o.Metrics,
		OnStepStart: func(step int) {
			// Cancellation check at the top of every step.
			if o.cancel.Cancelled() || sa.Status() == StatusCancelled {
				stop()
				return
			}
			if cfg.MaxSteps > 0 {
				p := step * 100 / (cfg.MaxSteps + 1)
				if p > 90 {
					p = 90
				}
				sa.setProgress(p)
				if o.OnProgress != nil {
					o.OnProgress(sa, p)
				}
			}
		},
		OnStepComplete: func(step agent.Step) {
			if o.OnStep != nil {
				o.OnStep(sa, step)
			}
		},
	}

	type outcome struct {
		res *agent.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{nil, fmt.Errorf("panic: %v", rec)}
			}
		}()
		res, err := agent.Execute(childCtx, sa.Task, agentCfg)
		done <- outcome{res, err}
	}()

	var timer *time.Timer
	var timeoutC <-chan time.Time
	if cfg.Timeout > 0 {
		timer = time.NewTimer(cfg.Timeout)
		timeoutC = timer.C
	}

	select {
	case out := <-done:
		if timer != nil {
			timer.Stop()
		}
		if o.cancel.Cancelled() || sa.Status() == StatusCancelled {
			return &Result{Error: "cancelled"}, StatusCancelled
		}
		return o.classifyAttempt(sa, cfg, out.res, out.err)

	case <-timeoutC:
		stop()
		sa.Log("warn", "timed out after %s", cfg.Timeout)
		return &Result{Error: fmt.Sprintf("timed out after %s", cfg.Timeout)}, StatusTimeout

	case <-o.cancel.Done():
		// The race's own cancellation listener.
		if timer != nil {
			timer.Stop()
		}
		stop()
		return &Result{Error: "cancelled"}, StatusCancelled
	}
}

// classifyAttempt maps an agent result onto the sub-agent state machine and
// applies result summarization on success.
func (o *Orchestrator) classifyAttempt(sa *SubAgent, cfg Config, res *agent.Result, err error) (*Result, Status) {
	out := &Result{}
	if res != nil {
		out.FinalResponse = res.FinalResponse
		out.Steps = res.Steps
		out.TotalSteps = res.TotalSteps
		out.TokenUsage = res.TokenUsage
	}
	if err != nil {
		out.Error = err.Error()
		return out, StatusFailed
	}
	if res == nil || !res.Success {
		if res != nil && res.Error != "" {
			out.Error = res.Error
		} else {
			out.Error = "agent run did not succeed"
		}
		return out, StatusFailed
	}
	out.Success = true
	out.FinalResponse = o.summarize(sa, cfg, out.FinalResponse)
	return out, StatusCompleted
}

// runExternal delegates the attempt to an external agent collaborator.
// Successful delegated runs go through the same summarization step as
// local ones.
func (o *Orchestrator) runExternal(ctx context.Context, sa *SubAgent, cfg Config) (*Result, Status) {
	if o.ExternalAgents == nil {
		return &Result{Error: "no external agent delegate configured"}, StatusFailed
	}
	id := cfg.ExternalAgentID
	if id == "" {
		id = sa.ID
	}
	sa.Log("info", "delegating to external agent %s", id)
	if err := o.ExternalAgents.Connect(ctx, id); err != nil {
		return &Result{Error: fmt.Sprintf("external agent connect: %v", err)}, StatusFailed
	}
	ext, err := o.ExternalAgents.Execute(ctx, id, sa.Task, extagent.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxSteps:    cfg.MaxSteps,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return &Result{Error: fmt.Sprintf("external agent execute: %v", err)}, StatusFailed
	}
	out := &Result{
		Success:       ext.Success,
		FinalResponse: ext.FinalResponse,
		TotalSteps:    ext.Steps,
		TokenUsage:    ext.TokenUsage,
		Error:         ext.Error,
	}
	if !out.Success {
		if out.Error == "" {
			out.Error = "external agent run did not succeed"
		}
		return out, StatusFailed
	}
	out.FinalResponse = o.summarize(sa, cfg, out.FinalResponse)
	return out, StatusCompleted
}

// summarize replaces an oversized response with a model-written summary.
// Best effort only: a failed summarization call falls back to truncation
// and never fails the run. Token count is estimated at four characters per
// token.
func (o *Orchestrator) summarize(sa *SubAgent, cfg Config, response string) string {
	if !cfg.SummarizeResults {
		return response
	}
	charBudget := cfg.resultTokenBudget() * 4
	if len(response) <= charBudget {
		return response
	}
	resp, err := o.Caller.Generate(context.Background(), llm.Request{
		Messages: []llm.Message{{
			Role:    "user",
			Content: "Summarize the following agent output. Preserve key facts, outcomes, and any data the next agent would need:\n\n" + response,
		}},
		Temperature: summaryTemperature,
		Model:       cfg.Model,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		sa.Log("warn", "summarization failed, truncating: %v", err)
		return response[:charBudget] + "\n[truncated]"
	}
	sa.Log("debug", "summarized result from %d to %d chars", len(response), len(resp.Text))
	return resp.Text
}

// buildSystemPrompt assembles the child prompt: the sub-agent's own prompt,
// serialized parent context, a digest of completed sibling results, and
// task framing identifying the sub-agent.
func (o *Orchestrator) buildSystemPrompt(sa *SubAgent, cfg Config, siblings map[string]*Result) string {
	var b strings.Builder
	if cfg.SystemPrompt != "" {
		b.WriteString(cfg.SystemPrompt)
		b.WriteString("\n\n")
	}
	if cfg.InheritParentContext && o.ParentContext != "" {
		b.WriteString("Context from the parent agent:\n")
		b.WriteString(o.ParentContext)
		b.WriteString("\n\n")
	}
	if cfg.ShareResults && len(siblings) > 0 {
		b.WriteString("Results from sibling agents:\n")
		for id, res := range siblings {
			if res == nil || !res.Success {
				continue
			}
			digest := res.FinalResponse
			if len(digest) > siblingDigestLimit {
				digest = digest[:siblingDigestLimit] + "..."
			}
			fmt.Fprintf(&b, "- %s: %s\n", id, digest)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "You are the sub-agent %q", sa.Name)
	if sa.Description != "" {
		fmt.Fprintf(&b, " (%s)", sa.Description)
	}
	b.WriteString(". Complete the assigned task and report your result clearly.")
	return b.String()
}

// mergeTools overlays per-agent custom tools on the shared catalog.
func (o *Orchestrator) mergeTools(cfg Config) map[string]tools.Tool {
	if len(cfg.CustomTools) == 0 {
		return o.Tools
	}
	merged := make(map[string]tools.Tool, len(o.Tools)+len(cfg.CustomTools))
	for name, t := range o.Tools {
		merged[name] = t
	}
	for name, t := range cfg.CustomTools {
		merged[name] = t
	}
	return merged
}

// finishCancelled settles a sub-agent on the cancelled path.
func (o *Orchestrator) finishCancelled(sa *SubAgent, start time.Time) *Result {
	res := &Result{Error: "cancelled", Duration: time.Since(start)}
	if sa.cancel() {
		sa.Log("warn", "cancelled")
		o.logEvent(session.Event{Type: session.EventSubAgentCancel, Agent: sa.ID})
	}
	if sa.Result() == nil {
		sa.mu.Lock()
		sa.result = res
		sa.lastError = res.Error
		sa.mu.Unlock()
	}
	if o.OnComplete != nil {
		o.OnComplete(sa, res)
	}
	return res
}

// sleep waits for d or until cancellation, whichever comes first. Returns
// false when interrupted.
func (o *Orchestrator) sleep(d time.Duration) bool {
	if d <= 0 {
		return !o.cancel.Cancelled()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-o.cancel.Done():
		return false
	}
}

func (o *Orchestrator) logger() *logging.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.New().WithComponent("orchestrator")
}

func (o *Orchestrator) logEvent(ev session.Event) {
	if o.Session == nil {
		return
	}
	o.Session.Append(ev)
	if o.SessionManager != nil {
		if err := o.SessionManager.Update(o.Session); err != nil {
			o.logger().Warn("session update failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func boolPtr(b bool) *bool { return &b }
