package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cognia-ai/agent-engine/internal/config"
	"github.com/cognia-ai/agent-engine/internal/llm"
	"github.com/cognia-ai/agent-engine/internal/metrics"
	"github.com/cognia-ai/agent-engine/internal/orchestrator"
	"github.com/cognia-ai/agent-engine/internal/tools"
	"github.com/cognia-ai/agent-engine/internal/tools/builtin"
)

// Run executes an orchestration plan.
func (c *OrchestrateCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	caller, err := newCaller(c.Script)
	if err != nil {
		return err
	}
	logger := newLogger(g, cfg)

	plan, err := orchestrator.LoadPlan(c.File)
	if err != nil {
		return err
	}
	subAgents, err := plan.SubAgents()
	if err != nil {
		return err
	}
	defaults, err := plan.DefaultConfig()
	if err != nil {
		return err
	}
	applyOrchestrationDefaults(&defaults, cfg.Orchestration)

	catalog := tools.NewRegistry()
	if err := builtin.Register(catalog); err != nil {
		return err
	}

	orch := orchestrator.New(caller)
	orch.Model = cfg.LLM.Model
	orch.Tools = catalog.Map()
	orch.Defaults = defaults
	orch.ParentContext = plan.ParentContext
	orch.Logger = logger.WithComponent("orchestrator")
	orch.Metrics = metrics.NewCollector()

	maxConcurrency := plan.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = cfg.Orchestration.MaxConcurrency
	}

	ctx := context.Background()
	var result *orchestrator.OrchestrationResult
	if plan.Strategy == "sequential" {
		result = orch.ExecuteSequential(ctx, subAgents, plan.StopOnError || cfg.Orchestration.StopOnError)
	} else {
		result = orch.ExecuteParallel(ctx, subAgents, maxConcurrency)
	}

	printOrchestrationSummary(plan.Name, subAgents, result)
	if !result.Success {
		return fmt.Errorf("orchestration finished with failures")
	}
	return nil
}

// applyOrchestrationDefaults fills plan defaults from the config file where
// the plan left them unset. Bad duration strings in the config are ignored
// rather than fatal; the plan file is the authoritative surface.
func applyOrchestrationDefaults(defaults *orchestrator.Config, oc config.OrchestrationConfig) {
	if defaults.Timeout == 0 && oc.Timeout != "" {
		if d, err := time.ParseDuration(oc.Timeout); err == nil {
			defaults.Timeout = d
		}
	}
	if defaults.Retry == (orchestrator.RetryConfig{}) {
		retry := orchestrator.RetryConfig{
			MaxRetries:         oc.MaxRetries,
			ExponentialBackoff: oc.Backoff,
		}
		if d, err := time.ParseDuration(oc.RetryDelay); err == nil {
			retry.RetryDelay = d
		}
		defaults.Retry = retry
	}
	if defaults.MaxResultTokens == 0 {
		defaults.MaxResultTokens = oc.MaxResultTokens
	}
}

func printOrchestrationSummary(name string, subAgents []*orchestrator.SubAgent, result *orchestrator.OrchestrationResult) {
	status := okStyle.Render("ok")
	if !result.Success {
		status = failStyle.Render("failed")
	}
	if name == "" {
		name = "orchestration"
	}
	fmt.Printf("%s %s\n", nameStyle.Render(name), status)
	fmt.Printf("%s %d sub-agents, %d tokens, %s\n",
		labelStyle.Render("stats:"), len(subAgents),
		result.TotalTokenUsage.Total(), result.TotalDuration.Round(timeRound))

	ordered := make([]*orchestrator.SubAgent, len(subAgents))
	copy(ordered, subAgents)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })
	for _, sa := range ordered {
		res := result.Results[sa.ID]
		line := okStyle.Render("✓")
		detail := ""
		switch {
		case res == nil:
			line = labelStyle.Render("-")
			detail = "not run"
		case res.Success:
			detail = fmt.Sprintf("%d steps, %s", res.TotalSteps, res.Duration.Round(timeRound))
		default:
			line = failStyle.Render("✗")
			detail = fmt.Sprintf("%s: %s", sa.Status(), res.Error)
		}
		fmt.Printf("  %s %s %s\n", line, nameStyle.Render(sa.Name), labelStyle.Render(detail))
	}

	if result.AggregatedResponse != "" {
		fmt.Printf("\n%s\n", result.AggregatedResponse)
	}
}

// Run exercises the engine against the scripted provider so a build can be
// sanity-checked without network access.
func (s *SelftestCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	logger := newLogger(g, cfg)

	caller := llm.NewMockCaller("").Script(
		`{"tool": "current_time", "args": {}}`,
		"Done: reported the current time.",
		"Done: summarized findings.",
		"Done: verified results.",
	)

	catalog := tools.NewRegistry()
	if err := builtin.Register(catalog); err != nil {
		return err
	}

	orch := orchestrator.New(caller)
	orch.Tools = catalog.Map()
	orch.Defaults = orchestrator.Config{MaxSteps: 4, Priority: orchestrator.PriorityNormal}
	orch.Logger = logger.WithComponent("selftest")

	agents := []*orchestrator.SubAgent{
		orchestrator.NewSubAgent("clock", "Report the current time."),
		orchestrator.NewSubAgent("summary", "Summarize the findings."),
		orchestrator.NewSubAgent("verify", "Verify the results."),
	}
	for i, sa := range agents {
		sa.Order = i
	}
	agents[1].Config.Priority = orchestrator.PriorityHigh

	start := time.Now()
	result := orch.ExecuteParallel(context.Background(), agents, 2)
	printOrchestrationSummary("selftest", agents, result)
	fmt.Printf("%s %s\n", labelStyle.Render("elapsed:"), time.Since(start).Round(timeRound))
	if !result.Success {
		return fmt.Errorf("selftest failed")
	}
	return nil
}

// Run prints version information.
func (v *VersionCmd) Run(g *Globals) error {
	fmt.Printf("agent-engine version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}
