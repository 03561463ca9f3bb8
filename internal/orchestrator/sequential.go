package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ExecuteSequential runs sub-agents one at a time in ascending order.
// Before each run, declared dependencies must already hold a successful
// result, and a declared condition must evaluate true against the
// accumulated sibling results. An unmet dependency fails the sub-agent;
// a false condition cancels it (not a failure) and never halts the chain.
// When stopOnError is set, a failure stops the remaining sub-agents.
func (o *Orchestrator) ExecuteSequential(ctx context.Context, subAgents []*SubAgent, stopOnError bool) *OrchestrationResult {
	start := time.Now()

	ordered := make([]*SubAgent, len(subAgents))
	copy(ordered, subAgents)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	for _, sa := range ordered {
		o.track(sa)
	}

	o.logger().Info("sequential orchestration starting", map[string]interface{}{
		"subagents":   len(ordered),
		"stopOnError": stopOnError,
	})

	accumulated := make(map[string]*Result)
	out := &OrchestrationResult{
		Success: true,
		Results: make(map[string]*Result, len(ordered)),
		Errors:  make(map[string]string),
	}

	for _, sa := range ordered {
		cfg := sa.Config.merged(o.Defaults)

		if missing := unmetDependencies(cfg.Dependencies, accumulated); len(missing) > 0 {
			res := &Result{Error: fmt.Sprintf("unmet dependencies: %s", strings.Join(missing, ", "))}
			sa.finish(StatusFailed, res, res.Error)
			sa.Log("error", "%s", res.Error)
			accumulated[sa.ID] = res
			out.Results[sa.ID] = res
			out.Errors[sa.ID] = res.Error
			out.Success = false
			if stopOnError {
				break
			}
			continue
		}

		if cfg.Condition != "" && !o.EvaluateCondition(cfg.Condition, accumulated) {
			// A false condition is a deliberate skip, distinct from failure,
			// and never halts the chain.
			res := &Result{Error: fmt.Sprintf("condition %q evaluated to false", cfg.Condition)}
			sa.finish(StatusCancelled, res, res.Error)
			sa.Log("info", "skipped: %s", res.Error)
			accumulated[sa.ID] = res
			out.Results[sa.ID] = res
			out.Errors[sa.ID] = res.Error
			out.Success = false
			continue
		}

		res := o.ExecuteSubAgent(ctx, sa, copyResults(accumulated))
		accumulated[sa.ID] = res
		out.Results[sa.ID] = res
		out.TotalTokenUsage = out.TotalTokenUsage.Add(res.TokenUsage)
		if !res.Success {
			out.Success = false
			if res.Error != "" {
				out.Errors[sa.ID] = res.Error
			}
			if stopOnError {
				break
			}
		}
	}

	var lines []string
	for _, sa := range ordered {
		if res := out.Results[sa.ID]; res != nil && res.Success {
			lines = append(lines, fmt.Sprintf("[%s]: %s", sa.Name, res.FinalResponse))
		}
	}
	out.AggregatedResponse = strings.Join(lines, "\n")
	out.TotalDuration = time.Since(start)
	if len(out.Errors) == 0 {
		out.Errors = nil
	}

	o.logger().Info("sequential orchestration finished", map[string]interface{}{
		"success":  out.Success,
		"duration": out.TotalDuration.String(),
	})
	return out
}

// unmetDependencies returns dependency ids without a successful result.
func unmetDependencies(deps []string, results map[string]*Result) []string {
	var missing []string
	for _, dep := range deps {
		res, ok := results[dep]
		if !ok || res == nil || !res.Success {
			missing = append(missing, dep)
		}
	}
	return missing
}
