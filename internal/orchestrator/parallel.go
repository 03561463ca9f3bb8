package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognia-ai/agent-engine/internal/session"
)

// DefaultMaxConcurrency bounds parallel batch size when unset.
const DefaultMaxConcurrency = 3

// ExecuteParallel runs sub-agents in priority order with bounded
// concurrency. The set is sorted by priority (critical first, ties broken
// by order ascending) and processed in fixed batches of maxConcurrency.
// A batch only sees sibling results from batches that finished before it
// started; same-batch siblings run concurrently and cannot observe each
// other. One sub-agent's panic or failure never aborts its siblings.
func (o *Orchestrator) ExecuteParallel(ctx context.Context, subAgents []*SubAgent, maxConcurrency int) *OrchestrationResult {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	start := time.Now()

	ordered := make([]*SubAgent, len(subAgents))
	copy(ordered, subAgents)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi := ordered[i].Config.merged(o.Defaults).Priority.rank()
		pj := ordered[j].Config.merged(o.Defaults).Priority.rank()
		if pi != pj {
			return pi < pj
		}
		return ordered[i].Order < ordered[j].Order
	})
	for _, sa := range ordered {
		o.track(sa)
	}

	o.logger().Info("parallel orchestration starting", map[string]interface{}{
		"subagents":      len(ordered),
		"maxConcurrency": maxConcurrency,
	})

	accumulated := make(map[string]*Result)
	out := &OrchestrationResult{
		Success: true,
		Results: make(map[string]*Result, len(ordered)),
		Errors:  make(map[string]string),
	}

	batchNum := 0
	for offset := 0; offset < len(ordered); offset += maxConcurrency {
		end := offset + maxConcurrency
		if end > len(ordered) {
			end = len(ordered)
		}
		batch := ordered[offset:end]
		batchNum++

		o.logEvent(session.Event{Type: session.EventBatchStart, Step: batchNum})
		batchCtx, batchSpan := startBatchSpan(ctx, batchNum, len(batch))

		// Each batch gets its own copy of the prior-batch results so the
		// accumulated map is never read and written concurrently.
		visible := copyResults(accumulated)

		var wg sync.WaitGroup
		batchResults := make([]*Result, len(batch))
		for i, sa := range batch {
			wg.Add(1)
			go func(i int, sa *SubAgent) {
				defer wg.Done()
				defer func() {
					if rec := recover(); rec != nil {
						res := &Result{Error: fmt.Sprintf("panic: %v", rec)}
						sa.finish(StatusFailed, res, res.Error)
						batchResults[i] = res
					}
				}()
				batchResults[i] = o.ExecuteSubAgent(batchCtx, sa, visible)
			}(i, sa)
		}
		wg.Wait()
		batchSpan.End()

		for i, sa := range batch {
			res := batchResults[i]
			if res == nil {
				res = &Result{Error: "no result produced"}
			}
			accumulated[sa.ID] = res
			out.Results[sa.ID] = res
			if !res.Success {
				out.Success = false
				if res.Error != "" {
					out.Errors[sa.ID] = res.Error
				}
			}
			out.TotalTokenUsage = out.TotalTokenUsage.Add(res.TokenUsage)
		}

		o.logEvent(session.Event{Type: session.EventBatchEnd, Step: batchNum})
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

	o.logger().Info("parallel orchestration finished", map[string]interface{}{
		"success":  out.Success,
		"duration": out.TotalDuration.String(),
	})
	return out
}

// copyResults clones the sibling-results map so concurrent readers never
// share a mutable map with the accumulator.
func copyResults(in map[string]*Result) map[string]*Result {
	out := make(map[string]*Result, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
