// Package relevance scores and ranks tool catalogs against a task context so
// that large catalogs fit within a per-step budget.
//
// Scores are derived values recomputed per call and never persisted. The
// per-component breakdown is exposed for debuggability: when a tool is
// unexpectedly excluded, the breakdown answers why.
package relevance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognia-ai/agent-engine/internal/tools"
)

// Strategy selects between automatic scoring and manual passthrough.
type Strategy string

const (
	// StrategyAuto scores, filters, and limits the catalog.
	StrategyAuto Strategy = "auto"
	// StrategyManual returns the full catalog unfiltered regardless of budget.
	StrategyManual Strategy = "manual"
)

// Context describes the task the catalog is ranked against.
type Context struct {
	Query string
}

// Options control selection behaviour.
type Options struct {
	// MaxTools is the active-tool budget. Zero or negative means unbounded.
	MaxTools int
	// MinRelevanceScore drops tools scoring below the threshold. Only
	// applied when EnableScoring is set.
	MinRelevanceScore float64
	// EnableScoring turns on relevance scoring for ranking and filtering.
	EnableScoring bool
	// AlwaysInclude tools are force-kept regardless of score.
	AlwaysInclude []string
	// AlwaysExclude tools are force-dropped regardless of score.
	AlwaysExclude []string
	// Strategy defaults to StrategyAuto.
	Strategy Strategy
	// UsageHistory maps tool name to prior successful-usage count.
	UsageHistory map[string]int
	// PriorityNamespaces boosts tools from the named servers/namespaces.
	PriorityNamespaces []string
}

// Breakdown exposes the independent scoring signals.
type Breakdown struct {
	DescriptionMatch float64 `json:"descriptionMatch"`
	NameMatch        float64 `json:"nameMatch"`
	HistoryBoost     float64 `json:"historyBoost"`
	PriorityBoost    float64 `json:"priorityBoost"`
}

// ScoredTool is one catalog entry with its composite relevance score.
type ScoredTool struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Score       float64   `json:"relevanceScore"`
	Breakdown   Breakdown `json:"scoreBreakdown"`
}

// Result is the outcome of one selection call.
type Result struct {
	Selected       []string
	Excluded       []string
	TotalAvailable int
	Scores         map[string]ScoredTool
	WasLimited     bool
	Reason         string
}

// Component weights. The four signals sum to at most 1.0 before clamping.
const (
	descriptionWeight = 0.4
	nameWeight        = 0.3
	historyStep       = 0.05
	historyCap        = 0.2
	priorityBoost     = 0.1
)

// stopwords are excluded from token overlap so that filler words do not
// inflate every tool's score.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "your": true, "you": true,
	"are": true, "can": true, "use": true, "using": true, "get": true,
	"all": true, "any": true, "has": true, "have": true, "will": true,
}

// ScoreTool computes the composite relevance of one tool against a context.
// Identical inputs always yield identical scores and breakdowns.
func ScoreTool(def tools.Definition, qctx Context, opts Options) ScoredTool {
	queryTokens := tokenize(qctx.Query)

	b := Breakdown{
		DescriptionMatch: descriptionWeight * overlap(queryTokens, tokenize(def.Description)),
		NameMatch:        nameWeight * overlap(queryTokens, nameTokens(def.Name)),
	}

	if count := opts.UsageHistory[def.Name]; count > 0 {
		boost := historyStep * float64(count)
		if boost > historyCap {
			boost = historyCap
		}
		b.HistoryBoost = boost
	}

	ns := namespace(def.Name)
	for _, p := range opts.PriorityNamespaces {
		if p != "" && p == ns {
			b.PriorityBoost = priorityBoost
			break
		}
	}

	score := b.DescriptionMatch + b.NameMatch + b.HistoryBoost + b.PriorityBoost
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	return ScoredTool{
		Name:        def.Name,
		Description: def.Description,
		Score:       score,
		Breakdown:   b,
	}
}

// Select applies the budget and scoring rules to a catalog. The catalog
// slice order is the tie-break order for equal scores.
func Select(catalog []tools.Definition, qctx Context, opts Options) Result {
	res := Result{
		TotalAvailable: len(catalog),
		Scores:         make(map[string]ScoredTool, len(catalog)),
	}

	if opts.Strategy == StrategyManual {
		for _, def := range catalog {
			res.Selected = append(res.Selected, def.Name)
		}
		res.Reason = "manual strategy: catalog returned unfiltered"
		return res
	}

	exclude := toSet(opts.AlwaysExclude)
	include := toSet(opts.AlwaysInclude)

	// Score everything up front; the breakdown is part of the result even
	// for tools that end up excluded.
	if opts.EnableScoring {
		for _, def := range catalog {
			res.Scores[def.Name] = ScoreTool(def, qctx, opts)
		}
	}

	// Partition the catalog preserving order.
	type candidate struct {
		def   tools.Definition
		index int
	}
	var forced []string
	var candidates []candidate
	availableAfterForced := 0
	for i, def := range catalog {
		if exclude[def.Name] {
			continue
		}
		availableAfterForced++
		if include[def.Name] {
			forced = append(forced, def.Name)
			continue
		}
		candidates = append(candidates, candidate{def: def, index: i})
	}

	// Threshold filter applies whenever scoring is on, budget or not.
	if opts.EnableScoring && opts.MinRelevanceScore > 0 {
		kept := candidates[:0]
		for _, c := range candidates {
			if res.Scores[c.def.Name].Score >= opts.MinRelevanceScore {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}

	budget := opts.MaxTools
	overBudget := budget > 0 && len(forced)+len(candidates) > budget
	if overBudget {
		if opts.EnableScoring {
			sort.SliceStable(candidates, func(i, j int) bool {
				si := res.Scores[candidates[i].def.Name].Score
				sj := res.Scores[candidates[j].def.Name].Score
				if si != sj {
					return si > sj
				}
				return candidates[i].index < candidates[j].index
			})
		}
		n := budget - len(forced)
		if n < 0 {
			n = 0
		}
		if n < len(candidates) {
			candidates = candidates[:n]
		}
	}

	selected := make(map[string]bool, len(forced)+len(candidates))
	res.Selected = append(res.Selected, forced...)
	for _, name := range forced {
		selected[name] = true
	}
	for _, c := range candidates {
		res.Selected = append(res.Selected, c.def.Name)
		selected[c.def.Name] = true
	}
	for _, def := range catalog {
		if !selected[def.Name] {
			res.Excluded = append(res.Excluded, def.Name)
		}
	}

	res.WasLimited = len(res.Selected) < availableAfterForced
	switch {
	case res.WasLimited && overBudget:
		res.Reason = fmt.Sprintf("catalog of %d limited to budget of %d", res.TotalAvailable, budget)
	case res.WasLimited:
		res.Reason = fmt.Sprintf("tools below relevance threshold %.2f dropped", opts.MinRelevanceScore)
	default:
		res.Reason = "catalog within budget"
	}
	return res
}

// tokenize lowercases and splits text into meaningful words.
func tokenize(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(w) < 3 || stopwords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// nameTokens splits a machine name on the usual separators.
func nameTokens(name string) map[string]bool {
	return tokenize(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(name))
}

// overlap returns the fraction of query tokens present in the target set.
func overlap(query, target map[string]bool) float64 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}
	matched := 0
	for w := range query {
		if target[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

// namespace derives the originating server/namespace from a tool name.
// MCP-style names use the form mcp_<server>_<tool>.
func namespace(name string) string {
	if rest, ok := strings.CutPrefix(name, "mcp_"); ok {
		if i := strings.Index(rest, "_"); i > 0 {
			return rest[:i]
		}
		return rest
	}
	if i := strings.Index(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
