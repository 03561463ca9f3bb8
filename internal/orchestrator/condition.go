package orchestrator

import (
	"regexp"
	"strings"
)

// Condition expressions are a closed grammar, never evaluated as code:
//
//	true | false                  literal booleans
//	siblingResults.<id>.success   true iff <id> completed successfully
//	siblingResults.<id>           true iff <id> has any result
//
// Anything else passes with a logged warning.
var (
	successPattern = regexp.MustCompile(`^siblingResults\.([A-Za-z0-9_-]+)\.success$`)
	existsPattern  = regexp.MustCompile(`^siblingResults\.([A-Za-z0-9_-]+)$`)
)

// EvaluateCondition resolves a sub-agent gate expression against the
// sibling-results map.
func (o *Orchestrator) EvaluateCondition(expr string, siblings map[string]*Result) bool {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "", "true":
		return true
	case "false":
		return false
	}
	if m := successPattern.FindStringSubmatch(expr); m != nil {
		res, ok := siblings[m[1]]
		return ok && res != nil && res.Success
	}
	if m := existsPattern.FindStringSubmatch(expr); m != nil {
		res, ok := siblings[m[1]]
		return ok && res != nil
	}
	o.logger().Warn("unrecognized condition expression, defaulting to true", map[string]interface{}{
		"condition": expr,
	})
	return true
}
