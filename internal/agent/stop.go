package agent

import (
	"strings"
	"time"
)

// StopCondition decides loop termination. It must be a pure predicate over
// the execution state: side-effect-free and cheap, because it is evaluated
// twice per iteration, as the loop guard and again after the step is
// recorded, so a condition can end the run in the same step that satisfied
// it.
type StopCondition func(*ExecutionState) bool

// StopAtMaxSteps stops once the step counter reaches maxSteps. This is the
// default condition.
func StopAtMaxSteps(maxSteps int) StopCondition {
	return func(s *ExecutionState) bool {
		return s.StepCount >= maxSteps
	}
}

// StopAfter stops once the run has consumed the given wall-clock budget.
func StopAfter(budget time.Duration) StopCondition {
	return func(s *ExecutionState) bool {
		return s.Elapsed() >= budget
	}
}

// StopOnResponse stops when the last response contains the marker, for
// semantic "done" detection.
func StopOnResponse(marker string) StopCondition {
	return func(s *ExecutionState) bool {
		return s.LastResponse != "" && strings.Contains(s.LastResponse, marker)
	}
}

// AnyOf stops when any of the given conditions is true.
func AnyOf(conds ...StopCondition) StopCondition {
	return func(s *ExecutionState) bool {
		for _, c := range conds {
			if c(s) {
				return true
			}
		}
		return false
	}
}
