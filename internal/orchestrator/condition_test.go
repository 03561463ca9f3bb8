package orchestrator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cognia-ai/agent-engine/internal/llm"
	"github.com/cognia-ai/agent-engine/internal/logging"
)

func TestEvaluateCondition(t *testing.T) {
	orch := New(llm.NewMockCaller(""))
	siblings := map[string]*Result{
		"done-ok":   {Success: true, FinalResponse: "fine"},
		"done-bad":  {Success: false, Error: "broke"},
		"nil-entry": nil,
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"", true},
		{"  true  ", true},
		{"siblingResults.done-ok.success", true},
		{"siblingResults.done-bad.success", false},
		{"siblingResults.absent.success", false},
		{"siblingResults.done-ok", true},
		{"siblingResults.done-bad", true}, // existence check, not success
		{"siblingResults.absent", false},
		{"siblingResults.nil-entry", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := orch.EvaluateCondition(tt.expr, siblings); got != tt.want {
				t.Errorf("EvaluateCondition(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluateConditionUnrecognizedDefaultsTrue(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(&buf)

	orch := New(llm.NewMockCaller(""))
	orch.Logger = logger

	// Typos and arbitrary expressions pass open, with a warning.
	for _, expr := range []string{
		"siblingResult.typo.success", // missing the s
		"1 == 1",
		"siblingResults.a.success && siblingResults.b.success",
	} {
		if !orch.EvaluateCondition(expr, nil) {
			t.Errorf("unrecognized expression %q must default to true", expr)
		}
	}
	if !strings.Contains(buf.String(), "unrecognized condition") {
		t.Error("expected a logged warning for unrecognized expressions")
	}
}

func TestCancelTokenPermanence(t *testing.T) {
	token := NewCancelToken()
	if token.Cancelled() {
		t.Fatal("new token must be unset")
	}

	select {
	case <-token.Done():
		t.Fatal("done channel closed before cancel")
	default:
	}

	token.Cancel()
	token.Cancel() // idempotent

	if !token.Cancelled() {
		t.Error("token must stay cancelled")
	}
	select {
	case <-token.Done():
	default:
		t.Error("done channel must be closed after cancel")
	}
}
