package agent

import "testing"

func TestParseToolIntent(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantName string
		wantOK   bool
	}{
		{
			name:     "bare json object",
			text:     `{"tool": "calculator", "args": {"expr": "2+2"}}`,
			wantName: "calculator",
			wantOK:   true,
		},
		{
			name:     "json embedded in prose",
			text:     `I'll compute that now. {"tool": "calculator", "args": {"expr": "2+2"}} Give me a moment.`,
			wantName: "calculator",
			wantOK:   true,
		},
		{
			name:     "markdown fenced json",
			text:     "Here is the call:\n```json\n{\"tool\": \"search\", \"args\": {\"q\": \"weather\"}}\n```",
			wantName: "search",
			wantOK:   true,
		},
		{
			name:     "nested args object",
			text:     `{"tool": "write_file", "args": {"meta": {"mode": "append"}, "path": "/tmp/x"}}`,
			wantName: "write_file",
			wantOK:   true,
		},
		{
			name:     "braces inside string values",
			text:     `{"tool": "echo", "args": {"text": "a { b } c"}}`,
			wantName: "echo",
			wantOK:   true,
		},
		{
			name:   "plain text answer",
			text:   "The answer is 4.",
			wantOK: false,
		},
		{
			name:   "tool key without valid object",
			text:   `the "tool": field must be a string`,
			wantOK: false,
		},
		{
			name:   "empty tool name",
			text:   `{"tool": "", "args": {}}`,
			wantOK: false,
		},
		{
			name:     "first match wins across multiple objects",
			text:     `{"tool": "first", "args": {}} and then {"tool": "second", "args": {}}`,
			wantName: "first",
			wantOK:   true,
		},
		{
			name:     "malformed first candidate falls through to valid one",
			text:     `{"tool": oops} then {"tool": "valid", "args": {}}`,
			wantName: "valid",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent, ok := ParseToolIntent(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if intent.Name != tt.wantName {
				t.Errorf("name = %q, want %q", intent.Name, tt.wantName)
			}
			if intent.Args == nil {
				t.Error("args should never be nil for a recognized call")
			}
		})
	}
}

func TestParseToolIntentArgs(t *testing.T) {
	intent, ok := ParseToolIntent(`{"tool": "calculator", "args": {"expr": "2+2", "precision": 2}}`)
	if !ok {
		t.Fatal("expected a recognized tool call")
	}
	if intent.Args["expr"] != "2+2" {
		t.Errorf("expr = %v", intent.Args["expr"])
	}
	if intent.Args["precision"] != float64(2) {
		t.Errorf("precision = %v", intent.Args["precision"])
	}
}

func TestParseToolIntentMissingArgs(t *testing.T) {
	intent, ok := ParseToolIntent(`{"tool": "current_time"}`)
	if !ok {
		t.Fatal("expected a recognized tool call")
	}
	if intent.Args == nil || len(intent.Args) != 0 {
		t.Errorf("args = %v, want empty map", intent.Args)
	}
}
