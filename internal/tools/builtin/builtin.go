// Package builtin registers a small set of dependency-free tools used by the
// CLI and by examples. Real tool adapters (web search, file I/O, code
// execution) are provided by the host application.
package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cognia-ai/agent-engine/internal/tools"
)

// Register adds all builtin tools to the registry.
func Register(r *tools.Registry) error {
	for _, t := range []tools.Tool{echoTool(), timeTool(), wordCountTool()} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func echoTool() tools.Tool {
	return tools.Tool{
		Name:        "echo",
		Description: "Echo the given text back verbatim",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
			"required": []string{"text"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			text, ok := args["text"].(string)
			if !ok {
				return nil, fmt.Errorf("echo: missing text argument")
			}
			return text, nil
		},
	}
}

func timeTool() tools.Tool {
	return tools.Tool{
		Name:        "current_time",
		Description: "Return the current time in RFC 3339 format",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return time.Now().Format(time.RFC3339), nil
		},
	}
}

func wordCountTool() tools.Tool {
	return tools.Tool{
		Name:        "word_count",
		Description: "Count the words in the given text",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text": map[string]interface{}{"type": "string"},
			},
			"required": []string{"text"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			text, ok := args["text"].(string)
			if !ok {
				return nil, fmt.Errorf("word_count: missing text argument")
			}
			return len(strings.Fields(text)), nil
		},
	}
}
