package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolIntent is a tool invocation the model signalled inside free-form text.
type ToolIntent struct {
	Name string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// toolKeyPattern locates candidate positions of a "tool" key. The scan is
// deliberately tolerant: models wrap tool JSON in prose, markdown fences,
// or leading commentary, so full-document JSON parsing would reject most
// real responses.
var toolKeyPattern = regexp.MustCompile(`"tool"\s*:`)

// ParseToolIntent scans text for the first JSON object containing a "tool"
// key and returns it as a tagged result. The first match wins even when the
// model is merely discussing tool-call JSON in prose; that ambiguity is a
// known cost of the free-text protocol. Stricter structured-output modes can
// replace this single function without touching the executor.
func ParseToolIntent(text string) (ToolIntent, bool) {
	for _, loc := range toolKeyPattern.FindAllStringIndex(text, -1) {
		start := openingBrace(text, loc[0])
		if start == -1 {
			continue
		}
		candidate := balancedObject(text[start:])
		if candidate == "" {
			continue
		}
		var intent ToolIntent
		if err := json.Unmarshal([]byte(candidate), &intent); err != nil {
			continue
		}
		if strings.TrimSpace(intent.Name) == "" {
			continue
		}
		if intent.Args == nil {
			intent.Args = map[string]interface{}{}
		}
		return intent, true
	}
	return ToolIntent{}, false
}

// openingBrace walks backwards from pos to the nearest '{' that could open
// the object containing the matched key.
func openingBrace(text string, pos int) int {
	depth := 0
	for i := pos; i >= 0; i-- {
		switch text[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// balancedObject returns the brace-balanced prefix of s starting at '{',
// skipping braces inside JSON strings.
func balancedObject(s string) string {
	if len(s) == 0 || s[0] != '{' {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}
