package openrouter

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// DecodeJSON extracts a JSON object from model output into v. Models often
// wrap JSON in a markdown fence or surround it with prose, so it tries the
// raw text, then a fenced block, then the outermost braces.
func DecodeJSON(raw string, v any) bool {
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), v); err == nil {
		return true
	}

	if matches := codeBlockRe.FindStringSubmatch(raw); len(matches) > 1 {
		if err := json.Unmarshal([]byte(strings.TrimSpace(matches[1])), v); err == nil {
			return true
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), v); err == nil {
			return true
		}
	}
	return false
}
