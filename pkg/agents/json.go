package agents

import (
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// extractJSON pulls the first JSON object out of a model response and
// repairs common LLM damage (code fences, trailing commentary, single
// quotes, missing quotes).
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in model response")
	}
	candidate := raw[start : end+1]

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", fmt.Errorf("repairing model JSON: %w", err)
	}
	return repaired, nil
}

// extractCode strips markdown code fences from a model response, returning
// the bare program body.
func extractCode(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag on the opening fence.
	if i := strings.Index(s, "\n"); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "python" || first == "py" || first == "" {
			s = s[i+1:]
		}
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
