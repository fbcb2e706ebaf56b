// Package aiprovider adapts the teacher's Claude/OpenAI summarizer clients
// to the pipeline's typed capability interfaces (scoring, synthesis,
// component selection, component rendering, search). Each provider keeps
// the teacher's own circuit-breaker-plus-retry call shape; only the prompt
// and the response payload change per capability.
package aiprovider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON strips a markdown code fence around a model response, if
// present, so the remainder can be unmarshaled directly. Models asked for
// JSON-only output still occasionally wrap it in ```json ... ``` fences.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func unmarshalResponse(raw string, out interface{}) error {
	if err := json.Unmarshal([]byte(extractJSON(raw)), out); err != nil {
		return fmt.Errorf("parse model response as json: %w", err)
	}
	return nil
}
