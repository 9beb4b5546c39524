package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseSuggestion decodes the model's JSON reply, stripping markdown code
// fences some models wrap around it, and recomputes every item total.
func parseSuggestion(content string) (Suggestion, error) {
	cleaned := stripCodeFences(content)

	var suggestion Suggestion
	if err := json.Unmarshal([]byte(cleaned), &suggestion); err != nil {
		return Suggestion{}, fmt.Errorf("decode suggestion: %w", err)
	}

	for i := range suggestion.Items {
		if suggestion.Items[i].Quantity <= 0 {
			suggestion.Items[i].Quantity = 1
		}
		suggestion.Items[i] = suggestion.Items[i].Normalize()
	}
	return suggestion, nil
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
