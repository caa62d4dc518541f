package assist

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseResult decodes the outermost JSON object of a model answer. Markdown
// code fences and surrounding prose are ignored.
func ParseResult(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	out := map[string]any{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}
	return out, nil
}
