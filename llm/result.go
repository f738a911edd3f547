package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeResult parses a backend's textual payload as a JSON object.
// Markdown code fences are stripped first since smaller models tend to wrap
// JSON in them even when asked not to. Anything that still fails to parse is
// a generation error rather than partial data.
func DecodeResult(payload string) (map[string]any, error) {
	text := strings.TrimSpace(payload)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result map[string]any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	return result, nil
}
