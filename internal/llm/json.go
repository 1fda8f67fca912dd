package llm

import (
	"errors"
	"strings"
)

// ErrNoJSON is returned when a reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSON strips markdown fences and surrounding prose from a model
// reply and returns the outermost JSON object.
func ExtractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return text[start : end+1], nil
}
