package analyzer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// CleanModelJSON normalizes raw model text into the substring most likely to be
// the JSON object: fence markers are stripped, then the text is narrowed to the
// span between the first '{' and the last '}'. When no such span exists the
// fence-stripped text is returned unchanged.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Leading ```json or ``` marker.
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}

	// Trailing ``` marker.
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// ParseModelOutput repairs and decodes the model's text into a generic JSON object.
// Numbers are kept as json.Number so amounts survive without float rounding.
func ParseModelOutput(raw string) (map[string]interface{}, error) {
	clean := CleanModelJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("ParseModelOutput: empty model output")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()

	var parsed map[string]interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ParseModelOutput: unmarshal JSON: %w", err)
	}
	if parsed == nil {
		return nil, fmt.Errorf("ParseModelOutput: model output is null")
	}
	return parsed, nil
}
