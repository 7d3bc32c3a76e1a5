package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoArray means the provider's text contained no well-formed JSON array.
// Recoverable: callers take their deterministic fallback.
var ErrNoArray = errors.New("no JSON array found in provider response")

// ExtractJSONArray returns the first well-formed JSON array substring of
// text. Providers routinely wrap the requested array in explanatory prose or
// markdown fences; everything around the array is ignored.
func ExtractJSONArray(text string) (json.RawMessage, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		return raw, nil
	}
	return nil, ErrNoArray
}
