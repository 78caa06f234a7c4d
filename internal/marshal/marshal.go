// Package marshal turns raw inference output into typed Go values. Models
// frequently wrap JSON in markdown fences despite instructions; the fence is
// stripped before decoding. String return types accept the raw text
// directly, except the literal "null", which always signals failure.
package marshal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Into decodes raw model output into out, which must be a non-nil pointer.
func Into(raw string, out interface{}) error {
	text := Unfence(strings.TrimSpace(raw))

	if s, ok := out.(*string); ok {
		if text == "null" {
			return fmt.Errorf("inference returned null")
		}
		// a JSON string literal decodes cleanly; anything else is taken verbatim
		var decoded string
		if err := json.Unmarshal([]byte(text), &decoded); err == nil {
			*s = decoded
		} else {
			*s = text
		}
		return nil
	}

	if text == "null" {
		return fmt.Errorf("inference returned null")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("inference output was not valid JSON for the declared return type: %w", err)
	}
	return nil
}

// Unfence removes a surrounding markdown code fence, language tag included,
// if one is present.
func Unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		return s
	}
	if j := strings.LastIndex(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}
