// Package json recovers JSON objects from LLM text responses.
//
// Providers without native structured output return JSON wrapped in prose
// or markdown fences. Decode locates the object and unmarshals it.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode extracts the JSON object embedded in response and unmarshals it
// into out. It tries, in order: the whole response, the response with
// markdown code fences stripped, and the substring between the first '{'
// and the last '}'.
//
// Only objects are handled, not top-level arrays, and brace matching is
// textual rather than a full parse.
func Decode(response string, out any) error {
	candidate, err := locate(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(candidate), out); err != nil {
		return fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}
	return nil
}

// Parse is the generic form of Decode.
func Parse[T any](response string) (T, error) {
	var out T
	err := Decode(response, &out)
	return out, err
}

func locate(response string) (string, error) {
	stripped := stripFences(response)

	if json.Valid([]byte(stripped)) {
		return stripped, nil
	}

	start := strings.Index(stripped, "{")
	end := strings.LastIndex(stripped, "}")
	if start >= 0 && end > start {
		inner := stripped[start : end+1]
		if json.Valid([]byte(inner)) {
			return inner, nil
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("no valid JSON object in response: %q", preview)
}

// stripFences removes a surrounding ```json ... ``` (or bare ```) block.
func stripFences(response string) string {
	s := strings.TrimSpace(response)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
