package ai

import (
	"encoding/json"
	"strings"
)

// Normalize extracts a clean list of subtask strings from raw model output.
// The model is asked for a JSON array but in practice returns it in several
// shapes: a bare array, an array wrapped in a fenced code block, or an object
// holding the array under some key. Extraction strategies are tried in order
// and the first success wins; if none apply the call fails with a
// MalformedResponseError carrying the raw text.
//
// Elements are trimmed and empty entries dropped. Duplicates are kept and no
// count is enforced beyond at least one item: prompt versions differ in how
// many subtasks they request.
func Normalize(raw string) ([]string, error) {
	text := stripCodeFence(strings.TrimSpace(raw))

	for _, strategy := range strategies {
		if items, ok := strategy.extract(text); ok {
			return items, nil
		}
	}

	return nil, &MalformedResponseError{Raw: raw}
}

// extractionStrategy is one typed step of the fallback chain. Each step
// either produces a usable list or defers to the next.
type extractionStrategy struct {
	name    string
	extract func(text string) ([]string, bool)
}

var strategies = []extractionStrategy{
	{name: "json_array", extract: extractJSONArray},
	{name: "keyed_object_array", extract: extractObjectArray},
}

// stripCodeFence removes a leading/trailing fenced code-block marker,
// including an optional language tag on the opening fence. A no-op for
// unfenced content.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	rest := text[len("```"):]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		// Single-line fence: drop a language tag if one leads the content.
		rest = strings.TrimPrefix(rest, "json")
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

// extractJSONArray accepts the text only if it is a JSON array of strings
func extractJSONArray(text string) ([]string, bool) {
	var items []string
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, false
	}
	return cleanList(items)
}

// extractObjectArray accepts a JSON object holding an array of strings.
// Well-known keys are preferred; otherwise the object's keys are scanned in
// document order (a decoder token walk, since map iteration order would make
// the result nondeterministic) and the first array-of-strings value wins.
func extractObjectArray(text string) ([]string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}

	for _, key := range []string{"subtasks", "tasks"} {
		if raw, ok := obj[key]; ok {
			if items, ok := rawStringArray(raw); ok {
				return items, true
			}
		}
	}

	dec := json.NewDecoder(strings.NewReader(text))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, false
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil, false
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		if items, ok := rawStringArray(raw); ok {
			return items, true
		}
	}

	return nil, false
}

func rawStringArray(raw json.RawMessage) ([]string, bool) {
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return cleanList(items)
}

// cleanList trims entries and drops empty ones; at least one entry must survive
func cleanList(items []string) ([]string, bool) {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, false
	}
	return cleaned, true
}
