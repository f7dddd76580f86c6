// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jsonblock locates JSON payloads inside free-form model replies.
//
// All model-backed stages use the same fenced-block pattern: a ```json
// opening fence, any whitespace (including newlines), the payload, any
// whitespace, and the closing ``` fence. The first block wins.
package jsonblock

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// Find returns the content of the first ```json fenced block in text.
func Find(text string) (string, bool) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Decode finds the first fenced block in text and unmarshals it into v.
// It returns a parse error when no block exists or the block is not valid JSON.
func Decode(text string, v any) error {
	block, ok := Find(text)
	if !ok {
		return apperr.Parse("no JSON block found in response", nil)
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return apperr.Parse("malformed JSON", err)
	}
	return nil
}

// Encode renders v as a ```json fenced block, the inverse of Decode.
func Encode(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(data) + "\n```", nil
}

// Normalize repairs JSON text that a model double-encoded or decorated.
// Rules, applied in order:
//
//  1. Surrounding whitespace is trimmed.
//  2. A ```json (or bare ```) fence is unwrapped.
//  3. If the text is a JSON string literal whose value is itself JSON, the
//     literal is decoded once.
//  4. If the text does not parse as JSON, literal escape sequences \n, \r,
//     \t are turned into whitespace and \" into ", then the result is
//     trimmed again.
//
// Text that already parses after step 2 is returned unchanged.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	if block, ok := Find(s); ok {
		s = block
	} else if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```"))
	}

	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			inner = strings.TrimSpace(inner)
			if json.Valid([]byte(inner)) {
				return inner
			}
		}
	}

	if json.Valid([]byte(s)) {
		return s
	}

	r := strings.NewReplacer(`\n`, "\n", `\r`, "\r", `\t`, "\t", `\"`, `"`)
	return strings.TrimSpace(r.Replace(s))
}

// Unmarshal normalizes text and unmarshals it into v.
func Unmarshal(text string, v any) error {
	if err := json.Unmarshal([]byte(Normalize(text)), v); err != nil {
		return apperr.Parse("malformed JSON", err)
	}
	return nil
}
