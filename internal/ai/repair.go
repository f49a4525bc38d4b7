package ai

import (
	"encoding/json"
	"github.com/myrjola/caseledger/internal/errors"
	"strings"
)

var errEmptyResponse = errors.NewSentinel("empty response")

// closerSuffixes are appended in order when a response looks truncated. The
// sequence covers the common ways a model runs out of tokens mid-structure.
var closerSuffixes = []string{`"`, `}`, `]`, `"}`, `"]`, `]}`, `"}}`, `"}]`, `}]`}

// repairParse parses the provider output tolerantly.
//
// It first strips known wrapping artifacts (markdown fences, prose margins),
// then tries a raw parse, then a fixed sequence of truncation repairs:
// appending likely-missing closing delimiters, and trimming to the last
// complete element before re-closing. Returns the first variant that parses.
func repairParse(raw string) (json.RawMessage, error) {
	cleaned := stripArtifacts(raw)
	if cleaned == "" {
		return nil, errEmptyResponse
	}

	var parseErr error
	if parseErr = validate(cleaned); parseErr == nil {
		return json.RawMessage(cleaned), nil
	}

	// Attempt 1: close the structure as-is.
	for _, closer := range closerSuffixes {
		candidate := cleaned + closer
		if validate(candidate) == nil {
			return json.RawMessage(candidate), nil
		}
	}

	// Attempt 2: trim to the last complete element, then close.
	cut := lastElementEnd(cleaned)
	if cut > 0 {
		salvage := strings.TrimSpace(cleaned[:cut+1])
		salvage = strings.TrimSuffix(salvage, ",")
		if validate(salvage) == nil {
			return json.RawMessage(salvage), nil
		}
		for _, closer := range closerSuffixes {
			candidate := salvage + closer
			if validate(candidate) == nil {
				return json.RawMessage(candidate), nil
			}
		}
	}

	return nil, parseErr
}

// stripArtifacts removes markdown fences and surrounding prose so only the
// JSON body remains.
func stripArtifacts(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	// Some providers prefix a sentence before the payload. Cut to the first
	// structural opener.
	objStart := strings.IndexAny(cleaned, "{[")
	if objStart > 0 {
		cleaned = cleaned[objStart:]
	}
	return cleaned
}

// lastElementEnd finds the last position where an element plausibly completed:
// a comma, closing brace or closing bracket.
func lastElementEnd(s string) int {
	lastComma := strings.LastIndex(s, ",")
	lastBrace := strings.LastIndex(s, "}")
	lastBracket := strings.LastIndex(s, "]")
	return max(lastComma, lastBrace, lastBracket)
}

func validate(s string) error {
	var v any
	return json.Unmarshal([]byte(s), &v)
}
