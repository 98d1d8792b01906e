// Package parser turns free-form model output into a normalized search
// result. Models wrap their JSON in markdown fences and prose more often
// than not, so extraction tolerates both.
package parser

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/aluiziolira/go-price-analyzer/models"
)

// fenceRe matches markdown code-fence delimiters with an optional
// language tag. Fences are formatting noise wherever they occur.
var fenceRe = regexp.MustCompile("```[a-zA-Z0-9]*")

// StripFences removes code-fence delimiters and surrounding whitespace.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// ExtractObject returns the first balanced JSON object in s. Brace depth
// is counted explicitly (string- and escape-aware) instead of a greedy
// regex so nested objects inside the answer do not break extraction.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// Parse classifies raw model output into a SearchResult. It never fails
// hard: any undecodable input becomes a parse-failure result carrying the
// original text for diagnostics.
func Parse(rawText string) models.SearchResult {
	cleaned := StripFences(rawText)

	obj, ok := ExtractObject(cleaned)
	if !ok {
		return models.NewParseFailure(rawText, "no JSON object found")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return models.NewParseFailure(rawText, err.Error())
	}

	if success, _ := payload["success"].(bool); !success {
		reason := "not found"
		if msg, ok := payload["message"].(string); ok && msg != "" {
			reason = msg
		}
		return models.NewNotFound(reason)
	}

	minPrice, ok := payload["minPrice"].(float64)
	if !ok || math.IsNaN(minPrice) || math.IsInf(minPrice, 0) || minPrice < 0 {
		return models.NewParseFailure(rawText, "missing or invalid minPrice")
	}
	currency, ok := payload["currency"].(string)
	if !ok || currency == "" {
		return models.NewParseFailure(rawText, "missing or invalid currency")
	}

	return models.NewSuccess(minPrice, currency, sourceCount(payload), payload)
}

// sourceCount is a best-effort count of the offers the model claims to
// have inspected.
func sourceCount(payload map[string]any) int {
	for _, key := range []string{"allOffers", "offers", "sources"} {
		if list, ok := payload[key].([]any); ok {
			return len(list)
		}
	}
	return 0
}
