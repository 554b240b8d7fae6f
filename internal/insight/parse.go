package insight

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/devtrack/devtrack-server/internal/model"
)

// Fallback reasons. They are metric label values, so keep the set small.
const (
	ReasonRequestFailed   = "request_failed"
	ReasonNoJSON          = "no_json"
	ReasonInvalidJSON     = "invalid_json"
	ReasonMissingSections = "missing_sections"
)

// requiredSections must be present in a generated result or it is rejected.
var requiredSections = []string{"vitalityScore", "productivityScore", "burnoutLevel"}

var fencedJSON = regexp.MustCompile("(?s)```(?:json|JSON)?[ \t]*\r?\n?(.*?)\r?\n?```")

// parseError carries a fallback reason.
type parseError struct {
	reason string
	err    error
}

func (e *parseError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }

// extractJSON finds the JSON object in a model reply: the body of a
// Markdown code fence if there is one, else the outermost {...} span.
func extractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if body := strings.TrimSpace(m[1]); body != "" {
			return body, true
		}
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// parseInsights decodes a generated reply into an InsightResult.
func parseInsights(text string) (model.InsightResult, error) {
	raw, ok := extractJSON(text)
	if !ok {
		return model.InsightResult{}, &parseError{ReasonNoJSON, errors.New("no JSON object in reply")}
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return model.InsightResult{}, &parseError{ReasonInvalidJSON, err}
	}
	for _, key := range requiredSections {
		if v, ok := sections[key]; !ok || string(v) == "null" {
			return model.InsightResult{}, &parseError{ReasonMissingSections, errors.New("missing " + key)}
		}
	}

	var r model.InsightResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return model.InsightResult{}, &parseError{ReasonInvalidJSON, err}
	}
	return r, nil
}

func reasonOf(err error) string {
	var pe *parseError
	if errors.As(err, &pe) {
		return pe.reason
	}
	return ReasonRequestFailed
}
