package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MalformedOutputError is returned when model text does not parse into the
// expected shape. Raw keeps the reply for diagnostics.
type MalformedOutputError struct {
	Kind string
	Raw  string
	Err  error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed %s output: %v", e.Kind, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

var errNotJSONObject = errors.New("reply does not contain a JSON object")

// extractJSON strips Markdown code fences and surrounding prose and returns
// the outermost JSON object in text.
func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", errNotJSONObject
	}
	return s[start : end+1], nil
}

// parseModelJSON decodes a model reply into v.
func parseModelJSON(kind, raw string, v any) error {
	body, err := extractJSON(raw)
	if err != nil {
		return &MalformedOutputError{Kind: kind, Raw: raw, Err: err}
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &MalformedOutputError{Kind: kind, Raw: raw, Err: err}
	}
	return nil
}
