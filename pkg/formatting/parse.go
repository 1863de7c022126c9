package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrParseFailed is returned when no JSON value in content decodes into T.
var ErrParseFailed = errors.New("failed to parse response")

const fence = "```"

// Parse decodes model output into T. Models often wrap JSON in a markdown
// fence or surround it with prose, so Parse tries, in order: the whole
// content, the body of the first fence, and the first balanced object or
// array found in the text.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		if !gjson.Valid(candidate) {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		}
	}
	return result, fmt.Errorf("%w: %s", ErrParseFailed, content)
}

func candidates(content string) []string {
	out := []string{content}
	if body, ok := fenced(content); ok {
		out = append(out, body)
	}
	if obj, ok := embedded(content); ok {
		out = append(out, obj)
	}
	return out
}

// fenced returns the body of the first ``` block, minus an optional
// language tag on the opening line.
func fenced(s string) (string, bool) {
	_, rest, ok := strings.Cut(s, fence)
	if !ok {
		return "", false
	}
	body, _, ok := strings.Cut(rest, fence)
	if !ok {
		return "", false
	}
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "{[") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body), true
}

// embedded scans for the first { or [ and returns the text up to its
// matching close, skipping brackets inside strings.
func embedded(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
