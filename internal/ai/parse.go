package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedReply is returned when a model reply does not hold the JSON
// value the caller asked for.
var ErrMalformedReply = errors.New("malformed model reply")

// ParseJSON decodes a JSON value from a model reply. Surrounding whitespace
// and markdown code fences are ignored; if the reply still does not decode,
// the outermost bracketed span ([...] or {...}) is tried.
func ParseJSON[T any](reply string) (T, error) {
	var v T
	text := StripCodeFence(reply)
	if text == "" {
		return v, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}

	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		return v, nil
	}
	if span, ok := bracketed(text); ok && span != text {
		var retry T
		if json.Unmarshal([]byte(span), &retry) == nil {
			return retry, nil
		}
	}
	return v, fmt.Errorf("%w: %v", ErrMalformedReply, err)
}

// StripCodeFence removes a leading ``` line (with optional language tag)
// and a trailing ``` line.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func bracketed(s string) (string, bool) {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return "", false
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
