// Package repair recovers a JSON object from free-text model output.
//
// Strategies run in a fixed order and the first one that yields an object
// wins. Later strategies discard more of the input than earlier ones, so a
// recovered object is untrusted and must be validated field by field.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnparsableOutput is returned when no strategy recovers an object.
var ErrUnparsableOutput = errors.New("unparsable model output")

// Strategy identifies which recovery step produced the object.
type Strategy int

const (
	None Strategy = iota
	Verbatim
	OuterBraces
	BalanceBraces
	LargestObject
)

func (s Strategy) String() string {
	switch s {
	case Verbatim:
		return "verbatim"
	case OuterBraces:
		return "outer_braces"
	case BalanceBraces:
		return "balance_braces"
	case LargestObject:
		return "largest_object"
	default:
		return "none"
	}
}

type step struct {
	strategy  Strategy
	candidate func(string) []string
}

var steps = []step{
	{Verbatim, func(s string) []string { return []string{s} }},
	{OuterBraces, outerBraces},
	{BalanceBraces, balanceBraces},
	{LargestObject, balancedObjects},
}

// Repair parses raw into a JSON object, reporting the strategy that worked.
func Repair(raw string) (map[string]any, Strategy, error) {
	text := strings.TrimSpace(raw)
	for _, st := range steps {
		for _, c := range st.candidate(text) {
			if obj, ok := decodeObject(c); ok {
				return obj, st.strategy, nil
			}
		}
	}
	return nil, None, fmt.Errorf("%w: %q", ErrUnparsableOutput, clip(text, 200))
}

// Into repairs raw and decodes the recovered object into v.
func Into(raw string, v any) (Strategy, error) {
	obj, strategy, err := Repair(raw)
	if err != nil {
		return None, err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return strategy, fmt.Errorf("re-encode repaired object: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return strategy, fmt.Errorf("%w: %v", ErrUnparsableOutput, err)
	}
	return strategy, nil
}

func decodeObject(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func outerBraces(s string) []string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return nil
	}
	return []string{s[start : end+1]}
}

func balanceBraces(s string) []string {
	open := strings.Count(s, "{")
	missing := open - strings.Count(s, "}")
	if missing <= 0 {
		return nil
	}
	start := strings.IndexByte(s, '{')
	body := strings.TrimRight(strings.TrimSpace(s[start:]), ",`")
	return []string{body + strings.Repeat("}", missing)}
}

// balancedObjects returns every top-level brace-balanced substring, largest first.
// Braces inside JSON string literals are ignored.
func balancedObjects(s string) []string {
	var (
		out      []string
		depth    int
		start    = -1
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
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
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				out = append(out, s[start:i+1])
				start = -1
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
