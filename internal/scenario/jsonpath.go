package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// pathStep is one hop of a parsed path: a map field, an array index, or
// both for a segment like list[0].
type pathStep struct {
	field    string
	index    int
	hasIndex bool
}

// parsePath checks the syntax of a dot-notation JSONPath such as
// $.list[0].id without needing a document.
func parsePath(path string) ([]pathStep, error) {
	rest, ok := strings.CutPrefix(path, "$")
	if !ok {
		return nil, fmt.Errorf("JSONPath must start with $: %q", path)
	}
	rest = strings.TrimPrefix(rest, ".")

	var steps []pathStep
	for _, seg := range splitPathSegments(rest) {
		if seg == "" {
			continue
		}
		field, index, hasIndex := strings.Cut(seg, "[")
		st := pathStep{field: field, hasIndex: hasIndex}
		if hasIndex {
			digits, closed := strings.CutSuffix(index, "]")
			if !closed {
				return nil, fmt.Errorf("unclosed array index in %q", seg)
			}
			i, err := strconv.Atoi(digits)
			if err != nil || i < 0 {
				return nil, fmt.Errorf("invalid array index in %q", seg)
			}
			st.index = i
		}
		steps = append(steps, st)
	}
	return steps, nil
}

// lookup evaluates path against a decoded document. found is false when any
// segment is missing; err is set only for a malformed path.
func lookup(doc any, path string) (value any, found bool, err error) {
	steps, err := parsePath(path)
	if err != nil {
		return nil, false, err
	}

	current := doc
	for _, st := range steps {
		if st.field != "" {
			m, ok := current.(map[string]any)
			if !ok {
				return nil, false, nil
			}
			if current, ok = m[st.field]; !ok {
				return nil, false, nil
			}
		}
		if !st.hasIndex {
			continue
		}
		arr, ok := current.([]any)
		if !ok || st.index >= len(arr) {
			return nil, false, nil
		}
		current = arr[st.index]
	}
	return current, true, nil
}

// splitPathSegments splits "field.nested[0].name" on dots outside brackets.
func splitPathSegments(path string) []string {
	var segments []string
	var current strings.Builder
	depth := 0

	for _, ch := range path {
		switch ch {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				segments = append(segments, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	return segments
}
