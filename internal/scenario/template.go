package scenario

import (
	"fmt"
	"strings"
)

// Resolver looks up template values.
type Resolver struct {
	// Session returns a value set earlier in the run.
	Session func(key string) (string, bool)
	// Env reads an environment variable.
	Env func(key string) string
	// Vars are the scenario's own variables.
	Vars map[string]string
}

// ExpandTemplates replaces template placeholders in a string:
//   - {{session.<key>}} from values captured earlier in the run
//   - {{env.VARIABLE}} from environment variables
//   - {{name}} from scenario variables, then the session
//
// Substituted values are copied verbatim and never expanded again, so a
// captured value that looks like a template stays literal text.
func ExpandTemplates(s string, r Resolver) (string, error) {
	var b strings.Builder
	rest := s
	offset := 0
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}}")
		if end == -1 {
			return "", fmt.Errorf("unterminated template expression at position %d", offset+start)
		}
		end += start + 2

		value, err := r.resolve(strings.TrimSpace(rest[start+2 : end-2]))
		if err != nil {
			return "", err
		}
		b.WriteString(rest[:start])
		b.WriteString(value)
		rest = rest[end:]
		offset += end
	}
	b.WriteString(rest)
	return b.String(), nil
}

func (r Resolver) resolve(expr string) (string, error) {
	if key, ok := strings.CutPrefix(expr, "session."); ok {
		if v, ok := r.lookupSession(key); ok {
			return v, nil
		}
		return "", fmt.Errorf("template %q: session has no %s", expr, key)
	}

	if key, ok := strings.CutPrefix(expr, "env."); ok {
		if r.Env == nil {
			return "", nil
		}
		return r.Env(key), nil
	}

	if v, ok := r.Vars[expr]; ok {
		return v, nil
	}
	if v, ok := r.lookupSession(expr); ok {
		return v, nil
	}
	return "", fmt.Errorf("unresolved template expression: %q", expr)
}

func (r Resolver) lookupSession(key string) (string, bool) {
	if r.Session == nil {
		return "", false
	}
	return r.Session(key)
}

// expandValue expands templates in every string inside a decoded body.
func expandValue(v any, r Resolver) (any, error) {
	switch t := v.(type) {
	case string:
		return ExpandTemplates(t, r)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			ev, err := expandValue(val, r)
			if err != nil {
				return nil, err
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			ev, err := expandValue(val, r)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	default:
		return v, nil
	}
}
