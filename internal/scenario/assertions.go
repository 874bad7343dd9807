package scenario

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hohopark/hoho-journey/internal/client"
)

// checkBody evaluates JSONPath assertions against a decoded body. Paths are
// checked in sorted order so the first reported failure is stable.
func checkBody(doc any, assertions map[string]any) error {
	paths := make([]string, 0, len(assertions))
	for p := range assertions {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := checkOne(doc, path, assertions[path]); err != nil {
			return err
		}
	}
	return nil
}

func checkOne(doc any, path string, expected any) error {
	actual, found, err := lookup(doc, path)
	if err != nil {
		return fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}

	if ops, ok := expected.(map[string]any); ok {
		return checkOperators(path, actual, found, ops)
	}

	if !found {
		return fmt.Errorf("JSONPath %q: no match found", path)
	}
	if !valuesEqual(actual, expected) {
		return fmt.Errorf("JSONPath %q: expected %v, got %v", path, expected, client.FormatValue(actual))
	}
	return nil
}

// checkOperators processes operator-based assertions like {"eq": v} and
// {"gte": n}.
func checkOperators(path string, actual any, found bool, ops map[string]any) error {
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	for _, op := range names {
		expected := ops[op]
		if op == "exists" {
			want, ok := expected.(bool)
			if !ok {
				return fmt.Errorf("JSONPath %q: 'exists' operator requires a boolean value", path)
			}
			if want && !found {
				return fmt.Errorf("JSONPath %q: expected to exist but no match found", path)
			}
			if !want && found {
				return fmt.Errorf("JSONPath %q: expected not to exist but found %v", path, client.FormatValue(actual))
			}
			continue
		}

		if !found {
			return fmt.Errorf("JSONPath %q: no match found for '%s' check", path, op)
		}

		switch op {
		case "eq":
			if !valuesEqual(actual, expected) {
				return fmt.Errorf("JSONPath %q: expected eq %v, got %v", path, expected, client.FormatValue(actual))
			}

		case "gte", "lte":
			a, err := toFloat64(actual)
			if err != nil {
				return fmt.Errorf("JSONPath %q: '%s' requires numeric actual value: %w", path, op, err)
			}
			e, err := toFloat64(expected)
			if err != nil {
				return fmt.Errorf("JSONPath %q: '%s' requires numeric expected value: %w", path, op, err)
			}
			if op == "gte" && a < e {
				return fmt.Errorf("JSONPath %q: expected >= %v, got %v", path, e, a)
			}
			if op == "lte" && a > e {
				return fmt.Errorf("JSONPath %q: expected <= %v, got %v", path, e, a)
			}

		case "contains":
			got := client.FormatValue(actual)
			want := fmt.Sprintf("%v", expected)
			if !strings.Contains(got, want) {
				return fmt.Errorf("JSONPath %q: expected to contain %q, got %q", path, want, got)
			}

		case "regex":
			pattern, ok := expected.(string)
			if !ok {
				return fmt.Errorf("JSONPath %q: 'regex' operator requires a string pattern", path)
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("JSONPath %q: invalid regex pattern %q: %w", path, pattern, err)
			}
			if got := client.FormatValue(actual); !re.MatchString(got) {
				return fmt.Errorf("JSONPath %q: value %q does not match regex %q", path, got, pattern)
			}

		default:
			return fmt.Errorf("JSONPath %q: unknown operator %q", path, op)
		}
	}
	return nil
}

// valuesEqual compares two values, coercing numbers. A number never equals
// a string.
func valuesEqual(actual, expected any) bool {
	a, aErr := toFloat64(actual)
	e, eErr := toFloat64(expected)
	if aErr == nil && eErr == nil {
		return a == e
	}
	if (aErr == nil) != (eErr == nil) {
		return false
	}
	return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
