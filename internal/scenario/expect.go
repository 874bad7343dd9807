package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expectation is a compiled boolean expression over a response.
type Expectation struct {
	source  string
	program *vm.Program
}

// CompileExpect compiles src. An empty src yields nil, which always holds.
func CompileExpect(src string) (*Expectation, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling expect %q: %w", src, err)
	}
	return &Expectation{source: src, program: program}, nil
}

// Eval runs the expression with status, body and session in scope.
func (e *Expectation) Eval(status int, body any, session map[string]string) error {
	if e == nil {
		return nil
	}
	env := map[string]any{
		"status":  status,
		"body":    plain(body),
		"session": session,
	}
	out, err := expr.Run(e.program, env)
	if err != nil {
		return fmt.Errorf("expect %q: %w", e.source, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return fmt.Errorf("expect %q must evaluate to bool (got %T)", e.source, out)
	}
	if !ok {
		return fmt.Errorf("expect %q is false", e.source)
	}
	return nil
}

// plain converts json.Number values to int64 or float64 so expressions can
// compare them with literals.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}
