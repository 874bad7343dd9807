package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/hohopark/hoho-journey/internal/client"
	"github.com/hohopark/hoho-journey/internal/journey"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
)

var authKeys = map[string]string{
	"":      "",
	"user":  session.UserToken,
	"admin": session.AdminToken,
}

// Compile turns a scenario into a journey whose steps call c. getenv backs
// {{env.*}} templates. Malformed methods, auth modes, paths, and expect
// expressions are rejected here rather than at run time.
func Compile(s *Scenario, c journey.Caller, getenv func(string) string) (journey.Journey, error) {
	j := journey.Journey{Name: s.Name, Description: s.Description}
	for i := range s.Steps {
		step, err := compileStep(s, &s.Steps[i], c, getenv)
		if err != nil {
			return journey.Journey{}, fmt.Errorf("scenario %q: step %q: %w", s.Name, s.Steps[i].Name, err)
		}
		j.Steps = append(j.Steps, step)
	}
	return j, nil
}

// CompileAll compiles scenarios in order.
func CompileAll(scenarios []*Scenario, c journey.Caller, getenv func(string) string) ([]journey.Journey, error) {
	out := make([]journey.Journey, 0, len(scenarios))
	for _, s := range scenarios {
		j, err := Compile(s, c, getenv)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

func compileStep(s *Scenario, st *Step, c journey.Caller, getenv func(string) string) (journey.Step, error) {
	method := strings.ToUpper(st.Request.Method)
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return journey.Step{}, fmt.Errorf("unsupported method %q", st.Request.Method)
	}

	tokenKey, ok := authKeys[st.Request.Auth]
	if !ok {
		return journey.Step{}, fmt.Errorf("unknown auth %q (expected user or admin)", st.Request.Auth)
	}

	for name, path := range st.Capture {
		if _, err := parsePath(path); err != nil {
			return journey.Step{}, fmt.Errorf("capture %q: %w", name, err)
		}
	}

	a := st.Assert
	if a == nil {
		a = &Assert{}
	}
	want := a.Status
	if want == 0 {
		want = http.StatusOK
	}
	for path := range a.Body {
		if _, err := parsePath(path); err != nil {
			return journey.Step{}, fmt.Errorf("body assertion: %w", err)
		}
	}
	expect, err := CompileExpect(a.Expect)
	if err != nil {
		return journey.Step{}, err
	}

	needs := append([]string(nil), st.Needs...)
	if tokenKey != "" && !slices.Contains(needs, tokenKey) {
		needs = append(needs, tokenKey)
	}
	provides := make([]string, 0, len(st.Capture))
	for name := range st.Capture {
		provides = append(provides, name)
	}
	sort.Strings(provides)

	run := func(ctx context.Context, sess *session.Session) (runner.Outcome, error) {
		r := Resolver{Session: sess.Get, Env: getenv, Vars: s.Variables}

		path, err := ExpandTemplates(st.Request.URL, r)
		if err != nil {
			return runner.Fail("url: %v", err), nil
		}
		var body any
		if st.Request.Body != nil {
			if body, err = expandValue(st.Request.Body, r); err != nil {
				return runner.Fail("body: %v", err), nil
			}
		}
		token := ""
		if tokenKey != "" {
			token = sess.Value(tokenKey)
		}

		var opts []client.Option
		if want < 200 || want > 299 {
			opts = append(opts, client.ExpectFailure())
		}
		res := c.Call(ctx, method, path, body, token, opts...)
		if res.StatusCode == 0 {
			return runner.Fail("%s", res.Describe()), nil
		}
		if res.StatusCode != want {
			return runner.Fail("expected status %d, got %d", want, res.StatusCode), nil
		}

		if a.BodyContains != "" {
			needle, err := ExpandTemplates(a.BodyContains, r)
			if err != nil {
				return runner.Fail("body_contains: %v", err), nil
			}
			if !strings.Contains(res.Raw, needle) {
				return runner.Fail("body does not contain %q", needle), nil
			}
		}

		doc := document(res)
		if len(a.Body) > 0 {
			expanded, err := expandValue(a.Body, r)
			if err != nil {
				return runner.Fail("body assertion: %v", err), nil
			}
			if err := checkBody(doc, expanded.(map[string]any)); err != nil {
				return runner.Fail("%v", err), nil
			}
		}
		if err := expect.Eval(res.StatusCode, doc, sess.Snapshot()); err != nil {
			return runner.Fail("%v", err), nil
		}

		var captured []string
		for _, name := range provides {
			v, found, err := lookup(doc, st.Capture[name])
			if err != nil {
				return runner.Fail("capture %s: %v", name, err), nil
			}
			if !found || v == nil {
				continue
			}
			sess.Set(name, client.FormatValue(v))
			captured = append(captured, name)
		}
		if len(captured) > 0 {
			return runner.Passf("%s %s -> %d; captured %s", method, path, res.StatusCode, strings.Join(captured, ", ")), nil
		}
		return runner.Passf("%s %s -> %d", method, path, res.StatusCode), nil
	}

	return journey.Step{Name: st.Name, Needs: needs, Provides: provides, Run: run}, nil
}

// document returns the decoded response body for assertions. Error bodies
// are decoded from the raw text since the call wrapper does not parse them.
func document(res *client.Result) any {
	if res.Failure == client.FailureNone {
		return res.Payload
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(res.Raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}
