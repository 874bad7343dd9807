package client

import (
	"encoding/json"
	"fmt"
)

// Failure classifies why a call did not produce a clean JSON success.
type Failure int

const (
	FailureNone       Failure = iota
	FailureTimeout            // per-call timeout elapsed
	FailureConnection         // refused, reset, DNS, TLS
	FailureStatus             // status other than 200 or 201
	FailureParse              // 200/201 with a body that is not JSON
	FailureRequest            // request could not be built
	FailureCanceled           // caller's context canceled
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection"
	case FailureStatus:
		return "status"
	case FailureParse:
		return "parse"
	case FailureRequest:
		return "request"
	case FailureCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("failure(%d)", int(f))
	}
}

// StatusError records an unexpected HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Result is the outcome of one call.
type Result struct {
	Method     string
	Path       string
	StatusCode int    // 0 when no response arrived
	Payload    any    // parsed body; see Value
	Raw        string // raw response body
	Failure    Failure
	Err        error
}

func (r *Result) fail(kind Failure, err error) *Result {
	r.Failure = kind
	r.Err = err
	return r
}

// OK reports whether the server answered 200 or 201. A success whose body
// was not JSON still counts; its payload is {"success": true}.
func (r *Result) OK() bool {
	return r.Failure == FailureNone || r.Failure == FailureParse
}

// Degraded reports a success whose body could not be parsed.
func (r *Result) Degraded() bool {
	return r.Failure == FailureParse
}

// Value returns the payload, or nil when the call failed and no error
// wrapper was requested.
func (r *Result) Value() any {
	return r.Payload
}

// Object returns the payload as a JSON object, or nil.
func (r *Result) Object() map[string]any {
	m, _ := r.Payload.(map[string]any)
	return m
}

// Has reports whether the payload object contains key.
func (r *Result) Has(key string) bool {
	_, ok := r.Object()[key]
	return ok
}

// List returns payload[key] when it is a JSON array.
func (r *Result) List(key string) []any {
	l, _ := r.Object()[key].([]any)
	return l
}

// String formats payload[key], or returns "" when absent or null.
func (r *Result) String(key string) string {
	return FormatValue(r.Object()[key])
}

// FormatValue renders a decoded JSON scalar the way it appeared on the wire.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Describe summarizes the result for step detail lines.
func (r *Result) Describe() string {
	switch r.Failure {
	case FailureNone:
		return fmt.Sprintf("%s %s -> %d", r.Method, r.Path, r.StatusCode)
	case FailureParse:
		return fmt.Sprintf("%s %s -> %d (non-JSON body)", r.Method, r.Path, r.StatusCode)
	case FailureStatus:
		return fmt.Sprintf("%s %s -> %d", r.Method, r.Path, r.StatusCode)
	default:
		return fmt.Sprintf("%s %s: %s: %v", r.Method, r.Path, r.Failure, r.Err)
	}
}
