// Package runner executes named steps inside a failure boundary and keeps an
// ordered log of their results. Counts are always derived from the log, so
// Total == Passed + Failed holds after every recorded step.
package runner

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Status is the recorded outcome of a step.
type Status int

const (
	StatusFail Status = iota
	StatusPass
	StatusSkip // nothing to verify; counts as passed
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusSkip:
		return "skip"
	default:
		return "fail"
	}
}

// Outcome is what a step function reports.
type Outcome struct {
	Status Status
	Detail string
}

// Pass reports a verified step.
func Pass() Outcome { return Outcome{Status: StatusPass} }

// Passf reports a verified step with a detail line.
func Passf(format string, args ...any) Outcome {
	return Outcome{Status: StatusPass, Detail: fmt.Sprintf(format, args...)}
}

// Fail reports a failed step.
func Fail(format string, args ...any) Outcome {
	return Outcome{Status: StatusFail, Detail: fmt.Sprintf(format, args...)}
}

// Skip reports a step that had nothing to verify, such as a detail lookup
// with no ID discovered earlier in the run.
func Skip(reason string) Outcome {
	return Outcome{Status: StatusSkip, Detail: reason}
}

// Bool adapts a plain predicate result.
func Bool(ok bool) Outcome {
	if ok {
		return Pass()
	}
	return Outcome{Status: StatusFail}
}

// StepFunc performs one step. A returned error or a panic fails the step.
type StepFunc func(ctx context.Context) (Outcome, error)

// StepResult records the outcome of a single step.
type StepResult struct {
	Journey  string
	Name     string
	Status   Status
	Detail   string
	Duration time.Duration
}

// Passed reports whether the step counts toward the passed total.
func (r StepResult) Passed() bool {
	return r.Status == StatusPass || r.Status == StatusSkip
}

// Printer receives step progress for display.
type Printer interface {
	StepStarted(n int, journey, name string)
	StepFinished(n int, r StepResult)
}

type nopPrinter struct{}

func (nopPrinter) StepStarted(int, string, string) {}
func (nopPrinter) StepFinished(int, StepResult) {}

// Runner executes steps sequentially and records their results. It is not
// safe for concurrent use.
type Runner struct {
	printer Printer
	logger  *zap.Logger
	journey string
	results []StepResult
}

// New creates a Runner. A nil printer or logger disables that output.
func New(p Printer, logger *zap.Logger) *Runner {
	if p == nil {
		p = nopPrinter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{printer: p, logger: logger}
}

// Begin labels subsequent steps with a journey name.
func (r *Runner) Begin(journey string) {
	r.journey = journey
}

// Run executes fn and records exactly one result. It reports whether the
// step passed (a skip counts as passed). Errors and panics from fn are
// recorded as failures and never reach the caller.
func (r *Runner) Run(ctx context.Context, name string, fn StepFunc) bool {
	n := len(r.results) + 1
	r.printer.StepStarted(n, r.journey, name)

	start := time.Now()
	var out Outcome
	switch {
	case name == "":
		out = Fail("step name is required")
	case fn == nil:
		out = Fail("step has no function")
	case ctx.Err() != nil:
		out = Fail("not run: %v", ctx.Err())
	default:
		out = r.invoke(ctx, name, fn)
	}

	sr := StepResult{
		Journey:  r.journey,
		Name:     name,
		Status:   out.Status,
		Detail:   out.Detail,
		Duration: time.Since(start),
	}
	r.results = append(r.results, sr)

	r.logger.Debug("step finished",
		zap.Int("step", n),
		zap.String("journey", sr.Journey),
		zap.String("name", sr.Name),
		zap.Stringer("status", sr.Status),
		zap.Duration("duration", sr.Duration),
	)
	r.printer.StepFinished(n, sr)
	return sr.Passed()
}

// invoke calls fn, converting errors and panics into failed outcomes.
func (r *Runner) invoke(ctx context.Context, name string, fn StepFunc) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("step panicked",
				zap.String("name", name),
				zap.Any("panic", p),
				zap.ByteString("stack", debug.Stack()),
			)
			out = Fail("panic: %v", p)
		}
	}()

	o, err := fn(ctx)
	if err != nil {
		return Fail("error: %v", err)
	}
	return o
}

// Results returns a copy of the recorded results in execution order.
func (r *Runner) Results() []StepResult {
	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// Summary folds the recorded results.
func (r *Runner) Summary() Summary {
	return Summarize(r.results)
}

// Summary counts step outcomes. Skipped steps are included in Passed.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Summarize folds a result log into counts.
func Summarize(results []StepResult) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		switch {
		case r.Status == StatusSkip:
			s.Passed++
			s.Skipped++
		case r.Passed():
			s.Passed++
		default:
			s.Failed++
		}
	}
	return s
}

// Add combines two summaries.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Total:   s.Total + o.Total,
		Passed:  s.Passed + o.Passed,
		Failed:  s.Failed + o.Failed,
		Skipped: s.Skipped + o.Skipped,
	}
}

// OK reports whether no step failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}

// PassRate returns the passed percentage, or 0 for an empty run.
func (s Summary) PassRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Total) * 100
}
