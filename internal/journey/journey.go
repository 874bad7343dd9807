// Package journey sequences named user journeys against the mini-program
// API. Journeys run one after another on a single goroutine and share one
// session, so a token obtained in an early journey is visible to later ones.
package journey

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hohopark/hoho-journey/internal/client"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
)

// Caller is the HTTP call wrapper the built-in steps depend on.
type Caller interface {
	Call(ctx context.Context, method, path string, body any, token string, opts ...client.Option) *client.Result
}

// StepFunc performs one step with access to the run's session.
type StepFunc func(ctx context.Context, s *session.Session) (runner.Outcome, error)

// Step is one checkable action within a journey.
type Step struct {
	Name string
	// Needs lists session keys the step requires. When any is missing the
	// step is skipped, which counts as passed.
	Needs []string
	// Provides lists session keys the step may set. Used for graphing only.
	Provides []string
	Run      StepFunc
}

// Journey is an ordered group of steps modeling one user-facing scenario.
type Journey struct {
	Name        string
	Description string
	Steps       []Step
}

// Printer receives journey and step progress.
type Printer interface {
	runner.Printer
	JourneyStarted(n int, j *Journey)
}

// Sequencer runs a fixed list of journeys in order.
type Sequencer struct {
	journeys []Journey
	printer  Printer
	logger   *zap.Logger
	runner   *runner.Runner
	session  *session.Session
}

// NewSequencer creates a Sequencer. A nil printer or logger disables that
// output.
func NewSequencer(journeys []Journey, p Printer, logger *zap.Logger) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	var rp runner.Printer
	if p != nil {
		rp = p
	}
	return &Sequencer{
		journeys: journeys,
		printer:  p,
		logger:   logger,
		runner:   runner.New(rp, logger),
		session:  session.New(),
	}
}

// RunAll executes every journey in order and returns the run summary. A
// failed step never stops later steps or journeys.
func (q *Sequencer) RunAll(ctx context.Context) runner.Summary {
	for i := range q.journeys {
		j := &q.journeys[i]
		if q.printer != nil {
			q.printer.JourneyStarted(i+1, j)
		}
		q.logger.Debug("journey started", zap.String("journey", j.Name), zap.Int("steps", len(j.Steps)))

		q.runner.Begin(j.Name)
		for _, step := range j.Steps {
			q.runner.Run(ctx, step.Name, q.bind(step))
		}
	}
	return q.runner.Summary()
}

// bind adapts a journey step to the runner, applying the Needs check.
func (q *Sequencer) bind(step Step) runner.StepFunc {
	return func(ctx context.Context) (runner.Outcome, error) {
		for _, key := range step.Needs {
			if !q.session.Has(key) {
				return runner.Skip(fmt.Sprintf("skipped: %s not available", key)), nil
			}
		}
		if step.Run == nil {
			return runner.Outcome{}, fmt.Errorf("step %q has no function", step.Name)
		}
		return step.Run(ctx, q.session)
	}
}

// Results returns the step log in execution order.
func (q *Sequencer) Results() []runner.StepResult {
	return q.runner.Results()
}

// Session returns the run's session.
func (q *Sequencer) Session() *session.Session {
	return q.session
}

// Journeys returns the journeys in run order.
func (q *Sequencer) Journeys() []Journey {
	return q.journeys
}
