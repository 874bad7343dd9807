// Package report renders run progress and the final summary for a terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/hohopark/hoho-journey/internal/journey"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
)

var (
	colorPass  = lipgloss.Color("#8BC34A")
	colorFail  = lipgloss.Color("#e53935")
	colorSkip  = lipgloss.Color("#FFC107")
	colorInfo  = lipgloss.Color("#2196F3")
	colorMuted = lipgloss.Color("#7a8699")
)

// Styles holds the printer's lipgloss styles.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Muted  lipgloss.Style
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Skip   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorInfo).
			Padding(0, 2),
		Header: r.NewStyle().
			Foreground(colorInfo).
			Bold(true),
		Muted: r.NewStyle().
			Foreground(colorMuted),
		Pass: r.NewStyle().
			Foreground(colorPass).
			Bold(true),
		Fail: r.NewStyle().
			Foreground(colorFail).
			Bold(true),
		Skip: r.NewStyle().
			Foreground(colorSkip).
			Bold(true),
	}
}

// Options configures a Printer.
type Options struct {
	NoColor bool
	// Verbose also prints a line as each step starts.
	Verbose bool
}

// Printer writes progress lines as journeys run. It implements
// journey.Printer.
type Printer struct {
	w      io.Writer
	opts   Options
	styles Styles
}

// New creates a Printer writing to w. Colour is used only when w is a
// terminal that supports it and NoColor is unset.
func New(w io.Writer, opts Options) *Printer {
	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{w: w, opts: opts, styles: newStyles(r)}
}

// Field is one labelled line in the banner.
type Field struct {
	Key   string
	Value string
}

// Banner prints the run header.
func (p *Printer) Banner(title string, fields ...Field) {
	var b strings.Builder
	b.WriteString(title)
	for _, f := range fields {
		fmt.Fprintf(&b, "\n%-9s %s", f.Key+":", f.Value)
	}
	fmt.Fprintln(p.w, p.styles.Title.Render(b.String()))
}

// JourneyStarted prints the journey heading.
func (p *Printer) JourneyStarted(n int, j *journey.Journey) {
	fmt.Fprintf(p.w, "\n%s\n", p.styles.Header.Render(fmt.Sprintf("--- Journey %d: %s ---", n, j.Name)))
	if j.Description != "" {
		fmt.Fprintf(p.w, "    %s\n", p.styles.Muted.Render(j.Description))
	}
	fmt.Fprintln(p.w)
}

// StepStarted prints a start line in verbose mode.
func (p *Printer) StepStarted(n int, _, name string) {
	if p.opts.Verbose {
		fmt.Fprintf(p.w, "  %s  [%d] %s\n", p.styles.Muted.Render("RUN "), n, name)
	}
}

// StepFinished prints the result line and its detail.
func (p *Printer) StepFinished(_ int, r runner.StepResult) {
	fmt.Fprintf(p.w, "  %s  %-50s (%s)\n", p.label(r.Status), r.Name, r.Duration.Round(time.Millisecond))
	if r.Detail != "" {
		style := p.styles.Muted
		if r.Status == runner.StatusFail {
			style = p.styles.Fail.UnsetBold()
		}
		fmt.Fprintf(p.w, "        %s\n", style.Render(r.Detail))
	}
}

func (p *Printer) label(s runner.Status) string {
	switch s {
	case runner.StatusPass:
		return p.styles.Pass.Render("PASS")
	case runner.StatusSkip:
		return p.styles.Skip.Render("SKIP")
	default:
		return p.styles.Fail.Render("FAIL")
	}
}

// Tokens prints the subject and expiry of each token the run obtained.
// Claims are decoded without verification and only shown for diagnosis.
func (p *Printer) Tokens(s *session.Session) {
	for _, key := range []string{session.UserToken, session.AdminToken} {
		if !s.Has(key) {
			continue
		}
		line := key + ": opaque"
		if c, err := s.TokenClaims(key); err == nil {
			line = fmt.Sprintf("%s: subject %s", key, c.Subject)
			if !c.ExpiresAt.IsZero() {
				line += ", expires " + c.ExpiresAt.Format(time.DateTime)
			}
		}
		fmt.Fprintf(p.w, "    %s\n", p.styles.Muted.Render(line))
	}
}

// Summary prints the totals, the pass rate, and a recap of failed steps.
func (p *Printer) Summary(results []runner.StepResult, elapsed time.Duration) {
	sum := runner.Summarize(results)

	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "Results: %d passed, %d failed, %d total", sum.Passed, sum.Failed, sum.Total)
	if sum.Skipped > 0 {
		fmt.Fprintf(p.w, " (%d skipped)", sum.Skipped)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "Pass rate: %.1f%%  Elapsed: %s\n", sum.PassRate(), elapsed.Round(time.Millisecond))

	if sum.OK() {
		fmt.Fprintln(p.w, p.styles.Pass.Render("PASSED"))
		return
	}

	fmt.Fprintln(p.w, p.styles.Fail.Render("FAILED"))
	for _, r := range results {
		if r.Passed() {
			continue
		}
		fmt.Fprintf(p.w, "  - %s / %s", r.Journey, r.Name)
		if r.Detail != "" {
			fmt.Fprintf(p.w, ": %s", r.Detail)
		}
		fmt.Fprintln(p.w)
	}
}
