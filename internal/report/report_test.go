package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hohopark/hoho-journey/internal/journey"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
)

var _ journey.Printer = (*Printer)(nil)

func TestStepLines(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{NoColor: true})

	p.JourneyStarted(2, &journey.Journey{Name: "Browse and collect", Description: "Browse the catalogue."})
	p.StepStarted(1, "Browse and collect", "Browse asset list")
	p.StepFinished(1, runner.StepResult{Name: "Browse asset list", Status: runner.StatusPass, Detail: "found 3 assets", Duration: 12 * time.Millisecond})
	p.StepFinished(2, runner.StepResult{Name: "View asset detail", Status: runner.StatusSkip, Detail: "skipped: asset_id not available"})
	p.StepFinished(3, runner.StepResult{Name: "Browse community events", Status: runner.StatusFail, Detail: "GET /api/v1/events -> 503"})

	out := buf.String()
	assert.Contains(t, out, "--- Journey 2: Browse and collect ---")
	assert.Contains(t, out, "    Browse the catalogue.")
	assert.NotContains(t, out, "RUN", "start lines are verbose only")
	assert.Contains(t, out, "  PASS  Browse asset list")
	assert.Contains(t, out, "(12ms)")
	assert.Contains(t, out, "        found 3 assets")
	assert.Contains(t, out, "  SKIP  View asset detail")
	assert.Contains(t, out, "  FAIL  Browse community events")
	assert.NotContains(t, out, "\x1b[", "no escape codes without colour")
}

func TestVerboseStartLine(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{NoColor: true, Verbose: true})
	p.StepStarted(4, "j", "Admin login")
	assert.Contains(t, buf.String(), "[4] Admin login")
}

func TestBanner(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{NoColor: true})
	p.Banner("HOHO journey run", Field{"Base URL", "https://api.hohopark.com"}, Field{"Run", "abc"})

	out := buf.String()
	assert.Contains(t, out, "HOHO journey run")
	assert.Contains(t, out, "Base URL: https://api.hohopark.com")
	assert.Contains(t, out, "Run:")
}

func TestSummaryAllPassed(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{NoColor: true})
	p.Summary([]runner.StepResult{
		{Name: "a", Status: runner.StatusPass},
		{Name: "b", Status: runner.StatusSkip},
	}, 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "Results: 2 passed, 0 failed, 2 total (1 skipped)")
	assert.Contains(t, out, "Pass rate: 100.0%")
	assert.Contains(t, out, "Elapsed: 1.5s")
	assert.Contains(t, out, "PASSED")
	assert.NotContains(t, out, "FAILED")
}

func TestSummaryListsFailures(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, Options{NoColor: true})
	p.Summary([]runner.StepResult{
		{Journey: "Admin management", Name: "Admin login", Status: runner.StatusFail, Detail: "POST /admin/login -> 401"},
		{Journey: "Admin management", Name: "View user list", Status: runner.StatusSkip},
		{Journey: "Browse and collect", Name: "Browse asset list", Status: runner.StatusPass},
	}, time.Second)

	out := buf.String()
	assert.Contains(t, out, "Results: 2 passed, 1 failed, 3 total")
	assert.Contains(t, out, "Pass rate: 66.7%")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "  - Admin management / Admin login: POST /admin/login -> 401")
	assert.Equal(t, 1, strings.Count(out, "  - "), "only failed steps are recapped")
}

func TestTokens(t *testing.T) {
	exp := time.Date(2026, 10, 18, 9, 30, 0, 0, time.Local)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "10001",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	s := session.New()
	s.Set(session.UserToken, tok)
	s.Set(session.AdminToken, "not-a-jwt")

	var buf bytes.Buffer
	New(&buf, Options{NoColor: true}).Tokens(s)

	out := buf.String()
	assert.Contains(t, out, "user_token: subject 10001, expires 2026-10-18 09:30:00")
	assert.Contains(t, out, "admin_token: opaque")
}
