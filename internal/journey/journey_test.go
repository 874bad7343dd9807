package journey

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hohopark/hoho-journey/internal/client"
	"github.com/hohopark/hoho-journey/internal/config"
	"github.com/hohopark/hoho-journey/internal/runner"
	"github.com/hohopark/hoho-journey/internal/session"
	"github.com/hohopark/hoho-journey/internal/twin"
)

func startTwin(t *testing.T, timeout time.Duration) (*twin.Server, *client.Client) {
	t.Helper()
	tw := twin.New(twin.Options{})
	srv := httptest.NewServer(tw)
	t.Cleanup(srv.Close)
	return tw, client.New(srv.URL, timeout, nil)
}

func builtinDeps(c Caller) Deps {
	cfg := config.Default()
	return Deps{Client: c, User: cfg.User, Admin: cfg.Admin}
}

type recordingPrinter struct {
	journeys []string
	steps    []runner.StepResult
}

func (p *recordingPrinter) JourneyStarted(n int, j *Journey) {
	p.journeys = append(p.journeys, j.Name)
}

func (p *recordingPrinter) StepStarted(int, string, string) {}

func (p *recordingPrinter) StepFinished(n int, r runner.StepResult) {
	p.steps = append(p.steps, r)
}

func resultByName(t *testing.T, results []runner.StepResult, name string) runner.StepResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result for step %q", name)
	return runner.StepResult{}
}

func TestBuiltinJourneysPassAgainstTwin(t *testing.T) {
	_, c := startTwin(t, 2*time.Second)
	p := &recordingPrinter{}
	q := NewSequencer(Builtin(builtinDeps(c)), p, nil)

	sum := q.RunAll(context.Background())

	assert.Equal(t, runner.Summary{Total: 17, Passed: 17, Skipped: 1}, sum)
	assert.Equal(t, []string{
		"New user registration",
		"Browse and collect",
		"Participate in airdrop",
		"Marketplace trading",
		"Profile management",
		"Third-party platform link",
		"Admin management",
	}, p.journeys)
	assert.Len(t, p.steps, 17)

	s := q.Session()
	for _, key := range []string{session.UserToken, session.UserID, session.AssetID, session.ListingID, session.AdminToken} {
		assert.True(t, s.Has(key), "session should hold %s", key)
	}
	assert.Equal(t, "1", s.Value(session.AssetID))

	results := q.Results()
	assert.Equal(t, runner.StatusSkip, resultByName(t, results, "Join airdrop").Status)
	assert.Contains(t, resultByName(t, results, "Receive registration reward").Detail, "100")
	assert.Contains(t, resultByName(t, results, "View asset detail").Detail, "Jade Dragon")
}

func TestFailedRegistrationSkipsDependentSteps(t *testing.T) {
	tw, c := startTwin(t, 2*time.Second)
	tw.Faults().Set("/api/v1/auth/register", twin.Fault{StatusCode: http.StatusInternalServerError})

	q := NewSequencer(Builtin(builtinDeps(c)), nil, nil)
	sum := q.RunAll(context.Background())

	assert.Equal(t, 17, sum.Total, "a failed step never halts the run")
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, sum.Total, sum.Passed+sum.Failed)

	results := q.Results()
	reg := resultByName(t, results, "Register user")
	assert.Equal(t, runner.StatusFail, reg.Status)
	assert.Contains(t, reg.Detail, "500")

	for _, name := range []string{"Receive registration reward", "View airdrop list", "View profile", "View my assets", "View Jingtan assets"} {
		r := resultByName(t, results, name)
		assert.Equal(t, runner.StatusSkip, r.Status, name)
		assert.Equal(t, "skipped: user_token not available", r.Detail, name)
	}
	assert.Equal(t, runner.StatusPass, resultByName(t, results, "Admin login").Status)
}

func TestTimeoutFailsStepAndRunContinues(t *testing.T) {
	tw, c := startTwin(t, 100*time.Millisecond)
	tw.Faults().Set("/api/v1/assets", twin.Fault{Delay: 5 * time.Second})

	q := NewSequencer(Builtin(builtinDeps(c)), nil, nil)
	sum := q.RunAll(context.Background())

	results := q.Results()
	browse := resultByName(t, results, "Browse asset list")
	assert.Equal(t, runner.StatusFail, browse.Status)
	assert.Contains(t, browse.Detail, "timeout")
	assert.Equal(t, runner.StatusSkip, resultByName(t, results, "View asset detail").Status)
	assert.Equal(t, 17, sum.Total)
	assert.Equal(t, 1, sum.Failed)
}

func TestEmptyListLeavesDetailSkipped(t *testing.T) {
	tw := twin.New(twin.Options{NoSeed: true})
	srv := httptest.NewServer(tw)
	defer srv.Close()
	c := client.New(srv.URL, 2*time.Second, nil)

	q := NewSequencer(Builtin(builtinDeps(c)), nil, nil)
	sum := q.RunAll(context.Background())

	assert.True(t, sum.OK())
	results := q.Results()
	assert.Equal(t, "skipped: asset_id not available", resultByName(t, results, "View asset detail").Detail)
	assert.Equal(t, "skipped: listing_id not available", resultByName(t, results, "View listing detail").Detail)
	assert.Equal(t, 3, sum.Skipped)
}

func TestSmokeSuitePassesAgainstTwin(t *testing.T) {
	_, c := startTwin(t, 2*time.Second)
	q := NewSequencer(Smoke(c), nil, nil)

	sum := q.RunAll(context.Background())
	for _, r := range q.Results() {
		assert.Equal(t, runner.StatusPass, r.Status, "%s: %s", r.Name, r.Detail)
	}
	assert.Equal(t, runner.Summary{Total: 7, Passed: 7}, sum)
}

func TestExpectStatusMismatch(t *testing.T) {
	_, c := startTwin(t, 2*time.Second)
	fn := ExpectStatus(c, "GET", "/api/v1/health", nil, http.StatusNotFound)

	out, err := fn(context.Background(), session.New())
	require.NoError(t, err)
	assert.Equal(t, runner.StatusFail, out.Status)
	assert.Equal(t, "status mismatch: want 404, got 200", out.Detail)
}

func TestExpectStatusUnauthorizedLogin(t *testing.T) {
	_, c := startTwin(t, 2*time.Second)
	creds := map[string]string{"phone": "10000000000", "password": "wrong"}

	out, err := ExpectStatus(c, "POST", "/api/v1/users/login", creds, http.StatusUnauthorized)(context.Background(), session.New())
	require.NoError(t, err)
	assert.Equal(t, runner.StatusPass, out.Status, out.Detail)

	out, err = ExpectStatus(c, "POST", "/api/v1/users/login", creds, http.StatusOK)(context.Background(), session.New())
	require.NoError(t, err)
	assert.Equal(t, runner.StatusFail, out.Status)
	assert.Equal(t, "status mismatch: want 200, got 401", out.Detail)
}

func TestExpectStatusConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	fn := ExpectStatus(client.New(url, time.Second, nil), "GET", "/api/v1/health", nil, 200)
	out, err := fn(context.Background(), session.New())
	require.NoError(t, err)
	assert.Equal(t, runner.StatusFail, out.Status)
	assert.Contains(t, out.Detail, "connection")
}

func TestSequencerNeedsAndErrors(t *testing.T) {
	j := Journey{
		Name: "custom",
		Steps: []Step{
			{Name: "needs token", Needs: []string{"token"}, Run: func(context.Context, *session.Session) (runner.Outcome, error) {
				t.Fatal("step with missing needs must not run")
				return runner.Pass(), nil
			}},
			{Name: "sets token", Run: func(_ context.Context, s *session.Session) (runner.Outcome, error) {
				s.Set("token", "abc")
				return runner.Pass(), nil
			}},
			{Name: "uses token", Needs: []string{"token"}, Run: func(_ context.Context, s *session.Session) (runner.Outcome, error) {
				return runner.Bool(s.Value("token") == "abc"), nil
			}},
			{Name: "errors", Run: func(context.Context, *session.Session) (runner.Outcome, error) {
				return runner.Outcome{}, errors.New("boom")
			}},
			{Name: "no func"},
		},
	}

	q := NewSequencer([]Journey{j}, nil, nil)
	sum := q.RunAll(context.Background())

	assert.Equal(t, runner.Summary{Total: 5, Passed: 3, Failed: 2, Skipped: 1}, sum)
	results := q.Results()
	assert.Equal(t, "custom", results[0].Journey)
	assert.Equal(t, "error: boom", results[3].Detail)
	assert.Contains(t, results[4].Detail, "no function")
}

func TestOpenAppPauseHonoursContext(t *testing.T) {
	d := Deps{Pause: time.Hour}
	open := registration(d).Steps[0]

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := open.Run(ctx, session.New())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
