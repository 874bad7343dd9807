package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hohopark/hoho-journey/internal/twin"
)

func startTwin(t *testing.T) (*twin.Server, string) {
	t.Helper()
	tw := twin.New(twin.DefaultOptions())
	srv := httptest.NewServer(tw)
	t.Cleanup(srv.Close)
	return tw, srv.URL
}

func execute(t *testing.T, env map[string]string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd(func(k string) string { return env[k] })
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestRootRunsBuiltinJourneys(t *testing.T) {
	_, url := startTwin(t)
	out, _, err := execute(t, nil, "--base-url", url, "--no-color", "--pause", "0")
	require.NoError(t, err, out)

	assert.Contains(t, out, "HOHO mini-program journey test")
	assert.Contains(t, out, "--- Journey 1: New user registration ---")
	assert.Contains(t, out, "--- Journey 7: Admin management ---")
	assert.Contains(t, out, "Results: 17 passed, 0 failed, 17 total (1 skipped)")
	assert.Contains(t, out, "PASSED")
}

func TestRunSubcommandWithSmokeSuite(t *testing.T) {
	_, url := startTwin(t)
	out, _, err := execute(t, nil, "run", "--base-url", url, "--suite", "smoke", "--no-color")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Results: 7 passed, 0 failed, 7 total")
	assert.NotContains(t, out, "New user registration")
}

func TestFailedStepReturnsError(t *testing.T) {
	tw, url := startTwin(t)
	tw.Faults().Set("/api/v1/auth/register", twin.Fault{StatusCode: http.StatusServiceUnavailable})

	out, _, err := execute(t, nil, "--base-url", url, "--no-color", "--pause", "0")
	require.ErrorIs(t, err, errStepsFailed)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "  - New user registration / Register user")
}

func TestConfigFromEnvironment(t *testing.T) {
	_, url := startTwin(t)
	path := filepath.Join(t.TempDir(), "journey.yaml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: http://unused.invalid\nsuite: smoke\n"), 0o644))

	out, _, err := execute(t, map[string]string{
		"JOURNEY_CONFIG":   path,
		"JOURNEY_BASE_URL": url,
	}, "--no-color")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Base URL: "+url)
	assert.Contains(t, out, "7 total")
}

func TestScenariosRunAfterSuite(t *testing.T) {
	_, url := startTwin(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogue.yaml"), []byte(`
name: Catalogue
steps:
  - name: First asset
    request: {url: /api/v1/assets}
    capture: {asset_id: "$.list[0].id"}
  - name: Asset detail
    request: {url: "/api/v1/assets/{{session.asset_id}}"}
    assert:
      body: {"$.name": "Jade Dragon"}
`), 0o644))

	out, _, err := execute(t, nil, "--base-url", url, "--suite", "smoke", "--scenarios", dir, "--no-color")
	require.NoError(t, err, out)
	assert.Contains(t, out, "--- Journey 2: Catalogue ---")
	assert.Contains(t, out, "Results: 9 passed, 0 failed, 9 total")
}

func TestInvalidFlagsAreRejected(t *testing.T) {
	_, _, err := execute(t, nil, "--suite", "nightly")
	assert.ErrorContains(t, err, `unknown suite "nightly"`)

	_, _, err = execute(t, nil, "--base-url", "ftp://example.com")
	assert.ErrorContains(t, err, "scheme must be http or https")

	_, _, err = execute(t, nil, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestGraphCommand(t *testing.T) {
	out, errOut, err := execute(t, nil, "graph", "--suite", "all")
	require.NoError(t, err)
	assert.Contains(t, out, "digraph journeys")
	assert.Contains(t, out, "cluster_8")
	assert.Empty(t, errOut, "built-in journeys have no unmet needs")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, "journey dev\n", out)
}

func TestServeTwinStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- serveTwin(ctx, &out, twin.New(twin.Options{}), "127.0.0.1:0")
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("twin did not stop after cancel")
	}
	assert.Contains(t, out.String(), "twin serving on http://127.0.0.1:")
}
