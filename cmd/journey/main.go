// journey runs the HOHO mini-program user journeys against a live API and
// reports each step.
//
// Usage:
//
//	journey                       Run the configured suite
//	journey run                   Same as the root command
//	journey graph                 Print the journeys as Graphviz DOT
//	journey twin --addr :8080     Serve the local fake API
//	journey version               Print the build version
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hohopark/hoho-journey/internal/client"
	"github.com/hohopark/hoho-journey/internal/config"
	"github.com/hohopark/hoho-journey/internal/journey"
	"github.com/hohopark/hoho-journey/internal/logging"
	"github.com/hohopark/hoho-journey/internal/plan"
	"github.com/hohopark/hoho-journey/internal/report"
	"github.com/hohopark/hoho-journey/internal/scenario"
	"github.com/hohopark/hoho-journey/internal/twin"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// errStepsFailed makes the process exit 1 without printing anything beyond
// the report.
var errStepsFailed = errors.New("one or more steps failed")

// defaultPause matches the idle time of a user opening the mini-program.
const defaultPause = 500 * time.Millisecond

type flags struct {
	configPath string
	baseURL    string
	timeout    int
	suite      string
	scenarios  string
	verbose    bool
	noColor    bool
	pause      time.Duration
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Getenv).ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errStepsFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "journey",
		Short:         "Run HOHO mini-program user journeys against the API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSuite(cmd, f, getenv)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (YAML or JSON); defaults to $JOURNEY_CONFIG or ~/.hoho-journey/config.yaml")
	pf.StringVar(&f.baseURL, "base-url", "", "API base URL")
	pf.IntVar(&f.timeout, "timeout", 0, "per-call HTTP timeout in seconds")
	pf.StringVar(&f.suite, "suite", "", "suite to run: journeys, smoke, or all")
	pf.StringVar(&f.scenarios, "scenarios", "", "YAML scenario file or directory to run after the suite")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "print step starts and debug logs")
	pf.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	pf.DurationVar(&f.pause, "pause", defaultPause, "idle time of the open mini-program step")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the configured suite (same as the root command)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSuite(cmd, f, getenv)
			},
		},
		&cobra.Command{
			Use:   "graph",
			Short: "Print journeys and their session dependencies as Graphviz DOT",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printGraph(cmd, f, getenv)
			},
		},
		newTwinCmd(f),
		&cobra.Command{
			Use:   "version",
			Short: "Print the build version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "journey %s\n", version)
			},
		},
	)
	return root
}

// loadConfig reads the config file, then applies JOURNEY_* variables, then
// any flags set on the command line.
func loadConfig(cmd *cobra.Command, f *flags, getenv func(string) string) (*config.Config, error) {
	path := f.configPath
	if path == "" {
		path = getenv("JOURNEY_CONFIG")
	}

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)

	fl := cmd.Flags()
	if fl.Changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if fl.Changed("timeout") {
		cfg.TimeoutSeconds = f.timeout
	}
	if fl.Changed("suite") {
		cfg.Suite = f.suite
	}
	if fl.Changed("scenarios") {
		cfg.Scenarios = f.scenarios
	}
	cfg.Settings.Verbose = cfg.Settings.Verbose || f.verbose
	cfg.Settings.NoColor = cfg.Settings.NoColor || f.noColor

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildJourneys assembles the configured suite followed by any scenarios.
func buildJourneys(cfg *config.Config, c *client.Client, pause time.Duration, getenv func(string) string) ([]journey.Journey, error) {
	var js []journey.Journey
	if cfg.Suite == config.SuiteJourneys || cfg.Suite == config.SuiteAll {
		js = append(js, journey.Builtin(journey.Deps{
			Client: c,
			User:   cfg.User,
			Admin:  cfg.Admin,
			Pause:  pause,
		})...)
	}
	if cfg.Suite == config.SuiteSmoke || cfg.Suite == config.SuiteAll {
		js = append(js, journey.Smoke(c)...)
	}

	if cfg.Scenarios != "" {
		scenarios, err := scenario.Load(cfg.Scenarios)
		if err != nil {
			return nil, err
		}
		compiled, err := scenario.CompileAll(scenarios, c, getenv)
		if err != nil {
			return nil, err
		}
		js = append(js, compiled...)
	}
	return js, nil
}

func runSuite(cmd *cobra.Command, f *flags, getenv func(string) string) error {
	cfg, err := loadConfig(cmd, f, getenv)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := logging.New(cfg.Settings.Verbose, cmd.ErrOrStderr()).With(zap.String("run", runID))
	defer logger.Sync() //nolint:errcheck

	c := client.New(cfg.BaseURLTrimmed(), cfg.Timeout(), logger)
	js, err := buildJourneys(cfg, c, f.pause, getenv)
	if err != nil {
		return err
	}

	p := report.New(cmd.OutOrStdout(), report.Options{
		NoColor: cfg.Settings.NoColor,
		Verbose: cfg.Settings.Verbose,
	})
	start := time.Now()
	p.Banner("HOHO mini-program journey test",
		report.Field{Key: "Base URL", Value: cfg.BaseURLTrimmed()},
		report.Field{Key: "Suite", Value: cfg.Suite},
		report.Field{Key: "Run", Value: runID},
		report.Field{Key: "Started", Value: start.Format(time.DateTime)},
	)

	q := journey.NewSequencer(js, p, logger)
	sum := q.RunAll(cmd.Context())
	elapsed := time.Since(start)
	if cfg.Settings.Verbose {
		p.Tokens(q.Session())
	}
	p.Summary(q.Results(), elapsed)

	logger.Debug("run finished",
		zap.Int("total", sum.Total),
		zap.Int("passed", sum.Passed),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("elapsed", elapsed),
	)
	if !sum.OK() {
		return errStepsFailed
	}
	return nil
}

func printGraph(cmd *cobra.Command, f *flags, getenv func(string) string) error {
	cfg, err := loadConfig(cmd, f, getenv)
	if err != nil {
		return err
	}
	c := client.New(cfg.BaseURLTrimmed(), cfg.Timeout(), nil)
	js, err := buildJourneys(cfg, c, 0, getenv)
	if err != nil {
		return err
	}

	dot, unmet, err := plan.DOT(js)
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), dot)
	for _, u := range unmet {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", u)
	}
	return nil
}

func newTwinCmd(f *flags) *cobra.Command {
	var (
		addr   string
		noSeed bool
	)
	cmd := &cobra.Command{
		Use:   "twin",
		Short: "Serve an in-memory fake of the HOHO API for local runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.NewProduction(f.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			opts := twin.DefaultOptions()
			opts.Logger = logger
			opts.NoSeed = noSeed
			return serveTwin(cmd.Context(), cmd.OutOrStdout(), twin.New(opts), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "start with an empty catalogue")
	return cmd
}

func serveTwin(ctx context.Context, out io.Writer, srv *twin.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr, func(a net.Addr) {
		fmt.Fprintf(out, "twin serving on http://%s (Ctrl-C to stop)\n", a)
	})
}
