// startend runs jobs concurrently and reports when each one starts and
// ends, one aligned line per event.
//
// Usage:
//
//	startend run                              # jobs from .startend.yaml
//	startend run --job vet='go vet ./...'     # ad-hoc jobs
//	startend run --record events.ndjson       # keep the event stream
//	startend replay events.ndjson             # re-render a recorded run
//
// Successful and aborted jobs are reported on stdout, failed jobs on
// stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/startend/internal/config"
	"github.com/dkoosis/startend/internal/logging"
	"github.com/dkoosis/startend/internal/version"
)

// Process exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// exitError carries a process exit code out of a cobra command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the exit code, so tests can drive it
// without os.Exit.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "startend: %v\n", ee.err)
		}
		return ee.code
	}
	// Flag and argument errors from cobra.
	fmt.Fprintf(stderr, "startend: %v\n", err)
	return exitUsage
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "startend",
		Short: "Run jobs and report when each one starts and ends",
		Long: `startend - one line per job start and end

Runs the configured jobs concurrently and prints an aligned line when each
job starts and when it finishes, fails, or is aborted.

Configuration:
  .startend.yaml in the working directory, or
  ~/.config/startend/.startend.yaml`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newRunCmd(stdout, stderr))
	root.AddCommand(newReplayCmd(stdin, stdout, stderr))
	root.AddCommand(newVersionCmd(stdout))
	return root
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and event protocol information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(stdout, version.String())
			return err
		},
	}
}

// displayFlags are shared by every command that renders events.
type displayFlags struct {
	configPath string
	theme      string
	noColor    bool
	ci         bool
	debug      bool
}

func (f *displayFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "Path to a config file (default: discovered .startend.yaml)")
	fs.StringVar(&f.theme, "theme", "", "Theme: default, orca, mono")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&f.ci, "ci", false, "CI mode (implies --no-color)")
	fs.BoolVar(&f.debug, "debug", false, "Write debug logs to stderr")
}

func (f *displayFlags) cliFlags(cmd *cobra.Command) config.CliFlags {
	fs := cmd.Flags()
	return config.CliFlags{
		ConfigPath: f.configPath,
		ThemeName:  f.theme,
		NoColor:    f.noColor,
		NoColorSet: fs.Changed("no-color"),
		CI:         f.ci,
		CISet:      fs.Changed("ci"),
		Debug:      f.debug,
		DebugSet:   fs.Changed("debug"),
	}
}

// resolve loads the configuration and the logger it asks for. Debug logging
// during resolution follows the flag and environment only.
func resolve(flags config.CliFlags, stderr io.Writer) (*config.Resolved, zerolog.Logger, error) {
	bootDebug := flags.Debug || os.Getenv("STARTEND_DEBUG") != ""
	log := logging.New(stderr, bootDebug)

	resolved, err := config.Resolve(flags, log)
	if err != nil {
		return nil, log, withCode(exitUsage, err)
	}
	if resolved.Debug != bootDebug {
		log = logging.New(stderr, resolved.Debug)
	}
	return resolved, log, nil
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
