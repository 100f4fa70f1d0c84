package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/startend/internal/config"
	"github.com/dkoosis/startend/internal/runner"
	"github.com/dkoosis/startend/pkg/dispatch"
	"github.com/dkoosis/startend/pkg/reporter"
)

// eventBuffer is the dispatcher queue size. Producers block when it fills.
const eventBuffer = 64

type runFlags struct {
	displayFlags
	jobs        []string
	maxParallel int
	showOutput  string
	record      string
}

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured jobs and report their start and end",
		Example: `  startend run
  startend run --job vet='go vet ./...' --job build='go build ./...'
  startend run --max-parallel 2 --show-output
  startend run --show-output=never`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := f.cliFlags(cmd)
			flags.MaxParallel = f.maxParallel
			flags.MaxParallelSet = cmd.Flags().Changed("max-parallel")
			flags.ShowOutput = f.showOutput
			for _, value := range f.jobs {
				job, err := config.ParseJobFlag(value)
				if err != nil {
					return withCode(exitUsage, err)
				}
				flags.Jobs = append(flags.Jobs, job)
			}

			resolved, log, err := resolve(flags, stderr)
			if err != nil {
				return err
			}
			if len(resolved.Jobs) == 0 {
				return withCode(exitUsage, errors.New("no jobs to run: add jobs to "+config.FileName+" or pass --job"))
			}
			return runJobs(cmd.Context(), resolved, f.record, stdout, stderr, log)
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.StringArrayVar(&f.jobs, "job", nil, "Ad-hoc job as name=command (repeatable)")
	fs.IntVar(&f.maxParallel, "max-parallel", 0, "Maximum jobs running at once (default: number of CPUs)")
	fs.StringVar(&f.showOutput, "show-output", "", "Print job output as [name] line: on-fail, always or never (default on-fail)")
	fs.Lookup("show-output").NoOptDefVal = runner.OutputAlways.String()
	fs.StringVar(&f.record, "record", "", "Write the event stream as NDJSON to this file")
	return cmd
}

func runJobs(ctx context.Context, cfg *config.Resolved, recordPath string, stdout, stderr io.Writer, log zerolog.Logger) error {
	noColor := cfg.NoColor || !isTTYWriter(stdout)
	rep, err := reporter.New(reporter.Config{
		ThemeName: cfg.ThemeName,
		NoColor:   noColor,
		Out:       stdout,
		Err:       stderr,
		Logger:    &log,
	})
	if err != nil {
		return withCode(exitFailure, err)
	}

	mode, err := runner.ParseOutputMode(cfg.ShowOutput)
	if err != nil {
		return withCode(exitUsage, err)
	}

	handlers := []dispatch.Handler{rep}
	if mode != runner.OutputNever {
		handlers = append(handlers, reporter.NewOutputPrinter(stdout))
	}
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return withCode(exitUsage, fmt.Errorf("creating record file: %w", err))
		}
		defer f.Close()
		handlers = append(handlers, newRecorder(f))
	}

	d := dispatch.New(eventBuffer, log, handlers...)
	r := runner.New(runner.Config{
		MaxParallel: cfg.MaxParallel,
		Output:      mode,
		Logger:      &log,
	}, d.Publish)

	// Delivery outlives an interrupt so end events are still reported.
	var g errgroup.Group
	g.Go(func() error { return d.Run(context.WithoutCancel(ctx)) })

	results, runErr := r.Run(ctx, toRunnerJobs(cfg.Jobs))
	d.Close()
	if err := g.Wait(); err != nil {
		return withCode(exitFailure, err)
	}
	if runErr != nil {
		return withCode(exitFailure, runErr)
	}

	if ctx.Err() != nil {
		return withCode(exitInterrupted, nil)
	}
	failed := 0
	for _, res := range results {
		if res.ReturnCode != 0 {
			failed++
		}
	}
	log.Debug().Int("jobs", len(results)).Int("failed", failed).Msg("run complete")
	if failed > 0 {
		return withCode(exitFailure, nil)
	}
	return nil
}

func toRunnerJobs(jobs []config.JobConfig) []runner.Job {
	out := make([]runner.Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, runner.Job{
			Name:     j.Name,
			Command:  j.Command,
			Args:     j.Args,
			Dir:      j.Dir,
			Env:      j.Env,
			TestJSON: j.TestJSON,
		})
	}
	return out
}
