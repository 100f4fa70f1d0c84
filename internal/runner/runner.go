// Package runner executes jobs concurrently and publishes their lifecycle
// events.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/startend/pkg/event"
	"github.com/dkoosis/startend/pkg/testjson"
)

// Exit codes reported for jobs that could not be started.
const (
	ReturnCodeNotFound    = 127
	ReturnCodeStartFailed = 1
)

// Job is a command to run under a name.
type Job struct {
	Name     string
	Command  string
	Args     []string
	Dir      string
	Env      []string // appended to the current environment
	TestJSON bool     // stdout is go test -json; failing tests are published
}

// PublishFunc delivers an event, typically dispatch.Dispatcher.Publish.
type PublishFunc func(ctx context.Context, ev event.Event) error

type Config struct {
	MaxParallel   int           // defaults to runtime.NumCPU()
	Output        OutputMode    // which output lines become Output events
	WaitDelay     time.Duration // grace period after interrupt, defaults to 2s
	MaxLineLength int           // defaults to 1MB
	MaxBufferSize int           // per-job output kept for OutputOnFail, defaults to 10MB
	Logger        *zerolog.Logger
}

// Result is the outcome of one job.
type Result struct {
	Job          string
	ReturnCode   int
	Duration     time.Duration
	TestFailures int
	Skipped      bool  // never started because the run was interrupted
	Err          error // start or wait error, nil on success
}

type Runner struct {
	cfg     Config
	logger  zerolog.Logger
	publish PublishFunc
}

func New(cfg Config, publish PublishFunc) *Runner {
	normalized := normalizeConfig(cfg)
	return &Runner{cfg: normalized, logger: *normalized.Logger, publish: publish}
}

// Run executes jobs with at most MaxParallel running at once and returns
// one Result per job, in input order. Job failures are reported through
// events and results, not as errors; the error is non-nil only when an
// event could not be published.
//
// Cancelling ctx interrupts running jobs (their end events carry
// event.ReturnCodeInterrupted) and skips jobs that have not started.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxParallel)

	for i, job := range jobs {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = Result{Job: job.Name, ReturnCode: event.ReturnCodeInterrupted, Skipped: true, Err: gctx.Err()}
				return nil
			}
			res, err := r.runJob(gctx, job)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (r *Runner) runJob(ctx context.Context, job Job) (Result, error) {
	id := event.JobID(job.Name)
	// End events must still go out after an interrupt.
	pubCtx := context.WithoutCancel(ctx)
	log := r.logger.With().Str("job", job.Name).Logger()

	if err := r.publish(pubCtx, event.Started(id)); err != nil {
		return Result{Job: job.Name}, fmt.Errorf("publishing start of %q: %w", job.Name, err)
	}
	start := time.Now()

	var (
		pubErrOnce   sync.Once
		pubErr       error
		testFailures int
	)
	publish := func(ev event.Event) {
		if err := r.publish(pubCtx, ev); err != nil {
			pubErrOnce.Do(func() { pubErr = err })
		}
	}
	buffered := newOutputBuffer(r.cfg.MaxBufferSize)
	onOutput := func(line string) {
		switch r.cfg.Output {
		case OutputAlways:
			publish(event.Output(id, line))
		case OutputOnFail:
			buffered.add(line)
		}
	}
	onFailure := func(e testjson.TestEvent) {
		testFailures++
		log.Debug().Str("test", e.Name()).Msg("test failed")
		publish(event.TestFailed(id))
	}

	runErr := r.execute(ctx, job, log, onOutput, onFailure)
	rc := returnCode(ctx, runErr)
	elapsed := time.Since(start)
	log.Debug().Int("rc", rc).Dur("elapsed", elapsed).Err(runErr).Msg("job finished")

	if rc != 0 && r.cfg.Output == OutputOnFail {
		for _, line := range buffered.Lines() {
			publish(event.Output(id, line))
		}
	}

	res := Result{
		Job:          job.Name,
		ReturnCode:   rc,
		Duration:     elapsed,
		TestFailures: testFailures,
		Err:          runErr,
	}
	if pubErr != nil {
		return res, fmt.Errorf("publishing events of %q: %w", job.Name, pubErr)
	}
	if err := r.publish(pubCtx, event.Ended(id, rc)); err != nil {
		return res, fmt.Errorf("publishing end of %q: %w", job.Name, err)
	}
	return res, nil
}

// execute runs the job's command and returns once it has exited and all of
// its output has been read.
func (r *Runner) execute(ctx context.Context, job Job, log zerolog.Logger, onOutput func(string), onFailure testjson.ProcessFunc) error {
	if job.Dir != "" {
		if _, err := os.Stat(job.Dir); err != nil {
			return fmt.Errorf("job directory: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, job.Command, job.Args...)
	cmd.Dir = job.Dir
	cmd.Env = append(os.Environ(), job.Env...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return interruptProcessGroup(cmd) }

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	log.Debug().Str("command", job.Command).Strs("args", job.Args).Str("dir", job.Dir).Msg("starting job")
	if err := cmd.Start(); err != nil {
		return err
	}

	// After an interrupt the group gets WaitDelay to exit before it is
	// killed, including children still holding the output pipes.
	exited := make(chan struct{})
	stopKill := context.AfterFunc(ctx, func() {
		select {
		case <-time.After(r.cfg.WaitDelay):
			log.Debug().Msg("grace period expired, killing process group")
			_ = killProcessGroup(cmd)
		case <-exited:
		}
	})
	defer stopKill()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer drain(stdout)
		if !job.TestJSON {
			r.scanLines(stdout, onOutput, log)
			return
		}
		malformed, err := testjson.Failures(context.WithoutCancel(ctx), stdout, onFailure, onOutput)
		if err != nil {
			log.Warn().Err(err).Msg("reading go test -json output")
		}
		log.Debug().Int("non_json_lines", malformed).Msg("go test -json stream done")
	}()
	go func() {
		defer wg.Done()
		defer drain(stderr)
		r.scanLines(stderr, onOutput, log)
	}()

	// Wait closes the pipes, so every line is read first.
	wg.Wait()
	err = cmd.Wait()
	close(exited)
	if ctx.Err() != nil {
		// Children that ignored SIGINT would outlive the job otherwise.
		_ = killProcessGroup(cmd)
	}
	return err
}

func (r *Runner) scanLines(rd io.Reader, fn func(string), log zerolog.Logger) {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), r.cfg.MaxLineLength)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("reading job output")
	}
}

// drain discards unread output so the child never blocks on a full pipe.
func drain(rd io.Reader) {
	_, _ = io.Copy(io.Discard, rd)
}

// returnCode maps the result of starting and waiting on a job to the code
// reported in its end event.
func returnCode(ctx context.Context, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code, interrupted, ok := exitStatus(exitErr)
		if interrupted || ctx.Err() != nil {
			return event.ReturnCodeInterrupted
		}
		if ok {
			return code
		}
		if c := exitErr.ExitCode(); c > 0 {
			return c
		}
		return ReturnCodeStartFailed
	}
	if ctx.Err() != nil {
		return event.ReturnCodeInterrupted
	}
	if isCommandNotFound(err) {
		return ReturnCodeNotFound
	}
	return ReturnCodeStartFailed
}

func normalizeConfig(cfg Config) Config {
	normalized := cfg
	if normalized.MaxParallel <= 0 {
		normalized.MaxParallel = runtime.NumCPU()
	}
	if normalized.WaitDelay <= 0 {
		normalized.WaitDelay = 2 * time.Second
	}
	if normalized.MaxLineLength <= 0 {
		normalized.MaxLineLength = 1 * 1024 * 1024
	}
	if normalized.MaxBufferSize <= 0 {
		normalized.MaxBufferSize = 10 * 1024 * 1024
	}
	if normalized.Logger == nil {
		nop := zerolog.Nop()
		normalized.Logger = &nop
	}
	return normalized
}
