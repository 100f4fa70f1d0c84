package magetasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dkoosis/startend/internal/logging"
	"github.com/dkoosis/startend/internal/runner"
	"github.com/dkoosis/startend/pkg/dispatch"
	"github.com/dkoosis/startend/pkg/reporter"
)

// ErrTasksFailed is returned when at least one required task failed.
var ErrTasksFailed = errors.New("tasks failed")

// Task is a job run by a mage target. Optional tasks whose tool is not
// installed are reported as skipped instead of failing the target.
type Task struct {
	runner.Job
	Optional bool
	Install  string // hint printed when an optional tool is missing
}

// Runner runs tasks concurrently and reports them on Out and Err. The
// output of a failed task is printed on Out before its end line.
type Runner struct {
	Out    io.Writer
	Err    io.Writer
	Logger zerolog.Logger
}

// DefaultRunner reports on the process's stdout and stderr. MAGEFILE_VERBOSE
// enables debug logs.
func DefaultRunner() *Runner {
	return &Runner{
		Out:    os.Stdout,
		Err:    os.Stderr,
		Logger: logging.New(os.Stderr, os.Getenv("MAGEFILE_VERBOSE") != ""),
	}
}

// Run runs tasks and returns ErrTasksFailed if any required task failed.
func (r *Runner) Run(ctx context.Context, tasks ...Task) error {
	rep, err := reporter.New(reporter.Config{
		Out:    r.Out,
		Err:    r.Err,
		Logger: &r.Logger,
	})
	if err != nil {
		return err
	}

	d := dispatch.New(len(tasks)*2, r.Logger, rep, reporter.NewOutputPrinter(r.Out))
	jr := runner.New(runner.Config{Output: runner.OutputOnFail, Logger: &r.Logger}, d.Publish)

	jobs := make([]runner.Job, len(tasks))
	for i, t := range tasks {
		jobs[i] = t.Job
		if jobs[i].Dir == "" {
			jobs[i].Dir = ProjectRoot
		}
	}

	var g errgroup.Group
	g.Go(func() error { return d.Run(context.WithoutCancel(ctx)) })
	results, runErr := jr.Run(ctx, jobs)
	d.Close()
	if err := errors.Join(g.Wait(), runErr); err != nil {
		return err
	}

	var failed []string
	for i, res := range results {
		switch {
		case res.ReturnCode == 0:
		case res.ReturnCode == runner.ReturnCodeNotFound && tasks[i].Optional:
			fmt.Fprintf(r.Err, "%s not found, skipped (install: %s)\n", tasks[i].Command, tasks[i].Install)
		default:
			failed = append(failed, res.Job)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrTasksFailed, strings.Join(failed, ", "))
	}
	return nil
}

func goTask(name string, args ...string) Task {
	return Task{Job: runner.Job{Name: name, Command: "go", Args: args}}
}

// VetTasks are the static checks.
func VetTasks() []Task {
	return []Task{
		goTask("vet", "vet", "./..."),
		{
			Job:      runner.Job{Name: "staticcheck", Command: "staticcheck", Args: []string{"./..."}},
			Optional: true,
			Install:  "go install honnef.co/go/tools/cmd/staticcheck@latest",
		},
		{
			Job:      runner.Job{Name: "golangci-lint", Command: "golangci-lint", Args: []string{"run", "--timeout=5m", "./..."}},
			Optional: true,
			Install:  "go install github.com/golangci/golangci-lint/cmd/golangci-lint@latest",
		},
	}
}

// TestTask runs the test suite; failing tests are flagged on its end line.
func TestTask(race bool) Task {
	args := []string{"test", "-json"}
	if race {
		args = append(args, "-race")
	}
	t := goTask("test", append(args, "./...")...)
	t.TestJSON = true
	return t
}

// QATasks are all checks run by the QA target.
func QATasks() []Task {
	tasks := VetTasks()
	tasks = append(tasks, TestTask(false), goTask("build", "build", "./..."))
	return tasks
}
