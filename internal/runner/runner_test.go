//go:build unix

package runner

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkoosis/startend/pkg/event"
)

type eventLog struct {
	mu     sync.Mutex
	events []event.Event
	onEv   func(event.Event)
}

func (l *eventLog) publish(_ context.Context, ev event.Event) error {
	l.mu.Lock()
	l.events = append(l.events, ev)
	hook := l.onEv
	l.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return nil
}

func (l *eventLog) forJob(id event.JobID) []event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []event.Event
	for _, ev := range l.events {
		if ev.Job == id {
			out = append(out, ev)
		}
	}
	return out
}

func shJob(name, script string) Job {
	return Job{Name: name, Command: "sh", Args: []string{"-c", script}}
}

func TestRun_ExitCodes(t *testing.T) {
	log := &eventLog{}
	r := New(Config{MaxParallel: 4}, log.publish)

	results, err := r.Run(context.Background(), []Job{
		shJob("ok", "exit 0"),
		shJob("bad", "exit 7"),
		{Name: "missing", Command: "definitely-not-a-real-command-startend"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].ReturnCode)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 7, results[1].ReturnCode)
	assert.Equal(t, ReturnCodeNotFound, results[2].ReturnCode)
	assert.Error(t, results[2].Err)

	assert.Equal(t, []event.Event{event.Started("ok"), event.Ended("ok", 0)}, log.forJob("ok"))
	assert.Equal(t, []event.Event{event.Started("bad"), event.Ended("bad", 7)}, log.forJob("bad"))
	assert.Equal(t, []event.Event{event.Started("missing"), event.Ended("missing", ReturnCodeNotFound)}, log.forJob("missing"))
}

func TestRun_TestJSONJob_PublishesFailuresBeforeEnd(t *testing.T) {
	log := &eventLog{}
	r := New(Config{}, log.publish)

	script := `printf '%s\n' ` +
		`'{"Action":"run","Package":"p","Test":"TestA"}' ` +
		`'{"Action":"fail","Package":"p","Test":"TestA","Elapsed":0.1}' ` +
		`'{"Action":"fail","Package":"p","Test":"TestB","Elapsed":0.1}' ` +
		`'{"Action":"pass","Package":"p","Elapsed":0.2}'`
	job := shJob("unit", script)
	job.TestJSON = true

	results, err := r.Run(context.Background(), []Job{job})
	require.NoError(t, err)
	assert.Equal(t, 2, results[0].TestFailures)

	assert.Equal(t, []event.Event{
		event.Started("unit"),
		event.TestFailed("unit"),
		event.TestFailed("unit"),
		event.Ended("unit", 0),
	}, log.forJob("unit"))
}

func TestRun_OutputAlways_ForwardsStdoutAndStderr(t *testing.T) {
	log := &eventLog{}
	r := New(Config{Output: OutputAlways}, log.publish)

	_, err := r.Run(context.Background(), []Job{shJob("talk", "echo hello; echo oops 1>&2")})
	require.NoError(t, err)

	var lines []string
	for _, ev := range log.forJob("talk") {
		if ev.Kind == event.KindOutput {
			lines = append(lines, ev.Line)
		}
	}
	assert.ElementsMatch(t, []string{"hello", "oops"}, lines)
}

func TestRun_Cancel_InterruptsRunningJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &eventLog{}
	log.onEv = func(ev event.Event) {
		if ev.Kind == event.KindJobStarted {
			go func() {
				time.Sleep(100 * time.Millisecond)
				cancel()
			}()
		}
	}
	r := New(Config{WaitDelay: 500 * time.Millisecond}, log.publish)

	start := time.Now()
	results, err := r.Run(ctx, []Job{shJob("sleeper", "sleep 10")})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, event.ReturnCodeInterrupted, results[0].ReturnCode)
	evs := log.forJob("sleeper")
	require.Len(t, evs, 2)
	assert.Equal(t, event.Ended("sleeper", event.ReturnCodeInterrupted), evs[1])
}

func TestRun_CancelledBeforeStart_SkipsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := &eventLog{}
	r := New(Config{MaxParallel: 1}, log.publish)
	results, err := r.Run(ctx, []Job{shJob("a", "exit 0"), shJob("b", "exit 0")})
	require.NoError(t, err)

	for _, res := range results {
		assert.True(t, res.Skipped)
		assert.Equal(t, event.ReturnCodeInterrupted, res.ReturnCode)
	}
	assert.Empty(t, log.events)
}

func TestRun_PublishError_ReturnedFromRun(t *testing.T) {
	boom := errors.New("dispatcher gone")
	r := New(Config{}, func(context.Context, event.Event) error { return boom })

	_, err := r.Run(context.Background(), []Job{shJob("a", "exit 0")})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestReturnCode_Mapping(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, returnCode(live, nil))
	assert.Equal(t, ReturnCodeNotFound, returnCode(live, exec.ErrNotFound))
	assert.Equal(t, ReturnCodeNotFound, returnCode(live, &fs.PathError{Op: "fork/exec", Path: "./tool", Err: syscall.ENOENT}))
	assert.Equal(t, ReturnCodeStartFailed, returnCode(live, &fs.PathError{Op: "chdir", Path: "missing", Err: syscall.ENOENT}))
	assert.Equal(t, ReturnCodeStartFailed, returnCode(live, errors.New("permission denied")))
	assert.Equal(t, event.ReturnCodeInterrupted, returnCode(cancelled, errors.New("killed")))
}

func TestNew_Defaults(t *testing.T) {
	r := New(Config{}, nil)
	assert.Positive(t, r.cfg.MaxParallel)
	assert.Equal(t, 2*time.Second, r.cfg.WaitDelay)
	assert.Equal(t, 1024*1024, r.cfg.MaxLineLength)
	assert.Equal(t, 10*1024*1024, r.cfg.MaxBufferSize)
	assert.Equal(t, OutputOnFail, r.cfg.Output)
}

func outputLines(evs []event.Event) []string {
	var lines []string
	for _, ev := range evs {
		if ev.Kind == event.KindOutput {
			lines = append(lines, ev.Line)
		}
	}
	return lines
}

func TestRun_SlowPublisher_KeepsEveryOutputLine(t *testing.T) {
	const n = 3000
	log := &eventLog{}
	slow := func(ctx context.Context, ev event.Event) error {
		if ev.Kind == event.KindOutput {
			time.Sleep(100 * time.Microsecond)
		}
		return log.publish(ctx, ev)
	}
	r := New(Config{Output: OutputAlways, WaitDelay: 10 * time.Millisecond}, slow)

	results, err := r.Run(context.Background(), []Job{{Name: "count", Command: "seq", Args: []string{"1", strconv.Itoa(n)}}})
	require.NoError(t, err)
	assert.Equal(t, 0, results[0].ReturnCode)
	assert.NoError(t, results[0].Err)

	lines := outputLines(log.forJob("count"))
	require.Len(t, lines, n)
	assert.Equal(t, "1", lines[0])
	assert.Equal(t, strconv.Itoa(n), lines[n-1])

	evs := log.forJob("count")
	assert.Equal(t, event.Ended("count", 0), evs[len(evs)-1])
}

func TestRun_OutputOnFail_PublishesFailedJobOutputBeforeEnd(t *testing.T) {
	log := &eventLog{}
	r := New(Config{}, log.publish)

	_, err := r.Run(context.Background(), []Job{
		shJob("quiet", "echo fine"),
		shJob("loud", "echo vet: bad thing 1>&2; exit 1"),
	})
	require.NoError(t, err)

	assert.Empty(t, outputLines(log.forJob("quiet")))
	assert.Equal(t, []event.Event{
		event.Started("loud"),
		event.Output("loud", "vet: bad thing"),
		event.Ended("loud", 1),
	}, log.forJob("loud"))
}

func TestRun_OutputNever_PublishesNothing(t *testing.T) {
	log := &eventLog{}
	r := New(Config{Output: OutputNever}, log.publish)

	_, err := r.Run(context.Background(), []Job{shJob("loud", "echo oops; exit 1")})
	require.NoError(t, err)
	assert.Empty(t, outputLines(log.forJob("loud")))
}

func TestRun_MissingDir_IsStartFailureNotNotFound(t *testing.T) {
	log := &eventLog{}
	r := New(Config{}, log.publish)

	job := shJob("lost", "exit 0")
	job.Dir = t.TempDir() + "/does-not-exist"
	results, err := r.Run(context.Background(), []Job{job})
	require.NoError(t, err)

	assert.Equal(t, ReturnCodeStartFailed, results[0].ReturnCode)
	assert.ErrorIs(t, results[0].Err, fs.ErrNotExist)
}

func TestOutputBuffer_DropsPastLimit(t *testing.T) {
	b := newOutputBuffer(10)
	b.add("12345")
	b.add("67890")
	b.add("x")
	b.add("y")

	lines := b.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"12345", "67890"}, lines[:2])
	assert.Contains(t, lines[2], "2 more lines not shown")
}

func TestParseOutputMode(t *testing.T) {
	for _, m := range []OutputMode{OutputOnFail, OutputAlways, OutputNever} {
		got, err := ParseOutputMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseOutputMode("sometimes")
	assert.Error(t, err)
}
