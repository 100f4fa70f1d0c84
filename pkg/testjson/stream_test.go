package testjson

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ndjson(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestStream_CallsFuncForEachEvent(t *testing.T) {
	input := ndjson(
		`{"Action":"start","Package":"example.com/pkg"}`,
		`{"Action":"run","Package":"example.com/pkg","Test":"TestFoo"}`,
		`{"Action":"pass","Package":"example.com/pkg","Test":"TestFoo","Elapsed":0.01}`,
		`{"Action":"pass","Package":"example.com/pkg","Elapsed":0.5}`,
	)

	var events []TestEvent
	malformed, err := stream(context.Background(), strings.NewReader(input), func(e TestEvent) {
		events = append(events, e)
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, malformed)
	require.Len(t, events, 4)
	assert.Equal(t, "start", events[0].Action)
	assert.Equal(t, "TestFoo", events[2].Test)
}

func TestStream_SkipsMalformedLines(t *testing.T) {
	input := ndjson(
		`not json`,
		`{"Action":"start","Package":"example.com/pkg"}`,
		`{CORRUPTED}`,
		`{"Action":"pass","Package":"example.com/pkg","Elapsed":0.1}`,
	)
	var events []TestEvent
	malformed, err := stream(context.Background(), strings.NewReader(input), func(e TestEvent) {
		events = append(events, e)
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, malformed)
	assert.Len(t, events, 2)
}

func TestStream_RespectsContextCancellation(t *testing.T) {
	input := ndjson(`{"Action":"start","Package":"example.com/pkg"}`)

	ctx, cancel := context.WithCancel(context.Background())
	var count int
	_, err := stream(ctx, strings.NewReader(input), func(TestEvent) {
		count++
		cancel()
	}, nil)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, 1, count)
}

// blockingReader never returns from Read until closed, like a stalled pipe.
type blockingReader struct {
	done chan struct{}
}

func (b *blockingReader) Read([]byte) (int, error) {
	<-b.done
	return 0, io.EOF
}

func (b *blockingReader) Close() error {
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	return nil
}

func TestStream_CancelUnblocksBlockedReader(t *testing.T) {
	br := &blockingReader{done: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := stream(ctx, br, func(TestEvent) {}, nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after context cancellation")
	}
}

func TestFailures_ReportsOnlyFailingTests(t *testing.T) {
	input := ndjson(
		`{"Action":"run","Package":"x","Test":"TestA"}`,
		`{"Action":"output","Package":"x","Test":"TestA","Output":"    a_test.go:9: want 1, got 2\n"}`,
		`{"Action":"fail","Package":"x","Test":"TestA","Elapsed":0.1}`,
		`{"Action":"pass","Package":"x","Test":"TestB","Elapsed":0.1}`,
		`{"Action":"fail","Package":"x","Test":"TestC/sub","Elapsed":0.1}`,
		`{"Action":"fail","Package":"x","Elapsed":0.3}`,
	)

	var failed []string
	malformed, err := Failures(context.Background(), strings.NewReader(input), func(e TestEvent) {
		failed = append(failed, e.Name())
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, malformed)
	assert.Equal(t, []string{"x.TestA", "x.TestC/sub"}, failed)
}

func TestFailures_ForwardsOutputAndRawLines(t *testing.T) {
	input := ndjson(
		`# example.com/broken`,
		`./main.go:3:1: syntax error`,
		`{"Action":"output","Package":"x","Test":"TestA","Output":"=== RUN   TestA\n"}`,
		`{"Action":"output","Package":"x","Output":"\n"}`,
	)

	var out []string
	malformed, err := Failures(context.Background(), strings.NewReader(input), func(TestEvent) {
		t.Fatal("no failures expected")
	}, func(line string) {
		out = append(out, line)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, malformed)
	assert.Equal(t, []string{"# example.com/broken", "./main.go:3:1: syntax error", "=== RUN   TestA"}, out)
}

func TestTestEvent_IsTestFailure(t *testing.T) {
	assert.True(t, TestEvent{Action: ActionFail, Test: "TestX"}.IsTestFailure())
	assert.False(t, TestEvent{Action: ActionFail}.IsTestFailure())
	assert.False(t, TestEvent{Action: "pass", Test: "TestX"}.IsTestFailure())
	assert.Equal(t, "p", TestEvent{Package: "p"}.Name())
}
