package testjson

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// ProcessFunc is called for each parsed event.
type ProcessFunc func(TestEvent)

// RawFunc is called for each non-empty line that is not a JSON event, such
// as build errors printed ahead of the test stream.
type RawFunc func(line string)

// scanResult carries a scanned line or terminal error from the scanner goroutine.
type scanResult struct {
	line []byte
	err  error
}

// Failures streams r and calls onFailure for every failing test. When
// onOutput is non-nil it receives test output and non-JSON lines with
// trailing newlines removed. Returns the number of non-JSON lines seen.
func Failures(ctx context.Context, r io.Reader, onFailure ProcessFunc, onOutput RawFunc) (int, error) {
	fn := func(e TestEvent) {
		switch {
		case e.IsTestFailure():
			onFailure(e)
		case e.Action == ActionOutput && onOutput != nil:
			if line := strings.TrimRight(e.Output, "\r\n"); line != "" {
				onOutput(line)
			}
		}
	}
	return stream(ctx, r, fn, onOutput)
}

// stream parses go test -json events line by line and calls fn for each one,
// and raw (when non-nil) for lines that are not JSON. Stops on EOF or when
// ctx is cancelled. Returns the number of malformed lines and any error.
//
// The scanner runs in a background goroutine. On context cancel, stream
// closes r (if it implements io.Closer) to unblock it.
func stream(ctx context.Context, r io.Reader, fn ProcessFunc, raw RawFunc) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := make(chan scanResult)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			cp := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- scanResult{line: cp}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- scanResult{err: err}:
			case <-ctx.Done():
			}
		}
	}()

	var malformed int
	for {
		select {
		case <-ctx.Done():
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			return malformed, ctx.Err()
		case res, ok := <-lines:
			if !ok {
				return malformed, nil
			}
			if res.err != nil {
				return malformed, res.err
			}
			if len(res.line) == 0 {
				continue
			}
			var event TestEvent
			if err := json.Unmarshal(res.line, &event); err != nil {
				malformed++
				if raw != nil {
					raw(strings.TrimRight(string(res.line), "\r"))
				}
				continue
			}
			fn(event)
		}
	}
}
