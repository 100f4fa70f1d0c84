package runner

import (
	"fmt"
	"sync"
)

// OutputMode selects which job output is published as Output events.
type OutputMode int

const (
	// OutputOnFail publishes a job's output only when it ends with a
	// non-zero return code, just before its end event.
	OutputOnFail OutputMode = iota
	// OutputAlways publishes every line as it is read.
	OutputAlways
	// OutputNever discards job output.
	OutputNever
)

var outputModeNames = map[OutputMode]string{
	OutputOnFail: "on-fail",
	OutputAlways: "always",
	OutputNever:  "never",
}

func (m OutputMode) String() string {
	if name, ok := outputModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("OutputMode(%d)", int(m))
}

// ParseOutputMode parses "on-fail", "always" or "never".
func ParseOutputMode(s string) (OutputMode, error) {
	for m, name := range outputModeNames {
		if name == s {
			return m, nil
		}
	}
	return OutputOnFail, fmt.Errorf("invalid output mode %q (must be: on-fail, always, never)", s)
}

// outputBuffer holds a job's lines until its return code is known. Lines
// past the byte limit are counted, not kept.
type outputBuffer struct {
	mu      sync.Mutex
	limit   int
	size    int
	lines   []string
	dropped int
}

func newOutputBuffer(limit int) *outputBuffer {
	return &outputBuffer{limit: limit}
}

func (b *outputBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size+len(line) > b.limit {
		b.dropped++
		return
	}
	b.size += len(line)
	b.lines = append(b.lines, line)
}

// Lines returns the buffered lines, followed by a note when some were
// dropped.
func (b *outputBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.lines...)
	if b.dropped > 0 {
		out = append(out, fmt.Sprintf("... %d more lines not shown (output exceeded %d bytes)", b.dropped, b.limit))
	}
	return out
}
