package reporter

import (
	"fmt"
	"io"
)

// flusher is implemented by buffered writers such as *bufio.Writer.
type flusher interface {
	Flush() error
}

// lineWriter is the single point of terminal output for the reporter. Each
// line goes out in one Write call so concurrent writers to the same
// terminal cannot split it.
type lineWriter struct {
	out io.Writer
	buf []byte
}

func newLineWriter(out io.Writer) *lineWriter {
	return &lineWriter{out: out}
}

// PrintLine writes s followed by a newline and flushes the writer if it
// buffers. Callers serialize access.
func (w *lineWriter) PrintLine(s string) error {
	w.buf = append(w.buf[:0], s...)
	w.buf = append(w.buf, '\n')
	if _, err := w.out.Write(w.buf); err != nil {
		return fmt.Errorf("writing line: %w", err)
	}
	if f, ok := w.out.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing line: %w", err)
		}
	}
	return nil
}
