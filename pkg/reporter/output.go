package reporter

import (
	"fmt"
	"io"

	"github.com/dkoosis/startend/pkg/event"
)

// OutputPrinter prints Output events as "[name] line" and ignores the rest.
type OutputPrinter struct {
	w io.Writer
}

func NewOutputPrinter(w io.Writer) *OutputPrinter {
	return &OutputPrinter{w: w}
}

func (p *OutputPrinter) Handle(ev event.Event) error {
	if ev.Kind != event.KindOutput {
		return nil
	}
	_, err := fmt.Fprintf(p.w, "[%s] %s\n", ev.Job, ev.Line)
	return err
}
