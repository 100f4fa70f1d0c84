package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dkoosis/startend/pkg/event"
)

// recorder writes every event as one JSON line, the input format of replay.
type recorder struct {
	enc *json.Encoder
}

func newRecorder(w io.Writer) *recorder {
	return &recorder{enc: json.NewEncoder(w)}
}

func (r *recorder) Handle(ev event.Event) error {
	if err := r.enc.Encode(ev); err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}
