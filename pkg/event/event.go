// Package event defines the job lifecycle events delivered to reporters.
package event

import (
	"encoding/json"
	"fmt"
)

// JobID names a job. It is unique among concurrently active jobs but may be
// reused by a later run of the same job.
type JobID string

// Kind identifies the variant carried by an Event.
type Kind int

const (
	KindUnknown Kind = iota
	KindJobStarted
	KindJobEnded
	KindTestFailure
	KindOutput
)

var kindNames = map[Kind]string{
	KindUnknown:     "unknown",
	KindJobStarted:  "job_started",
	KindJobEnded:    "job_ended",
	KindTestFailure: "test_failure",
	KindOutput:      "output",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name back to its Kind. Unrecognized names map to
// KindUnknown so newer producers don't break older consumers.
func ParseKind(name string) Kind {
	for k, n := range kindNames {
		if n == name {
			return k
		}
	}
	return KindUnknown
}

// ReturnCodeInterrupted is the return code reported for a job that was
// aborted by an interrupt signal (the negated SIGINT number).
const ReturnCodeInterrupted = -2

// Event is one job lifecycle signal. Which fields are meaningful depends on
// Kind: ReturnCode only for KindJobEnded, Line only for KindOutput.
type Event struct {
	Kind       Kind
	Job        JobID
	ReturnCode int
	Line       string
}

// Started returns a JobStarted event.
func Started(id JobID) Event {
	return Event{Kind: KindJobStarted, Job: id}
}

// Ended returns a JobEnded event carrying the job's return code.
func Ended(id JobID, rc int) Event {
	return Event{Kind: KindJobEnded, Job: id, ReturnCode: rc}
}

// TestFailed returns a TestFailure event for the job.
func TestFailed(id JobID) Event {
	return Event{Kind: KindTestFailure, Job: id}
}

// Output returns an event carrying one line of job output.
func Output(id JobID, line string) Event {
	return Event{Kind: KindOutput, Job: id, Line: line}
}

func (e Event) String() string {
	switch e.Kind {
	case KindJobEnded:
		return fmt.Sprintf("%s(%s, rc=%d)", e.Kind, e.Job, e.ReturnCode)
	default:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Job)
	}
}

// wireEvent is the NDJSON shape used when events are recorded or replayed.
type wireEvent struct {
	Kind       string `json:"kind"`
	Job        JobID  `json:"job"`
	ReturnCode *int   `json:"rc,omitempty"`
	Line       string `json:"line,omitempty"`
}

// MarshalJSON encodes the event in its recorded form.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Kind: e.Kind.String(), Job: e.Job, Line: e.Line}
	if e.Kind == KindJobEnded {
		rc := e.ReturnCode
		w.ReturnCode = &rc
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a recorded event. Unknown kinds decode to KindUnknown.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decoding event: %w", err)
	}
	*e = Event{Kind: ParseKind(w.Kind), Job: w.Job, Line: w.Line}
	if w.ReturnCode != nil {
		e.ReturnCode = *w.ReturnCode
	}
	return nil
}
