// Package testjson reads go test -json NDJSON streams produced by jobs.
package testjson

import "time"

// Actions reported by go test -json that Failures acts on.
const (
	ActionFail   = "fail"
	ActionOutput = "output"
)

// TestEvent represents a single event from go test -json output.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"` // start, run, pass, fail, skip, output, bench, pause, cont
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// IsTestFailure reports whether e is a failing test, as opposed to a
// failing package or any other action.
func (e TestEvent) IsTestFailure() bool {
	return e.Action == ActionFail && e.Test != ""
}

// Name returns "pkg.TestName", or the package alone for package events.
func (e TestEvent) Name() string {
	if e.Test == "" {
		return e.Package
	}
	return e.Package + "." + e.Test
}
