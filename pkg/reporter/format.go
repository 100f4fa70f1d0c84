package reporter

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dkoosis/startend/pkg/event"
	"github.com/dkoosis/startend/pkg/render"
)

// verbColumn is the width of the verb plus its trailing padding. The start
// and end arrows of every line begin at this column.
const verbColumn = 9

// TestFailureMarker is appended to the end line of a successful job that
// reported at least one test failure.
const TestFailureMarker = "\t[ with test failures ]"

func pad(verb string) string {
	return runewidth.FillRight(verb, verbColumn)[len(verb):]
}

// FormatStarted renders "Starting >>> {id}".
func FormatStarted(theme render.Theme, id event.JobID) string {
	var sb strings.Builder
	sb.WriteString(theme.Label.Render("Starting"))
	sb.WriteString(pad("Starting"))
	sb.WriteString(theme.Success.Render(">>>"))
	sb.WriteString(" ")
	sb.WriteString(theme.Identifier.Render(string(id)))
	return sb.String()
}

// FormatFinished renders "Finished <<< {id} [{duration}]", with the test
// failure marker when withTestFailures is set.
func FormatFinished(theme render.Theme, id event.JobID, duration string, withTestFailures bool) string {
	var sb strings.Builder
	sb.WriteString(theme.Muted.Render("Finished"))
	sb.WriteString(pad("Finished"))
	sb.WriteString(theme.Success.Render("<<<"))
	sb.WriteString(" ")
	sb.WriteString(theme.Identifier.Render(string(id)))
	sb.WriteString(" [")
	sb.WriteString(theme.Duration.Render(duration))
	sb.WriteString("]")
	if withTestFailures {
		sb.WriteString(TestFailureMarker)
	}
	return sb.String()
}

// FormatAborted renders "Aborted  <<< {id} [{duration}]".
func FormatAborted(theme render.Theme, id event.JobID, duration string) string {
	var sb strings.Builder
	sb.WriteString(theme.Error.Render("Aborted"))
	sb.WriteString(pad("Aborted"))
	sb.WriteString(theme.ErrorNormal.Render("<<<"))
	sb.WriteString(" ")
	sb.WriteString(theme.Identifier.Render(string(id)))
	sb.WriteString(" [")
	sb.WriteString(theme.Duration.Render(duration))
	sb.WriteString("]")
	return sb.String()
}

// FormatFailed renders "Failed   <<< {id} [{duration}, exited with code {rc}]".
func FormatFailed(theme render.Theme, id event.JobID, duration string, rc int) string {
	var sb strings.Builder
	sb.WriteString(theme.Error.Render("Failed"))
	sb.WriteString(pad("Failed"))
	sb.WriteString(theme.ErrorNormal.Render("<<<"))
	sb.WriteString(" ")
	sb.WriteString(theme.Identifier.Render(string(id)))
	sb.WriteString(" [")
	sb.WriteString(theme.ErrorDetail.Render(duration + ", exited with code " + strconv.Itoa(rc)))
	sb.WriteString("]")
	return sb.String()
}
