// Package reporter renders job lifecycle events as start/end lines on the
// console.
//
// A ConsoleReporter correlates JobStarted, TestFailure and JobEnded events
// for many interleaved jobs:
//
//	Starting >>> pkg_a
//	Starting >>> pkg_b
//	Finished <<< pkg_b [0.42s]
//	Failed   <<< pkg_a [1.20s, exited with code 1]
//
// Successful and aborted jobs are reported on Out, failed jobs on Err.
package reporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/dkoosis/startend/pkg/event"
	"github.com/dkoosis/startend/pkg/protocol"
	"github.com/dkoosis/startend/pkg/render"
)

// ErrJobNotStarted is returned when a JobEnded event arrives for a job with
// no start record. It indicates a broken event source.
var ErrJobNotStarted = errors.New("job ended without a start record")

type Config struct {
	ThemeName       string
	NoColor         bool
	Out             io.Writer        // defaults to os.Stdout
	Err             io.Writer        // defaults to os.Stderr
	Now             func() time.Time // defaults to time.Now
	ProtocolVersion string           // defaults to protocol.Version
	Logger          *zerolog.Logger  // defaults to a no-op logger
}

type ConsoleReporter struct {
	cfg    Config
	theme  render.Theme
	logger zerolog.Logger

	mu           sync.Mutex
	out          *lineWriter
	err          *lineWriter
	startTimes   map[event.JobID]time.Time
	testFailures map[event.JobID]struct{}
}

// New creates a reporter. It fails if the host's event protocol version is
// not accepted by the reporter.
func New(cfg Config) (*ConsoleReporter, error) {
	normalized := normalizeConfig(cfg)
	if err := protocol.Check(normalized.ProtocolVersion, protocol.ReporterRequirement); err != nil {
		return nil, fmt.Errorf("console reporter: %w", err)
	}

	renderer := render.NewRenderer(normalized.Out, normalized.NoColor)
	r := &ConsoleReporter{
		cfg:          normalized,
		theme:        render.ThemeByName(renderer, normalized.ThemeName),
		logger:       *normalized.Logger,
		out:          newLineWriter(normalized.Out),
		err:          newLineWriter(normalized.Err),
		startTimes:   make(map[event.JobID]time.Time),
		testFailures: make(map[event.JobID]struct{}),
	}
	r.logger.Debug().
		Str("theme", r.theme.Name).
		Bool("plain", render.IsPlain(renderer)).
		Str("protocol", normalized.ProtocolVersion).
		Msg("console reporter ready")
	return r, nil
}

// WithRenderer replaces the reporter's styles with the named theme built on
// renderer. Tests use it to force a color profile.
func (r *ConsoleReporter) WithRenderer(renderer *lipgloss.Renderer) *ConsoleReporter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.theme = render.ThemeByName(renderer, r.cfg.ThemeName)
	return r
}

// Handle processes one event. Events other than JobStarted, TestFailure and
// JobEnded are ignored. It is safe for concurrent use; each call completes
// its state update and output before the next one starts.
func (r *ConsoleReporter) Handle(ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case event.KindJobStarted:
		return r.handleStarted(ev.Job)
	case event.KindTestFailure:
		r.testFailures[ev.Job] = struct{}{}
		r.logger.Debug().Str("job", string(ev.Job)).Msg("test failure recorded")
		return nil
	case event.KindJobEnded:
		return r.handleEnded(ev.Job, ev.ReturnCode)
	default:
		return nil
	}
}

func (r *ConsoleReporter) handleStarted(id event.JobID) error {
	if _, ok := r.startTimes[id]; ok {
		r.logger.Debug().Str("job", string(id)).Msg("start record overwritten")
	}
	r.startTimes[id] = r.cfg.Now()
	return r.out.PrintLine(FormatStarted(r.theme, id))
}

func (r *ConsoleReporter) handleEnded(id event.JobID, rc int) error {
	started, ok := r.startTimes[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrJobNotStarted, id)
	}
	duration := render.FormatElapsed(r.cfg.Now().Sub(started))
	_, withTestFailures := r.testFailures[id]

	r.logger.Debug().
		Str("job", string(id)).
		Int("rc", rc).
		Str("duration", duration).
		Bool("test_failures", withTestFailures).
		Msg("job ended")

	switch rc {
	case 0:
		return r.out.PrintLine(FormatFinished(r.theme, id, duration, withTestFailures))
	case event.ReturnCodeInterrupted:
		return r.out.PrintLine(FormatAborted(r.theme, id, duration))
	default:
		return r.err.PrintLine(FormatFailed(r.theme, id, duration, rc))
	}
}

// HasStarted reports whether id has a start record. Records are kept after
// the job ends.
func (r *ConsoleReporter) HasStarted(id event.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.startTimes[id]
	return ok
}

// HasTestFailures reports whether id has reported a test failure.
func (r *ConsoleReporter) HasTestFailures(id event.JobID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.testFailures[id]
	return ok
}

func normalizeConfig(cfg Config) Config {
	normalized := cfg
	if normalized.Out == nil {
		normalized.Out = os.Stdout
	}
	if normalized.Err == nil {
		normalized.Err = os.Stderr
	}
	if normalized.Now == nil {
		normalized.Now = time.Now
	}
	if normalized.ProtocolVersion == "" {
		normalized.ProtocolVersion = protocol.Version
	}
	if normalized.Logger == nil {
		nop := zerolog.Nop()
		normalized.Logger = &nop
	}
	return normalized
}
