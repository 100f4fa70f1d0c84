package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dkoosis/startend/pkg/event"
	"github.com/dkoosis/startend/pkg/reporter"
)

func newReplayCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f displayFlags
	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Render a recorded event stream",
		Long: `Reads NDJSON events written by 'startend run --record' from a file or
stdin and reports them in order. Durations reflect replay time, not the
original run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, log, err := resolve(f.cliFlags(cmd), stderr)
			if err != nil {
				return err
			}

			in := stdin
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return withCode(exitUsage, err)
				}
				defer file.Close()
				in = file
			}

			rep, err := reporter.New(reporter.Config{
				ThemeName: resolved.ThemeName,
				NoColor:   resolved.NoColor || !isTTYWriter(stdout),
				Out:       stdout,
				Err:       stderr,
				Logger:    &log,
			})
			if err != nil {
				return withCode(exitFailure, err)
			}
			if err := replay(in, rep, log); err != nil {
				return withCode(exitFailure, err)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// replay feeds recorded events to rep in order. Lines that are not events
// are skipped with a warning.
func replay(r io.Reader, rep *reporter.ConsoleReporter, log zerolog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev event.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("skipping malformed event")
			continue
		}
		if err := rep.Handle(ev); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading events: %w", err)
	}
	return nil
}
