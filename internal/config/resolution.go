package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dkoosis/startend/internal/runner"
	"github.com/dkoosis/startend/pkg/render"
)

// Sources recorded in Resolved for debugging.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// Resolved holds the final configuration after applying all priority rules.
type Resolved struct {
	ThemeName   string
	NoColor     bool
	CI          bool
	Debug       bool
	ShowOutput  string
	MaxParallel int
	Jobs        []JobConfig // file jobs followed by ad-hoc jobs

	// Resolution metadata (for debugging)
	ConfigPath    string
	ThemeSource   string
	NoColorSource string
	CISource      string
	DebugSource   string
}

// Resolve merges CLI flags, environment variables, the config file and
// defaults, in that order of priority.
//
// An explicit --config path must load; a discovered file that fails to load
// is logged and ignored.
func Resolve(flags CliFlags, log zerolog.Logger) (*Resolved, error) {
	var (
		appCfg *AppConfig
		path   string
	)
	if flags.ConfigPath != "" {
		cfg, err := LoadFile(flags.ConfigPath)
		if err != nil {
			return nil, err
		}
		appCfg, path = cfg, flags.ConfigPath
	} else {
		appCfg, path = LoadConfig(log)
	}

	fileSource := SourceFile
	if path == "" {
		fileSource = SourceDefault
	}

	resolved := &Resolved{
		ThemeName:     appCfg.Theme,
		NoColor:       appCfg.NoColor,
		CI:            appCfg.CI,
		Debug:         appCfg.Debug,
		ShowOutput:    appCfg.ShowOutput,
		MaxParallel:   appCfg.MaxParallel,
		ConfigPath:    path,
		ThemeSource:   fileSource,
		NoColorSource: fileSource,
		CISource:      fileSource,
		DebugSource:   fileSource,
	}

	// Theme: CLI > ENV > file > default
	switch {
	case flags.ThemeName != "":
		resolved.ThemeName = flags.ThemeName
		resolved.ThemeSource = SourceCLI
	case os.Getenv("STARTEND_THEME") != "":
		resolved.ThemeName = os.Getenv("STARTEND_THEME")
		resolved.ThemeSource = SourceEnv
	}

	if flags.NoColorSet {
		resolved.NoColor = flags.NoColor
		resolved.NoColorSource = SourceCLI
	} else if v := getEnvBool("STARTEND_NO_COLOR", "NO_COLOR"); v != nil {
		resolved.NoColor = *v
		resolved.NoColorSource = SourceEnv
	}

	if flags.CISet {
		resolved.CI = flags.CI
		resolved.CISource = SourceCLI
	} else if v := getEnvBool("STARTEND_CI", "CI"); v != nil {
		resolved.CI = *v
		resolved.CISource = SourceEnv
	}

	if flags.DebugSet {
		resolved.Debug = flags.Debug
		resolved.DebugSource = SourceCLI
	} else if v := getEnvBool("STARTEND_DEBUG"); v != nil {
		resolved.Debug = *v
		resolved.DebugSource = SourceEnv
	}

	switch {
	case flags.ShowOutput != "":
		resolved.ShowOutput = flags.ShowOutput
	case os.Getenv("STARTEND_SHOW_OUTPUT") != "":
		resolved.ShowOutput = os.Getenv("STARTEND_SHOW_OUTPUT")
	case resolved.ShowOutput == "":
		resolved.ShowOutput = DefaultShowOutput
	}
	if flags.MaxParallelSet {
		resolved.MaxParallel = flags.MaxParallel
	}

	// CI logs are read as plain text.
	if resolved.CI {
		resolved.NoColor = true
	}

	resolved.Jobs = append(slices.Clone(appCfg.Jobs), flags.Jobs...)

	if err := validateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Debug().
		Str("config", resolved.ConfigPath).
		Str("theme", resolved.ThemeName).
		Str("theme_source", resolved.ThemeSource).
		Bool("no_color", resolved.NoColor).
		Str("no_color_source", resolved.NoColorSource).
		Bool("ci", resolved.CI).
		Str("ci_source", resolved.CISource).
		Int("max_parallel", resolved.MaxParallel).
		Int("jobs", len(resolved.Jobs)).
		Msg("resolved config")
	return resolved, nil
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set, or a pointer to the boolean value.
func getEnvBool(keys ...string) *bool {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				return &b
			}
		}
	}
	return nil
}

func validateResolved(cfg *Resolved) error {
	if !slices.Contains(render.ThemeNames(), cfg.ThemeName) {
		return fmt.Errorf("unknown theme %q (available: %v)", cfg.ThemeName, render.ThemeNames())
	}
	if _, err := runner.ParseOutputMode(cfg.ShowOutput); err != nil {
		return fmt.Errorf("show_output: %w", err)
	}
	if cfg.MaxParallel < 0 {
		return fmt.Errorf("max_parallel must not be negative, got: %d", cfg.MaxParallel)
	}
	return ValidateJobs(cfg.Jobs)
}
