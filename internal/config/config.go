package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up in the working
// directory and the user config directory.
const FileName = ".startend.yaml"

// ErrInvalidJob is returned for job definitions that cannot be run.
var ErrInvalidJob = errors.New("invalid job")

// CliFlags holds the values of command-line flags.
type CliFlags struct {
	ConfigPath  string
	ThemeName   string
	NoColor     bool
	CI          bool
	Debug       bool
	ShowOutput  string // on-fail, always or never; empty means unset
	MaxParallel int
	Jobs        []JobConfig // ad-hoc jobs from --job

	// Flags to track if they were explicitly set by the user
	NoColorSet     bool
	CISet          bool
	DebugSet       bool
	MaxParallelSet bool
}

// JobConfig describes one job in .startend.yaml.
type JobConfig struct {
	Name     string   `yaml:"name"`
	Command  string   `yaml:"command"`
	Args     []string `yaml:"args,omitempty"`
	Dir      string   `yaml:"dir,omitempty"`
	Env      []string `yaml:"env,omitempty"`
	TestJSON bool     `yaml:"test_json,omitempty"`
}

// AppConfig represents the contents of .startend.yaml.
type AppConfig struct {
	Theme       string      `yaml:"theme,omitempty"`
	NoColor     bool        `yaml:"no_color"`
	CI          bool        `yaml:"ci"`
	Debug       bool        `yaml:"debug"`
	ShowOutput  string      `yaml:"show_output,omitempty"` // on-fail, always or never
	MaxParallel int         `yaml:"max_parallel,omitempty"` // 0 means one job per CPU
	Jobs        []JobConfig `yaml:"jobs,omitempty"`
}

// Constants for default values.
const (
	DefaultThemeName   = "default"
	DefaultShowOutput  = "on-fail"
	DefaultMaxParallel = 0
)

// Defaults returns the configuration used when no file is found.
func Defaults() *AppConfig {
	return &AppConfig{
		Theme:       DefaultThemeName,
		ShowOutput:  DefaultShowOutput,
		MaxParallel: DefaultMaxParallel,
	}
}

// LoadFile reads and validates the configuration at path.
func LoadFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Theme == "" {
		cfg.Theme = DefaultThemeName
	}
	if err := ValidateJobs(cfg.Jobs); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig loads the discovered .startend.yaml. A missing file yields the
// defaults; an unreadable or invalid one is logged and also yields the
// defaults. The returned path is empty when no file was used.
func LoadConfig(log zerolog.Logger) (*AppConfig, string) {
	path := getConfigPath()
	if path == "" {
		log.Debug().Msg("no config file found, using defaults")
		return Defaults(), ""
	}

	cfg, err := LoadFile(path)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring config file")
		return Defaults(), ""
	}
	log.Debug().Str("path", path).Int("jobs", len(cfg.Jobs)).Msg("loaded config")
	return cfg, path
}

// getConfigPath tries to find the configuration file.
// It checks local directory first, then the user config directory.
func getConfigPath() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}

	configHome, err := os.UserConfigDir()
	// An empty or root config dir is not usable.
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "startend", FileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}

// ValidateJobs checks that every job has a unique non-empty name and a
// command.
func ValidateJobs(jobs []JobConfig) error {
	seen := make(map[string]bool, len(jobs))
	for i, job := range jobs {
		name := strings.TrimSpace(job.Name)
		if name == "" {
			return fmt.Errorf("%w: job %d has no name", ErrInvalidJob, i)
		}
		if strings.TrimSpace(job.Command) == "" {
			return fmt.Errorf("%w: job %q has no command", ErrInvalidJob, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate job name %q", ErrInvalidJob, name)
		}
		seen[name] = true
	}
	return nil
}

// ParseJobFlag parses a --job value of the form name=command args...
// The command is split on whitespace; use the config file for commands that
// need quoting.
func ParseJobFlag(value string) (JobConfig, error) {
	name, command, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	fields := strings.Fields(command)
	if !ok || name == "" || len(fields) == 0 {
		return JobConfig{}, fmt.Errorf("%w: %q is not name=command", ErrInvalidJob, value)
	}
	return JobConfig{Name: name, Command: fields[0], Args: fields[1:]}, nil
}
