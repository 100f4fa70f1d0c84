// Package config handles configuration loading and merging for startend.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--no-color, --ci, --theme, --debug, etc.)
//  2. Environment variables (STARTEND_NO_COLOR, NO_COLOR, STARTEND_CI, CI, STARTEND_THEME, STARTEND_DEBUG, STARTEND_SHOW_OUTPUT)
//  3. YAML config file (.startend.yaml in local directory or ~/.config/startend/.startend.yaml)
//  4. Hardcoded defaults
//
// # CI Mode Behavior
//
// When CI mode is enabled (via --ci flag, CI=true env var, or ci: true in YAML)
// colors are disabled.
//
// # Job Output
//
// show_output (--show-output, STARTEND_SHOW_OUTPUT) selects which job output
// is printed: on-fail (the default) prints a job's output after it fails,
// always streams it as it arrives, never suppresses it.
//
// # Jobs
//
// Jobs come from the jobs list in the file followed by --job flags. Every
// job needs a unique name and a command:
//
//	jobs:
//	  - name: unit
//	    command: go
//	    args: [test, -json, ./...]
//	    test_json: true
package config
