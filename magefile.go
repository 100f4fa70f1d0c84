//go:build mage

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/magefile/mage/mg"

	"github.com/dkoosis/startend/internal/magetasks"
)

// Default target - build the binary
var Default = Build

func init() {
	if err := magetasks.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}
}

// Build builds the startend binary
func Build() error {
	return magetasks.BuildAll()
}

// Clean removes build artifacts
func Clean() error {
	return magetasks.Clean()
}

// QA runs vet, linters, tests and build as concurrent jobs
func QA(ctx context.Context) error {
	return magetasks.DefaultRunner().Run(ctx, magetasks.QATasks()...)
}

// Lint runs go vet and the installed linters
func Lint(ctx context.Context) error {
	return magetasks.DefaultRunner().Run(ctx, magetasks.VetTasks()...)
}

// Test namespace for test commands
type Test mg.Namespace

// All runs all tests
func (Test) All(ctx context.Context) error {
	return magetasks.DefaultRunner().Run(ctx, magetasks.TestTask(false))
}

// Race runs all tests with the race detector
func (Test) Race(ctx context.Context) error {
	return magetasks.DefaultRunner().Run(ctx, magetasks.TestTask(true))
}
