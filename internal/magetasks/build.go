package magetasks

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/magefile/mage/sh"
)

// BuildAll builds the startend binary with version information.
func BuildAll() error {
	flags := ldflags(gitVersion(), gitCommit(), time.Now().UTC().Format(time.RFC3339))
	if err := sh.RunV("go", "build", "-ldflags", flags, "-o", BinPath, "./cmd/startend"); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	fmt.Printf("Built: %s\n", BinPath)
	return nil
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll("./bin"); err != nil {
		return err
	}
	return sh.Run("go", "clean", "-cache")
}

func ldflags(version, commit, date string) string {
	pkg := ModulePath + "/internal/version"
	return fmt.Sprintf("-s -w -X '%s.Version=%s' -X '%s.CommitHash=%s' -X '%s.BuildDate=%s'",
		pkg, version, pkg, commit, pkg, date)
}

func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty", "--match=v*")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimSpace(out)
}

func gitCommit() string {
	out, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil || strings.TrimSpace(out) == "" {
		return "unknown"
	}
	return strings.TrimSpace(out)
}
