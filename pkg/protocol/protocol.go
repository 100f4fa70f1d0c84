// Package protocol checks event-handler protocol compatibility between a
// host dispatcher and the handlers it loads.
package protocol

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is the event-handler protocol version spoken by this host.
const Version = "1.0.0"

// ReporterRequirement is the protocol range the console reporter accepts.
const ReporterRequirement = "^1.0"

// ErrIncompatible is returned when a host version does not satisfy a
// handler's requirement.
var ErrIncompatible = errors.New("incompatible event protocol version")

// Check reports whether version satisfies constraint.
func Check(version, constraint string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: parsing version %q: %w", ErrIncompatible, version, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("%w: parsing constraint %q: %w", ErrIncompatible, constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrIncompatible, v, constraint)
	}
	return nil
}
