package version

import (
	"fmt"

	"github.com/dkoosis/startend/pkg/protocol"
)

// These variables are populated by the Go linker (LDFLAGS) at build time.
var (
	Version    = "dev"     // Default value if not built with LDFLAGS
	CommitHash = "unknown" // Default value
	BuildDate  = "unknown" // Default value
)

// String describes the build and the event protocol it speaks.
func String() string {
	return fmt.Sprintf("startend %s (commit %s, built %s, event protocol %s)",
		Version, CommitHash, BuildDate, protocol.Version)
}
