// Package version records the build identity of a batchssh binary.
package version

import (
	"fmt"
	"runtime"
)

// Stamped by the linker at release time, e.g.
// -ldflags "-X github.com/grovetools/batchssh/version.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// String returns the one-line banner printed by the version command.
func String() string {
	return fmt.Sprintf("batchssh %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
