// Package relay owns the attach path: it spawns the scheduler's job-attach
// binary, drives its raw interactive TTY shell into a clean nested non-TTY
// shell through a two-stage sentinel handshake, and then relays the user's
// standard streams transparently until the process exits.
package relay

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Stage is the shell-readiness state of the attach handshake.
type Stage int32

const (
	// StageNotStarted: the relay's raw interactive shell has not yet
	// confirmed it executes input.
	StageNotStarted Stage = iota

	// StageInteractiveReady: the raw shell echoed the first sentinel, so it
	// interprets commands. Echo is then disabled and the nested non-TTY
	// shell launched.
	StageInteractiveReady

	// StageTargetShellReady: the nested shell echoed the second sentinel.
	// From here both pumps are transparent byte relays. Terminal stage.
	StageTargetShellReady
)

func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not started"
	case StageInteractiveReady:
		return "interactive shell ready"
	case StageTargetShellReady:
		return "target shell ready"
	default:
		return fmt.Sprintf("stage(%d)", int32(s))
	}
}

// bootstrapState is the single piece of state shared between the two pumps.
// Only the output pump advances it; the input pump reads it. The atomic
// gives the store/load ordering the cross-goroutine handoff needs.
type bootstrapState struct {
	v atomic.Int32
}

func (b *bootstrapState) current() Stage {
	return Stage(b.v.Load())
}

// advance moves the state forward monotonically; a transition to an earlier
// or equal stage is a no-op.
func (b *bootstrapState) advance(to Stage) bool {
	for {
		cur := b.v.Load()
		if cur >= int32(to) {
			return false
		}
		if b.v.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}

// Handshake sentinels. Each marker is produced by command substitution so
// it can only appear in the output stream as the result of a shell actually
// executing the probe; a mere echo of the probe text never contains it.
const (
	interactiveSentinel = "bssh-interactive-up"
	targetSentinel      = "bssh-target-up"
)

// enterTargetShell disables the raw shell's local echo and replaces it with
// a plain non-TTY shell reading the remainder of the input stream.
const enterTargetShell = "stty -echo; exec /bin/sh -s\n"

// sentinelProbe builds the probe command for a marker, splitting it so the
// command text itself never contains the marker.
func sentinelProbe(marker string) string {
	head, tail, _ := strings.Cut(marker, "-")
	return fmt.Sprintf("echo %s-$(echo %s)\n", head, tail)
}
