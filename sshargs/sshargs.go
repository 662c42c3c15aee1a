// Package sshargs classifies the argv of an emulated ssh invocation.
//
// IDE remote tooling invokes batchssh exactly as it would invoke ssh, so the
// argument surface cannot be parsed with a flag library: every token that is
// not ours must reach the relay binary byte-for-byte. The one token batchssh
// owns carries the job-description path behind a reserved prefix.
package sshargs

import (
	"strings"

	"github.com/grovetools/batchssh/errors"
)

// DescriptorPrefix marks the argv token carrying the job-description path.
const DescriptorPrefix = "JDL:"

// versionProbeFlag is special-cased: IDE ssh drivers run `ssh -V` before
// anything else and expect the real client's banner and exit code.
const versionProbeFlag = "-V"

// Invocation is the classified form of an emulated ssh argv.
type Invocation struct {
	// TransportArgs are the tokens before the descriptor token, passed to
	// the relay binary unmodified.
	TransportArgs []string

	// DescriptorPath is the job-description path carried by the reserved
	// prefix token.
	DescriptorPath string

	// RemoteArgs are the tokens after the descriptor token. They are
	// recorded but never forwarded: a remote command would suppress the
	// attach tool's enter-the-job-workspace behavior.
	RemoteArgs []string

	// VersionProbe is set when the argv contains the version probe flag;
	// the whole invocation must then be delegated to the real ssh client.
	VersionProbe bool
}

// Parse classifies argv. Exactly one descriptor token is required unless the
// version probe flag is present, in which case nothing else is interpreted.
func Parse(argv []string) (*Invocation, error) {
	inv := &Invocation{}

	// Only transport tokens can carry the probe flag: a -V after the
	// descriptor token belongs to the remote command.
	for _, arg := range argv {
		if strings.HasPrefix(arg, DescriptorPrefix) {
			break
		}
		if arg == versionProbeFlag {
			inv.VersionProbe = true
			return inv, nil
		}
	}

	seen := false
	for _, arg := range argv {
		if strings.HasPrefix(arg, DescriptorPrefix) {
			if seen {
				return nil, errors.Usage("more than one " + DescriptorPrefix + " token in the command line")
			}
			seen = true
			inv.DescriptorPath = strings.TrimPrefix(arg, DescriptorPrefix)
			continue
		}
		if seen {
			inv.RemoteArgs = append(inv.RemoteArgs, arg)
		} else {
			inv.TransportArgs = append(inv.TransportArgs, arg)
		}
	}

	if !seen {
		return nil, errors.Usage("no " + DescriptorPrefix + "<path> token in the command line")
	}
	if inv.DescriptorPath == "" {
		return nil, errors.Usage(DescriptorPrefix + " token carries an empty path")
	}

	return inv, nil
}
