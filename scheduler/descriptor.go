// Package scheduler allocates and tracks the long-lived session job that
// batchssh attaches to. The batch system itself is an external collaborator
// reached through its command-line tools; this package owns descriptor
// preparation, submit-or-reuse idempotency, and the bounded wait for the
// job to start.
package scheduler

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/batchssh/errors"
)

// SessionMarkerAttr is the job attribute that flags a job as a batchssh
// editor session. It is both the dedup discriminator and the guard that
// keeps this tool from ever adopting a user's ordinary batch job.
const SessionMarkerAttr = "BatchSSHSession"

// SessionCommand is the executable override applied to every session
// descriptor. The user's payload is never run: the job only has to exist
// and idle so a shell can be attached to it.
var SessionCommand = []string{"/bin/sh", "-c", "while true; do sleep 600; done"}

var nonAlnumRun = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Descriptor is a user job description augmented for use as a session job.
// The user's own content is passed to the scheduler untouched; augmentation
// travels separately (see Client implementations).
type Descriptor struct {
	// Path is the descriptor file as named on the command line.
	Path string

	// Raw is the unmodified file content in the scheduler's native
	// description language. batchssh does not interpret it.
	Raw string

	// BatchName is the deterministic idempotency key derived from Path.
	BatchName string
}

// Prepare loads the job description at path and derives the session
// augmentation. The content is not parsed here; malformed descriptors are
// rejected by the scheduler's own parser at validation time so its
// diagnostic is preserved.
func Prepare(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.DescriptorNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDescriptorNotFound, "failed to read job description").
			WithDetail("path", path)
	}

	return &Descriptor{
		Path:      path,
		Raw:       string(data),
		BatchName: DeriveBatchName(path),
	}, nil
}

// DeriveBatchName maps a descriptor path to a stable batch name: the
// extension is stripped and every run of non-alphanumeric characters
// (path separators included) collapses to a single underscore.
func DeriveBatchName(path string) string {
	trimmed := strings.TrimSuffix(path, filepath.Ext(path))
	name := nonAlnumRun.ReplaceAllString(trimmed, "_")
	return strings.Trim(name, "_")
}
