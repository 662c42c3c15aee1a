package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/batchssh/command"
	"github.com/grovetools/batchssh/config"
	"github.com/grovetools/batchssh/errors"
	"github.com/grovetools/batchssh/logging"
)

// condor JobStatus attribute values.
const (
	condorStatusIdle      = "1"
	condorStatusRunning   = "2"
	condorStatusRemoved   = "3"
	condorStatusCompleted = "4"
	condorStatusHeld      = "5"
)

// CondorClient talks to an HTCondor pool through its command-line tools.
type CondorClient struct {
	executor command.Executor
	cfg      config.SchedulerConfig
	log      *logrus.Entry
}

// NewCondorClient creates a client shelling out to the configured
// condor_submit/condor_q binaries.
func NewCondorClient(executor command.Executor, cfg config.SchedulerConfig) *CondorClient {
	return &CondorClient{
		executor: executor,
		cfg:      cfg,
		log:      logging.NewLogger("condor"),
	}
}

// augmentArgs are the submit-file overrides attached to every session job:
// the session marker, the deterministic batch name, and the no-op sleep
// loop replacing the user's payload.
func (c *CondorClient) augmentArgs(d *Descriptor) []string {
	quoted := make([]string, 0, len(SessionCommand)-1)
	for _, a := range SessionCommand[1:] {
		if strings.ContainsAny(a, " \t") {
			a = "'" + a + "'"
		}
		quoted = append(quoted, a)
	}
	arguments := strings.Join(quoted, " ")
	return []string{
		"-batch-name", d.BatchName,
		"-a", fmt.Sprintf("+%s = True", SessionMarkerAttr),
		"-a", fmt.Sprintf("executable = %s", SessionCommand[0]),
		"-a", fmt.Sprintf("arguments = \"%s\"", arguments),
		"-a", "transfer_executable = False",
	}
}

// Validate runs the scheduler parser in dry-run mode. Nothing is queued;
// a rejection surfaces condor_submit's own diagnostic verbatim.
func (c *CondorClient) Validate(ctx context.Context, d *Descriptor) error {
	args := append([]string{"-dry-run", "/dev/null"}, c.augmentArgs(d)...)
	args = append(args, d.Path)

	cmd := c.executor.CommandContext(ctx, c.cfg.SubmitBinary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return errors.DescriptorParse(d.Path, diagnostic)
	}
	return nil
}

// Submit queues the session job and returns its cluster identifier.
func (c *CondorClient) Submit(ctx context.Context, d *Descriptor) (string, error) {
	args := append([]string{"-terse"}, c.augmentArgs(d)...)
	args = append(args, d.Path)

	cmd := c.executor.CommandContext(ctx, c.cfg.SubmitBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.WithFields(logrus.Fields{
		"batchName":  d.BatchName,
		"descriptor": d.Path,
	}).Debug("Submitting session job")

	if err := cmd.Run(); err != nil {
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic != "" {
			return "", errors.SubmitFailed(d.BatchName, fmt.Errorf("%s", diagnostic))
		}
		return "", errors.SubmitFailed(d.BatchName, err)
	}

	id := parseTerseSubmit(stdout.String())
	if id == "" {
		return "", errors.SubmitFailed(d.BatchName,
			fmt.Errorf("could not find a cluster id in submit output %q", strings.TrimSpace(stdout.String())))
	}
	return id, nil
}

// parseTerseSubmit extracts the cluster id from condor_submit -terse output,
// which looks like "123.0 - 123.0".
func parseTerseSubmit(out string) string {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return ""
	}
	id, _, found := strings.Cut(fields[0], ".")
	if !found {
		return fields[0]
	}
	return id
}

// FindActive queries the queue for session jobs under the batch name that
// are still idle or running.
func (c *CondorClient) FindActive(ctx context.Context, batchName string) ([]Job, error) {
	constraint := fmt.Sprintf("%s =?= True && JobBatchName == %q && (JobStatus == %s || JobStatus == %s)",
		SessionMarkerAttr, batchName, condorStatusIdle, condorStatusRunning)

	cmd := c.executor.CommandContext(ctx, c.cfg.QueryBinary,
		"-constraint", constraint, "-af", "ClusterId", "JobStatus")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.QueryFailed(fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err))
	}

	var jobs []Job
	seen := make(map[string]bool)
	for _, line := range strings.Split(stdout.String(), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		id := fields[0]
		if seen[id] {
			// Multi-proc clusters report one line per proc; the attach
			// target is the cluster.
			continue
		}
		seen[id] = true
		jobs = append(jobs, Job{
			ID:        id,
			BatchName: batchName,
			Status:    statusFromCondor(fields[1]),
		})
	}
	return jobs, nil
}

// Status reports the lifecycle state of a job, StatusVanished when the
// queue has no row for it anymore.
func (c *CondorClient) Status(ctx context.Context, id string) (Status, error) {
	cmd := c.executor.CommandContext(ctx, c.cfg.QueryBinary, id, "-af", "JobStatus")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return StatusUnknown, errors.QueryFailed(fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return StatusVanished, nil
	}
	return statusFromCondor(strings.Fields(out)[0]), nil
}

func statusFromCondor(code string) Status {
	switch code {
	case condorStatusIdle:
		return StatusIdle
	case condorStatusRunning:
		return StatusRunning
	case condorStatusRemoved:
		return StatusRemoved
	case condorStatusCompleted:
		return StatusComplete
	case condorStatusHeld:
		return StatusHeld
	default:
		return StatusUnknown
	}
}
