package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/batchssh/config"
	"github.com/grovetools/batchssh/errors"
	"github.com/grovetools/batchssh/logging"
)

// Manager owns the session job lifecycle on top of a scheduler Client:
// descriptor preparation, idempotent allocation, and the bounded wait for
// the job to start running.
type Manager struct {
	client       Client
	pollInterval time.Duration
	maxWait      time.Duration
	log          *logrus.Entry
}

// NewManager creates a Manager polling with the configured bounds.
func NewManager(client Client, cfg config.SchedulerConfig) *Manager {
	return &Manager{
		client:       client,
		pollInterval: cfg.PollInterval(),
		maxWait:      cfg.MaxWait(),
		log:          logging.NewLogger("scheduler"),
	}
}

// PrepareDescriptor loads and validates the job description at path.
func (m *Manager) PrepareDescriptor(ctx context.Context, path string) (*Descriptor, error) {
	d, err := Prepare(path)
	if err != nil {
		return nil, err
	}
	if err := m.client.Validate(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// SubmitOrReuse returns the id of an existing active session job under the
// descriptor's batch name, submitting a new one only when none exists.
// Re-running the tool against the same descriptor therefore attaches to the
// same job instead of allocating a duplicate.
//
// More than one active match is an anomaly, not a failure: it is logged and
// the first job is used.
func (m *Manager) SubmitOrReuse(ctx context.Context, d *Descriptor) (string, error) {
	jobs, err := m.client.FindActive(ctx, d.BatchName)
	if err != nil {
		return "", err
	}

	if len(jobs) > 0 {
		if len(jobs) > 1 {
			ids := make([]string, len(jobs))
			for i, j := range jobs {
				ids[i] = j.ID
			}
			m.log.WithFields(logrus.Fields{
				"batchName": d.BatchName,
				"jobs":      ids,
			}).Warn("Multiple active session jobs match this descriptor; using the first")
		}
		m.log.WithFields(logrus.Fields{
			"batchName": d.BatchName,
			"jobID":     jobs[0].ID,
			"status":    jobs[0].Status,
		}).Info("Reusing existing session job")
		return jobs[0].ID, nil
	}

	id, err := m.client.Submit(ctx, d)
	if err != nil {
		return "", err
	}
	m.log.WithFields(logrus.Fields{
		"batchName": d.BatchName,
		"jobID":     id,
	}).Info("Submitted session job")
	return id, nil
}

// WaitUntilRunning polls the job status at the configured interval until it
// is running. It fails when the job vanishes from the queue, enters a state
// it cannot start from, or is still idle when the wait bound elapses. On
// timeout the job is left in the queue: it may still be consumed by a later
// invocation.
func (m *Manager) WaitUntilRunning(ctx context.Context, id string) error {
	deadline := time.Now().Add(m.maxWait)

	for {
		status, err := m.client.Status(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case status == StatusRunning:
			m.log.WithField("jobID", id).Info("Session job is running")
			return nil
		case status == StatusVanished:
			return errors.PollVanished(id)
		case !status.Active():
			return errors.JobUnrunnable(id, string(status))
		}

		if time.Now().After(deadline) {
			return errors.PollTimeout(id, m.maxWait.String())
		}

		m.log.WithFields(logrus.Fields{
			"jobID":  id,
			"status": status,
		}).Debug("Waiting for session job to start")

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodePollTimeout, "wait for session job interrupted")
		case <-time.After(m.pollInterval):
		}
	}
}
