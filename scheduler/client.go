package scheduler

import "context"

// Status is the lifecycle state of a session job as reported by the
// scheduler.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusHeld     Status = "held"
	StatusRemoved  Status = "removed"
	StatusComplete Status = "completed"
	StatusUnknown  Status = "unknown"

	// StatusVanished means the job is no longer in the queue at all, e.g.
	// it was removed externally while this tool was waiting on it.
	StatusVanished Status = "vanished"
)

// Active reports whether a job in this status can serve (or come to serve)
// as an attach target.
func (s Status) Active() bool {
	return s == StatusIdle || s == StatusRunning
}

// Job identifies one allocated session job in the scheduler.
type Job struct {
	// ID is the scheduler-assigned cluster identifier.
	ID string
	// BatchName is the idempotency key the job was submitted under.
	BatchName string
	// Status is the lifecycle state at query time.
	Status Status
}

// Client is the boundary to the batch scheduler collaborator. Production
// uses CondorClient; tests substitute in-memory fakes.
type Client interface {
	// Validate asks the scheduler's parser to check the descriptor without
	// queueing anything. A rejection carries the parser's own diagnostic.
	Validate(ctx context.Context, d *Descriptor) error

	// Submit queues the session job built from the descriptor and returns
	// its cluster identifier.
	Submit(ctx context.Context, d *Descriptor) (string, error)

	// FindActive returns the session jobs matching the batch name and the
	// session marker whose status is still Idle or Running.
	FindActive(ctx context.Context, batchName string) ([]Job, error)

	// Status reports the lifecycle state of a job, StatusVanished when the
	// queue no longer knows it.
	Status(ctx context.Context, id string) (Status, error)
}
