package errors

import (
	"fmt"
	"os/exec"
)

// Usage creates a command-surface usage error
func Usage(reason string) *BatchError {
	return New(ErrCodeUsage, reason)
}

// DescriptorNotFound creates an error for a missing job-description file
func DescriptorNotFound(path string) *BatchError {
	return New(ErrCodeDescriptorNotFound, fmt.Sprintf("job description not found: %s", path)).
		WithDetail("path", path)
}

// DescriptorParse creates an error for a malformed job description. The
// diagnostic is the scheduler parser's own output and is preserved verbatim.
func DescriptorParse(path string, diagnostic string) *BatchError {
	return New(ErrCodeDescriptorParse,
		fmt.Sprintf("job description %s rejected by scheduler: %s", path, diagnostic)).
		WithDetail("path", path).
		WithDetail("diagnostic", diagnostic)
}

// SubmitFailed creates a job submission failure error
func SubmitFailed(batchName string, err error) *BatchError {
	batchErr := Wrap(err, ErrCodeSubmitFailed,
		fmt.Sprintf("failed to submit session job '%s'", batchName)).
		WithDetail("batchName", batchName)

	if exitErr, ok := err.(*exec.ExitError); ok {
		batchErr = batchErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return batchErr
}

// QueryFailed creates a scheduler query failure error
func QueryFailed(err error) *BatchError {
	return Wrap(err, ErrCodeQueryFailed, "scheduler query failed")
}

// PollTimeout creates an error for a job that never reached the running
// state within the wait bound. The job is left in the queue.
func PollTimeout(jobID string, maxWait string) *BatchError {
	return New(ErrCodePollTimeout,
		fmt.Sprintf("job %s did not start within %s (job left in queue)", jobID, maxWait)).
		WithDetail("jobID", jobID).
		WithDetail("maxWait", maxWait)
}

// PollVanished creates an error for a job that disappeared from the queue
func PollVanished(jobID string) *BatchError {
	return New(ErrCodePollVanished,
		fmt.Sprintf("job %s disappeared from the queue while waiting for it to start", jobID)).
		WithDetail("jobID", jobID)
}

// JobUnrunnable creates an error for a job in a state it cannot start from
func JobUnrunnable(jobID string, status string) *BatchError {
	return New(ErrCodeJobUnrunnable,
		fmt.Sprintf("job %s is %s and will not start", jobID, status)).
		WithDetail("jobID", jobID).
		WithDetail("status", status)
}

// RelaySpawn creates an error for a relay process that could not be started
func RelaySpawn(binary string, err error) *BatchError {
	return Wrap(err, ErrCodeRelaySpawn, fmt.Sprintf("failed to start relay '%s'", binary)).
		WithDetail("binary", binary)
}

// BootstrapTimeout creates an error for a handshake stage that never
// confirmed within the probe retry budget
func BootstrapTimeout(stage string, attempts int) *BatchError {
	return New(ErrCodeBootstrapTimeout,
		fmt.Sprintf("remote shell did not confirm %s after %d probes", stage, attempts)).
		WithDetail("stage", stage).
		WithDetail("attempts", attempts)
}

// RelayExited creates an error for a relay process that died mid-handshake
func RelayExited(stage string, exitCode int) *BatchError {
	return New(ErrCodeRelayExited,
		fmt.Sprintf("relay process exited during %s (exit code %d)", stage, exitCode)).
		WithDetail("stage", stage).
		WithDetail("exitCode", exitCode)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *BatchError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}
