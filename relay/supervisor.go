package relay

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/batchssh/command"
	"github.com/grovetools/batchssh/errors"
	"github.com/grovetools/batchssh/logging"
)

// Process is the spawned relay as the pumps see it: two exclusive byte
// streams plus liveness and exit status. Production uses Supervisor; tests
// substitute synthetic processes built from in-memory pipes.
type Process interface {
	// Stdin is the process input stream. Written only by the input pump
	// (handshake probes included).
	Stdin() io.Writer

	// Stdout is the process output stream. Read only by the output pump.
	Stdout() io.Reader

	// Alive reports, without blocking, whether the process is still running.
	Alive() bool

	// ExitCode returns the exit code once the process has ended.
	ExitCode() int

	// WaitExit blocks until the process ends and returns its exit code.
	WaitExit() int

	// Terminate kills the process. Used only on fatal bootstrap failure;
	// in every other path the process ends on its own.
	Terminate()
}

// Supervisor owns the spawned relay process exclusively: nothing else reads
// its streams or observes its exit.
type Supervisor struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	done     chan struct{}
	exitCode atomic.Int32

	log *logrus.Entry
}

// Spawn starts the relay binary with its input and output redirected for
// the pumps. Stderr passes through so scheduler-side attach diagnostics
// stay visible to the user.
func Spawn(ctx context.Context, executor command.Executor, binary string, args []string) (*Supervisor, error) {
	cmd := executor.CommandContext(ctx, binary, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.RelaySpawn(binary, err)
	}

	// The stdout pipe is built here rather than with StdoutPipe: Wait
	// closes the pipes exec created, which would destroy trailing output
	// the process wrote just before exiting. With our own pipe the pump
	// reads to natural EOF regardless of when the process is reaped.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, errors.RelaySpawn(binary, err)
	}
	cmd.Stdout = stdoutW

	s := &Supervisor{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdoutR,
		done:   make(chan struct{}),
		log:    logging.NewLogger("relay"),
	}

	if err := cmd.Start(); err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, errors.RelaySpawn(binary, err)
	}

	// The child holds the only remaining write end; EOF now tracks the
	// process's own lifetime.
	stdoutW.Close()

	s.log.WithFields(logrus.Fields{
		"binary": binary,
		"pid":    cmd.Process.Pid,
	}).Debug("Relay process started")

	go s.reap()
	return s, nil
}

// reap waits for the process and publishes its exit code. The done channel
// closes only after the code is stored, so readers never observe a stale
// code.
func (s *Supervisor) reap() {
	err := s.cmd.Wait()

	code := 0
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	if code < 0 {
		// Killed by signal; there is no exit code to mirror.
		code = 1
	}
	if err != nil && s.cmd.ProcessState == nil {
		code = 1
	}

	s.exitCode.Store(int32(code))
	close(s.done)

	s.log.WithField("exitCode", code).Debug("Relay process exited")
}

// Stdin returns the process input stream.
func (s *Supervisor) Stdin() io.Writer { return s.stdin }

// Stdout returns the process output stream.
func (s *Supervisor) Stdout() io.Reader { return s.stdout }

// Alive reports whether the process is still running.
func (s *Supervisor) Alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the exit code, valid once Alive reports false.
func (s *Supervisor) ExitCode() int {
	return int(s.exitCode.Load())
}

// WaitExit blocks until the process ends and returns its exit code.
func (s *Supervisor) WaitExit() int {
	<-s.done
	return int(s.exitCode.Load())
}

// Terminate kills the relay process.
func (s *Supervisor) Terminate() {
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}
