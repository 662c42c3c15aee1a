package cli

import (
	"os"
	"os/exec"

	"github.com/grovetools/batchssh/command"
	"github.com/grovetools/batchssh/errors"
)

// delegateToTransport runs the real ssh client synchronously with the
// original argv and mirrors its exit code.
func delegateToTransport(executor command.Executor, binary string, args []string) error {
	path, err := executor.LookPath(binary)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "ssh client '"+binary+"' not found").
			WithDetail("binary", binary)
	}

	cmd := executor.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ExitCodeError{Code: exitErr.ExitCode()}
		}
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to run ssh client '"+binary+"'")
	}
	return nil
}
