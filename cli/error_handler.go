package cli

import (
	"fmt"
	"os"

	"github.com/grovetools/batchssh/errors"
)

// ErrorHandler maps errors to user-facing messages and process exit codes.
// Messages go to stderr only; stdout belongs to the relayed stream.
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle prints a message for the error and returns the exit code the
// process should end with. A relay ExitCodeError is silent: the code is the
// spawned process's own and any diagnostic belongs to it.
func (h *ErrorHandler) Handle(err error) int {
	if err == nil {
		return 0
	}

	if exitErr, ok := err.(*ExitCodeError); ok {
		return exitErr.Code
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeUsage:
		fmt.Fprintf(os.Stderr, "batchssh: %s\n", message(err))
		fmt.Fprintf(os.Stderr, "usage: batchssh [ssh-options] JDL:<descriptor-path> [command ...]\n")

	case errors.ErrCodeDescriptorNotFound:
		fmt.Fprintf(os.Stderr, "batchssh: %s\n", message(err))

	case errors.ErrCodeDescriptorParse:
		fmt.Fprintf(os.Stderr, "batchssh: %s\n", message(err))
		if batchErr, ok := err.(*errors.BatchError); ok {
			fmt.Fprintf(os.Stderr, "Check the descriptor with 'condor_submit -dry-run /dev/null %s'\n",
				batchErr.Details["path"])
		}

	case errors.ErrCodePollTimeout:
		fmt.Fprintf(os.Stderr, "batchssh: %s\n", message(err))
		fmt.Fprintf(os.Stderr, "The job stays queued; reconnecting later may attach to it once it starts.\n")

	case errors.ErrCodePollVanished, errors.ErrCodeJobUnrunnable,
		errors.ErrCodeBootstrapTimeout, errors.ErrCodeRelayExited:
		fmt.Fprintf(os.Stderr, "batchssh: %s\n", message(err))

	default:
		fmt.Fprintf(os.Stderr, "batchssh: error: %v\n", err)
	}

	if h.Verbose {
		if batchErr, ok := err.(*errors.BatchError); ok {
			fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", batchErr.ToJSON())
		}
	}
	return 1
}

// message strips the code prefix for display; the structured form is only
// shown in verbose mode.
func message(err error) string {
	if batchErr, ok := err.(*errors.BatchError); ok {
		return batchErr.Message
	}
	return err.Error()
}
