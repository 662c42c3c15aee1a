// Package cli wires the batchssh invocation end to end: argv
// classification, configuration, session job allocation, relay spawn, and
// the handshake-then-relay session.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grovetools/batchssh/command"
	"github.com/grovetools/batchssh/config"
	"github.com/grovetools/batchssh/errors"
	"github.com/grovetools/batchssh/logging"
	"github.com/grovetools/batchssh/relay"
	"github.com/grovetools/batchssh/scheduler"
	"github.com/grovetools/batchssh/sshargs"
	"github.com/grovetools/batchssh/util/pathutil"
)

// ExitCodeError carries a process exit code through the cobra error path
// without a diagnostic of its own: the relay's exit code must reach the
// invoking client unchanged.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// NewRootCommand builds the batchssh root command. Flag parsing is
// disabled: the argv emulates an ssh client invocation, and every token
// batchssh does not own must reach the relay binary verbatim.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batchssh [ssh-options] " + sshargs.DescriptorPrefix + "<descriptor-path> [command ...]",
		Short: "Attach ssh-driven IDE tooling to a batch-scheduled worker session",
		Long: `batchssh stands in for an ssh client. It allocates (or reuses) a
long-lived session job built from the given job description, waits for the
scheduler to start it, attaches through the scheduler's job-attach tool, and
turns the resulting interactive shell into a clean non-interactive one
before relaying the caller's streams to it.`,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(c *cobra.Command, args []string) error {
			return run(c.Context(), args)
		},
	}
	return cmd
}

func run(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	inv, err := sshargs.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}
	logging.Apply(cfg.Logging)
	log := logging.NewLogger("batchssh")

	executor := &command.RealExecutor{}

	// The IDE's ssh driver probes the client version before doing anything
	// else and must see the real client's banner and exit code.
	if inv.VersionProbe {
		return delegateToTransport(executor, cfg.Transport.SSHBinary, args)
	}

	if len(inv.RemoteArgs) > 0 {
		// Deliberately dropped: forwarding a remote command would disable
		// the attach tool's enter-the-job-workspace behavior.
		log.WithField("command", inv.RemoteArgs).Debug("Discarding remote command tokens")
	}

	client := scheduler.NewCondorClient(executor, cfg.Scheduler)
	manager := scheduler.NewManager(client, cfg.Scheduler)

	descriptorPath, err := pathutil.Expand(inv.DescriptorPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDescriptorNotFound, "cannot resolve descriptor path")
	}

	descriptor, err := manager.PrepareDescriptor(ctx, descriptorPath)
	if err != nil {
		return err
	}

	jobID, err := manager.SubmitOrReuse(ctx, descriptor)
	if err != nil {
		return err
	}

	if err := manager.WaitUntilRunning(ctx, jobID); err != nil {
		return err
	}

	relayArgs := append(append([]string{}, inv.TransportArgs...), jobID)
	proc, err := relay.Spawn(ctx, executor, cfg.Scheduler.AttachBinary, relayArgs)
	if err != nil {
		return err
	}

	session := relay.NewSession(proc, os.Stdin, os.Stdout, cfg.Bootstrap)
	code, err := session.Run()
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitCodeError{Code: code}
	}
	return nil
}
