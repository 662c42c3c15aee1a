package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/batchssh/version"
)

// NewVersionCommand creates the batchssh version command. The emulated ssh
// surface is flag-opaque, so batchssh's own version lives behind a
// subcommand instead of a flag.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the batchssh version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String())
		},
	}
}
