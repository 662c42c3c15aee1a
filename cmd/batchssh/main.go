package main

import (
	"os"

	"github.com/grovetools/batchssh/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()
	rootCmd.AddCommand(cli.NewVersionCommand())

	err := rootCmd.Execute()
	handler := cli.NewErrorHandler(os.Getenv("BATCHSSH_VERBOSE") == "true")
	os.Exit(handler.Handle(err))
}
