package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/harrison/greenlight/internal/cmd"
)

// Exit codes. A rejected output is distinct from a review that could not
// run, so CI pipelines can gate on the verdict alone.
const (
	exitApproved    = 0
	exitNotApproved = 1
	exitError       = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := cmd.NewRootCommand()

	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, cmd.ErrNotApproved) {
		// Rejections already printed their verdict; only real failures
		// need reporting here.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitApproved
	case errors.Is(err, cmd.ErrNotApproved):
		return exitNotApproved
	default:
		return exitError
	}
}
