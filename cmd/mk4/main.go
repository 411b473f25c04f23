package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stderr))
}

// runCLI executes the root command and reports any failure on stderr.
// Cobra's own error printing is silenced, so this is the only place a
// fatal error reaches the user.
func runCLI(args []string, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}
