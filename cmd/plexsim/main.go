// Command plexsim generates rule-based reaction networks and simulates
// them stochastically.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/plexsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "plexsim:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
