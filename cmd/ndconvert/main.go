// Command ndconvert converts reconstructed flow files into chunked hit
// tables with Monte Carlo truth attached.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ndconvert/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
