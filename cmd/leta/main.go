// Command leta is both the daemon binary and its own CLI client: `leta
// daemon` runs the persistent session/dispatch core, and `leta
// calls`/`leta stop` are short-lived clients that dial its Unix
// socket. main hands off to cobra immediately, leaving all real work
// to the internal packages.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(exitCodeFor(err))
	}
}
