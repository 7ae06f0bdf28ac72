package main

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// exitCode identifies a known daemon-facing exit condition so main can
// translate it to a process exit status: 0 on clean shutdown,
// non-zero on socket-bind failure, PID-file conflict, or an
// unrecoverable internal error.
type exitCode int

const (
	exitOK exitCode = iota
	exitSocketBindFailure
	exitPIDConflict
	exitInternalError
)

// exitError pairs an error with the exit code main should use.
type exitError struct {
	code exitCode
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) int {
	if err == nil {
		return int(exitOK)
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return int(ee.code)
	}
	return int(exitInternalError)
}

// NewRootCommand builds the leta command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leta",
		Short: "Multiplexing LSP daemon and client",
		Long: color.CyanString(`leta multiplexes Language Server Protocol backends behind a
single persistent daemon, so short-lived CLI invocations never pay a
language server's cold-start cost twice.

  leta daemon   start the persistent session/dispatch core
  leta calls    ask a call-hierarchy question against the running daemon
  leta stop     shut the daemon down gracefully`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewDaemonCommand())
	rootCmd.AddCommand(NewCallsCommand())
	rootCmd.AddCommand(NewStopCommand())
	return rootCmd
}
