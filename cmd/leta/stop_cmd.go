package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/leta-lsp/leta/internal/config"
)

type stopFlags struct {
	timeout time.Duration
}

// NewStopCommand creates the `leta stop` command.
func NewStopCommand() *cobra.Command {
	flags := &stopFlags{}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask the running daemon to shut down",
		Long: `Send SIGTERM to the daemon named by its PID file and wait for it to
release the PID file and socket, the same graceful-shutdown path a
Ctrl-C to the foregrounded daemon takes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd, flags)
		},
	}

	cmd.Flags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "how long to wait for the daemon to exit")
	return cmd
}

func runStop(cmd *cobra.Command, flags *stopFlags) error {
	pidPath := config.PIDPath()

	pid, err := readPID(pidPath)
	if err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("no daemon appears to be running (%s): %w", pidPath, err)}
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("find daemon process %d: %w", pid, err)}
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("signal daemon process %d: %w", pid, err)}
	}

	deadline := time.Now().Add(flags.timeout)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(pidPath); os.IsNotExist(err) {
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "daemon (pid %d) stopped\n", pid)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return &exitError{code: exitInternalError, err: fmt.Errorf("daemon (pid %d) did not stop within %s", pid, flags.timeout)}
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return pid, nil
}
