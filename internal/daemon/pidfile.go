// Package daemon implements the persistent process: the Unix-domain
// socket listener CLI clients dial, the PID file that detects an
// already-running daemon, and the graceful-shutdown sequence that
// drains the session registry's spawned LSP children before exit.
package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile guards against two daemons racing for the same socket path.
type PIDFile struct {
	path string
}

// NewPIDFile returns a PIDFile at path, not yet written.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire writes the current process's PID to the file, refusing if a
// live process already owns it. A PID file pointing at a dead process
// is stale and is overwritten silently, after a liveness check.
func (p *PIDFile) Acquire() error {
	existing, err := readPID(p.path)
	if err == nil && processAlive(existing) {
		return fmt.Errorf("daemon already running with pid %d (%s)", existing, p.path)
	}

	return os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the PID file if it still names this process.
func (p *PIDFile) Release() error {
	pid, err := readPID(p.path)
	if err != nil {
		return nil
	}
	if pid != os.Getpid() {
		return nil
	}
	return os.Remove(p.path)
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

// processAlive reports whether pid names a live process, using the
// signal-0 probe: it delivers no signal but still fails with ESRCH if
// the process is gone.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
