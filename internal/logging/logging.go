// Package logging centralizes the daemon's two logger constructors so
// the rest of the tree never builds a zap or stdlib logger ad hoc.
//
// Daemon-lifecycle logging (session create/evict, child spawn/exit,
// socket accept loop, shutdown) uses the standard log package with a
// contextual prefix. The jsonrpc2.Conn wrapping each spawned LSP
// subprocess logs through zap instead, because that is the logger type
// go.lsp.dev/protocol's dispatchers require.
package logging

import (
	"log"
	"os"

	"go.uber.org/zap"
)

// New returns a standard-library logger with the given prefix,
// writing to stderr.
func New(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags)
}

// NewRPCLogger returns the zap logger passed to the jsonrpc2 handler
// for one spawned LSP child. Falls back to a no-op logger if zap
// construction fails, so a logging failure never prevents the daemon
// from talking to the language server.
func NewRPCLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
