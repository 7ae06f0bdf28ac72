package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leta-lsp/leta/internal/config"
	"github.com/leta-lsp/leta/internal/daemon"
	"github.com/leta-lsp/leta/internal/dispatcher"
	"github.com/leta-lsp/leta/internal/langid"
	"github.com/leta-lsp/leta/internal/session"
)

// NewDaemonCommand creates the `leta daemon` command: translate
// SIGINT/SIGTERM into context cancellation, then run the socket-facing
// daemon through its graceful shutdown sequence.
func NewDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Start the persistent session/dispatch daemon",
		Long: `Start the leta daemon: a persistent process that spawns, initializes,
and multiplexes LSP server subprocesses on behalf of short-lived
CLI clients, binding a Unix-domain socket at $HOME/.cache/leta/daemon.sock.`,
		RunE: runDaemon,
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("load config: %w", err)}
	}

	if err := config.EnsureCacheDir(); err != nil {
		return &exitError{code: exitInternalError, err: fmt.Errorf("prepare cache dir: %w", err)}
	}

	sessions := session.NewRegistry(session.ClientOptions{
		Locator:            cfg,
		InitTimeout:        cfg.InitTimeout,
		ShutdownTimeout:    cfg.ShutdownTimeout,
		DevelopmentLogging: cfg.DevelopmentLogging,
	})

	d := dispatcher.New()
	d.Register("calls", (&dispatcher.CallsService{
		Sessions:        sessions,
		Detector:        langid.NewByExtension(),
		DefaultMaxDepth: cfg.DefaultMaxDepth,
	}).Handle)

	daemonProc := daemon.New(daemon.Options{
		SocketPath: config.SocketPath(),
		PIDPath:    config.PIDPath(),
	}, d, sessions)

	if err := daemonProc.Listen(); err != nil {
		code := exitInternalError
		switch {
		case errors.Is(err, daemon.ErrPIDConflict):
			code = exitPIDConflict
		case errors.Is(err, daemon.ErrSocketBind):
			code = exitSocketBindFailure
		}
		return &exitError{code: code, err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- daemonProc.Serve(ctx) }()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return &exitError{code: exitInternalError, err: err}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout*2)
	defer shutdownCancel()
	return daemonProc.Shutdown(shutdownCtx)
}
