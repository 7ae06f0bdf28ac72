// Package lspclient implements the LSP client handle: it couples a
// go.lsp.dev/jsonrpc2 connection to one spawned language server child
// process, owns the initialize/initialized handshake and the
// shutdown/exit sequence, and classifies method-not-found replies for
// callers.
//
// The subprocess-spawn-and-wrap-an-RPC-client shape is a mutex-guarded
// struct over an *exec.Cmd and an RPC connection, context.WithTimeout
// around each operation, and a bounded-grace-period kill-then-wait on
// Close. The handshake's request/reply traffic runs over the same
// go.lsp.dev/jsonrpc2 and go.lsp.dev/protocol stack an LSP server uses
// to answer a client, just driving it from the other end: this code
// is the client initiating requests, not the server answering them.
package lspclient

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/leta-lsp/leta/internal/fsuri"
	"github.com/leta-lsp/leta/internal/logging"
	"github.com/leta-lsp/leta/internal/rpcerr"
	"github.com/leta-lsp/leta/internal/transport"
)

// State is the LSP client handle's lifecycle state.
type State int

const (
	StateStarting State = iota
	StateInitialized
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateInitialized:
		return "initialized"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a spawned language server child process.
type Options struct {
	// Command and Args launch the language server, e.g.
	// ("gopls", []string{"serve"}) or ("rust-analyzer", nil).
	Command string
	Args    []string

	// WorkspaceRoot is the workspace this client's document set and
	// call-hierarchy results are scoped to.
	WorkspaceRoot string

	// InitTimeout bounds the initialize/initialized handshake.
	InitTimeout time.Duration

	// ShutdownTimeout bounds the shutdown/exit grace period before the
	// child is signal-terminated.
	ShutdownTimeout time.Duration

	// DevelopmentLogging selects zap.NewDevelopment vs NewProduction
	// for the per-client RPC logger.
	DevelopmentLogging bool
}

// Client is one spawned LSP server subprocess and its client-side
// bookkeeping.
type Client struct {
	opts Options

	cmd  *exec.Cmd
	conn jsonrpc2.Conn

	mu                 sync.Mutex
	state              State
	serverCapabilities *protocol.ServerCapabilities
	failErr            error

	ready    chan struct{}
	readyErr error

	logger *log.Logger
}

// New spawns the language server child process and performs the full
// initialize/initialized handshake before returning. On success the
// returned Client is in StateInitialized and Request may be called; on
// failure it returns rpcerr.SessionStartFailed.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}

	c := &Client{
		opts:   opts,
		state:  StateStarting,
		ready:  make(chan struct{}),
		logger: logging.New(fmt.Sprintf("[lspclient %s] ", opts.Command)),
	}

	if err := c.spawn(); err != nil {
		c.fail(err)
		return nil, rpcerr.SessionStartFailed(err)
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, opts.InitTimeout)
	defer cancel()

	if err := c.handshake(handshakeCtx); err != nil {
		c.fail(err)
		_ = c.killChild()
		return nil, rpcerr.SessionStartFailed(err)
	}

	c.mu.Lock()
	c.state = StateInitialized
	c.mu.Unlock()
	close(c.ready)

	return c, nil
}

func (c *Client) spawn() error {
	cmd := exec.Command(c.opts.Command, c.opts.Args...)
	cmd.Dir = c.opts.WorkspaceRoot
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.opts.Command, err)
	}

	c.cmd = cmd

	rwc := transport.NewChildStdio(stdout, stdin)
	stream := jsonrpc2.NewStream(rwc)
	conn := jsonrpc2.NewConn(stream)
	c.conn = conn

	zapLogger := logging.NewRPCLogger(c.opts.DevelopmentLogging)
	conn.Go(context.Background(), c.inboundHandler(zapLogger))

	return nil
}

// handshake sends initialize, awaits the response and records server
// capabilities, then sends initialized.
func (c *Client) handshake(ctx context.Context) error {
	rootURI := fsuri.PathToURI(c.opts.WorkspaceRoot)
	params := &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   uri.URI(rootURI),
		WorkspaceFolders: []protocol.WorkspaceFolder{
			{URI: string(rootURI), Name: c.opts.WorkspaceRoot},
		},
		Capabilities: clientCapabilities(),
	}

	var result protocol.InitializeResult
	if _, err := c.conn.Call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	c.mu.Lock()
	c.serverCapabilities = &result.Capabilities
	c.mu.Unlock()

	if err := c.conn.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		return fmt.Errorf("initialized: %w", err)
	}
	return nil
}

// WaitReady blocks until the handshake completes or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServerCapabilities returns the capabilities recorded from the
// initialize response, or nil before the handshake completes.
func (c *Client) ServerCapabilities() *protocol.ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCapabilities
}

// Request sends a request and decodes its result into v. Valid only
// once the client has completed its handshake. A -32601 response is
// surfaced distinctly so the call-hierarchy walker can report "not
// supported" without conflating it with other protocol errors.
func (c *Client) Request(ctx context.Context, method string, params, v interface{}) error {
	if c.State() != StateInitialized {
		return rpcerr.RPCTransport(fmt.Errorf("client not ready (state=%s)", c.State()))
	}

	_, err := c.conn.Call(ctx, method, params, v)
	if err == nil {
		return nil
	}

	if rpcErr, ok := err.(*jsonrpc2.Error); ok && rpcErr.Code == jsonrpc2.MethodNotFound {
		return &rpcerr.Error{Kind: rpcerr.KindMethodNotSupported, Message: method, Cause: err}
	}
	return rpcerr.RPCTransport(err)
}

// Notify sends a notification (no reply expected).
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	if c.State() != StateInitialized {
		return rpcerr.RPCTransport(fmt.Errorf("client not ready (state=%s)", c.State()))
	}
	if err := c.conn.Notify(ctx, method, params); err != nil {
		return rpcerr.RPCTransport(err)
	}
	return nil
}

// Shutdown performs a bounded shutdown: send shutdown, send exit,
// wait for the child with ShutdownTimeout grace, then escalate to
// signal-terminate.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, c.opts.ShutdownTimeout)
	defer cancel()

	_, _ = c.conn.Call(shutdownCtx, protocol.MethodShutdown, nil, nil)
	_ = c.conn.Notify(shutdownCtx, protocol.MethodExit, nil)
	_ = c.conn.Close()

	return c.killChild()
}

func (c *Client) killChild() error {
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case <-done:
		return nil
	case <-time.After(c.opts.ShutdownTimeout):
		c.logger.Printf("child did not exit within grace period, sending kill signal")
		if err := c.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill child: %w", err)
		}
		<-done
		return nil
	}
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.state = StateFailed
	c.failErr = err
	c.mu.Unlock()
	c.readyErr = err
}

// FailErr returns the error that moved this client to StateFailed, if
// any.
func (c *Client) FailErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failErr
}

// inboundHandler answers server-initiated requests: workspace/applyEdit
// is auto-declined (applied:false), window/workDoneProgress/create
// replies ok, unknown methods reply MethodNotFound. This covers the
// handful of server-to-client methods a language server actually
// sends during a session.
func (c *Client) inboundHandler(logger *zap.Logger) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodWorkspaceApplyEdit:
			return reply(ctx, &protocol.ApplyWorkspaceEditResult{Applied: false}, nil)
		case protocol.MethodWindowWorkDoneProgressCreate:
			return reply(ctx, nil, nil)
		case protocol.MethodTextDocumentPublishDiagnostics:
			// Notification; this daemon does not cache or surface
			// diagnostics between requests.
			return reply(ctx, nil, nil)
		case protocol.MethodWindowShowMessage, protocol.MethodWindowLogMessage:
			return reply(ctx, nil, nil)
		default:
			logger.Debug("unhandled server-initiated method", zap.String("method", req.Method()))
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

var _ io.Closer = (*Client)(nil)

// CloseNow is Shutdown with a background context. Close calls it, so
// Client satisfies io.Closer for use in defer statements during tests.
func (c *Client) CloseNow() error {
	return c.Shutdown(context.Background())
}

func (c *Client) Close() error {
	return c.CloseNow()
}
