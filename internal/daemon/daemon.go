package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/leta-lsp/leta/internal/config"
	"github.com/leta-lsp/leta/internal/dispatcher"
	"github.com/leta-lsp/leta/internal/logging"
	"github.com/leta-lsp/leta/internal/session"
)

// ErrPIDConflict and ErrSocketBind let callers (cmd/leta) distinguish
// the two named startup failure conditions from a generic internal
// error via errors.Is, without parsing error text.
var (
	ErrPIDConflict = errors.New("pid file conflict")
	ErrSocketBind  = errors.New("socket bind failure")
)

// Options carries the settings a Daemon needs beyond the dispatcher
// and registry it is handed already-built, so callers (cmd/leta) own
// config loading and pass in the result.
type Options struct {
	SocketPath string
	PIDPath    string
}

// request is the daemon socket's wire shape: a client sends {method,
// params} and receives the dispatcher's Envelope.
type request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Daemon owns the control-plane socket: a Unix-domain stream socket
// speaking length-independent JSON values one after another over
// encoding/json's streaming Decoder/Encoder. Each accepted connection
// is a short-lived CLI invocation: one or more requests, then EOF.
type Daemon struct {
	opts       Options
	dispatcher *dispatcher.Dispatcher
	sessions   *session.Registry
	pidFile    *PIDFile
	logger     *log.Logger

	listener net.Listener

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New wires a Daemon around an already-constructed dispatcher and
// session registry. Callers typically build both from a loaded
// config.Config (e.g. session.NewRegistry(session.ClientOptions{Locator: cfg})).
func New(opts Options, d *dispatcher.Dispatcher, sessions *session.Registry) *Daemon {
	return &Daemon{
		opts:       opts,
		dispatcher: d,
		sessions:   sessions,
		pidFile:    NewPIDFile(opts.PIDPath),
		logger:     logging.New("[daemon] "),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Listen binds the Unix-domain socket and acquires the PID file. A
// stale socket left by a crashed daemon (no live listener) is removed
// and rebound; a live daemon's socket causes a bind failure.
func (d *Daemon) Listen() error {
	if err := config.EnsureCacheDir(); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if err := d.pidFile.Acquire(); err != nil {
		return fmt.Errorf("%w: %v", ErrPIDConflict, err)
	}

	if err := removeStaleSocket(d.opts.SocketPath); err != nil {
		_ = d.pidFile.Release()
		return fmt.Errorf("%w: %v", ErrSocketBind, err)
	}

	listener, err := net.Listen("unix", d.opts.SocketPath)
	if err != nil {
		_ = d.pidFile.Release()
		return fmt.Errorf("%w: bind socket %s: %v", ErrSocketBind, d.opts.SocketPath, err)
	}
	d.listener = listener
	return nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("socket %s already has a live listener", path)
	}
	return os.Remove(path)
}

// Serve accepts connections until ctx is cancelled or the listener
// fails. Each connection runs in its own goroutine; one client's slow
// or malformed request never blocks another's.
func (d *Daemon) Serve(ctx context.Context) error {
	if d.listener == nil {
		return fmt.Errorf("daemon: Serve called before Listen")
	}

	if err := d.watchCacheDir(ctx); err != nil {
		d.logger.Printf("cache dir watch disabled: %v", err)
	}

	go func() {
		<-ctx.Done()
		_ = d.listener.Close()
	}()

	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				d.wg.Wait()
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}

		d.mu.Lock()
		d.conns[conn] = struct{}{}
		d.mu.Unlock()

		d.wg.Add(1)
		go d.handleConn(ctx, conn)
	}
}

// handleConn decodes successive {method, params} requests from one
// connection and writes the dispatcher's Envelope back, until the
// client disconnects or sends malformed JSON.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.conns, conn)
		d.mu.Unlock()
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req request
		if err := decoder.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) {
				d.logger.Printf("malformed request: %v", err)
			}
			return
		}

		env := d.dispatcher.Dispatch(ctx, req.Method, req.Params)
		if err := encoder.Encode(env); err != nil {
			d.logger.Printf("failed to write reply: %v", err)
			return
		}
	}
}

// Shutdown stops accepting connections, closes every open client
// connection, tears down every spawned language server through the
// session registry, and releases the socket and PID files. Errors
// from individual LSP child teardowns are logged but never abort the
// sweep: one unhealthy child must not block shutdown of the rest.
func (d *Daemon) Shutdown(ctx context.Context) error {
	if d.listener != nil {
		_ = d.listener.Close()
	}

	d.mu.Lock()
	for conn := range d.conns {
		_ = conn.Close()
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Printf("shutdown: timed out waiting for connections to drain")
	}

	for _, err := range d.sessions.Shutdown(ctx) {
		d.logger.Printf("session shutdown error: %v", err)
	}

	_ = os.Remove(d.opts.SocketPath)
	if err := d.pidFile.Release(); err != nil {
		d.logger.Printf("release pid file: %v", err)
	}
	return nil
}

// connCount reports the number of currently active client connections,
// for diagnostics and tests.
func (d *Daemon) connCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}
