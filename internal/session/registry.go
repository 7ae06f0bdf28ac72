// Package session implements the session registry: a keyed map from
// (workspace_root, language) to an LSP client handle, created on
// demand, plus the document-presence guard that ensures a
// textDocument/didOpen precedes any position-scoped request.
//
// The concurrency shape — a shared map guarded by a coarse lock for
// membership checks, plus a per-key state machine so concurrent
// callers for the same key await the single in-flight create instead
// of racing to spawn two subprocesses — mirrors a rooms-style
// get-or-create registry: look up under the lock, release before any
// blocking work, and let latecomers await the in-flight result rather
// than duplicate it.
package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/leta-lsp/leta/internal/lspclient"
	"github.com/leta-lsp/leta/internal/rpcerr"
)

// Key identifies one session: a workspace root and a language tag.
type Key struct {
	Root     string
	Language string
}

func (k Key) String() string {
	return fmt.Sprintf("%s::%s", k.Root, k.Language)
}

// ServerLocator resolves the command to spawn for a language tag. The
// registry has no language-specific knowledge of its own; resolving a
// language to a concrete server command is left to the caller.
type ServerLocator interface {
	Locate(language string) (command string, args []string, ok bool)
}

// Session is one workspace's LSP client handle plus its open-document
// bookkeeping.
type Session struct {
	Key    Key
	Client *lspclient.Client

	mu             sync.Mutex
	openDocuments  map[string]struct{}
	openDocumentMu map[string]*sync.Mutex // per-path serialization for EnsureDocumentOpen
	lastUsed       time.Time
}

func newSession(key Key, client *lspclient.Client) *Session {
	return &Session{
		Key:            key,
		Client:         client,
		openDocuments:  make(map[string]struct{}),
		openDocumentMu: make(map[string]*sync.Mutex),
		lastUsed:       time.Now(),
	}
}

// IsDocumentOpen reports whether path has been sent via didOpen in
// this session.
func (s *Session) IsDocumentOpen(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.openDocuments[path]
	return ok
}

func (s *Session) pathMutex(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.openDocumentMu[path]
	if !ok {
		m = &sync.Mutex{}
		s.openDocumentMu[path] = m
	}
	return m
}

func (s *Session) markOpen(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openDocuments[path] = struct{}{}
}

// Touch updates the session's last-used timestamp, used by callers
// that want an LRU-style eviction policy layered on top of the
// registry; the registry itself never evicts a session on its own —
// sessions live until daemon shutdown or an explicit eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()
}

// entryState tracks one registry slot's lifecycle independent of the
// Session it will eventually hold, so concurrent callers can await a
// single in-flight creation instead of racing.
type entryState struct {
	ready   chan struct{}
	session *Session
	err     error
}

// Registry holds every active (workspace_root, language) session.
type Registry struct {
	opts ClientOptions

	mu      sync.Mutex
	entries map[Key]*entryState
}

// ClientOptions carries the daemon-wide settings New passes through to
// every spawned lspclient.Client.
type ClientOptions struct {
	Locator            ServerLocator
	InitTimeout        time.Duration
	ShutdownTimeout    time.Duration
	DevelopmentLogging bool
}

// NewRegistry constructs an empty session registry.
func NewRegistry(opts ClientOptions) *Registry {
	return &Registry{
		opts:    opts,
		entries: make(map[Key]*entryState),
	}
}

// GetOrCreate returns the ready session for key, spawning and
// initializing a new LSP client if none exists yet. Concurrent
// callers for the same key share one in-flight creation: a
// second caller awaits the first's result rather than spawning a
// second subprocess.
func (r *Registry) GetOrCreate(ctx context.Context, key Key) (*Session, error) {
	r.mu.Lock()
	entry, exists := r.entries[key]
	if exists && entry.session != nil && entry.session.Client.State() == lspclient.StateFailed {
		// A previously failed entry is cleared so the next caller
		// retries the spawn rather than inheriting a permanent failure.
		delete(r.entries, key)
		exists = false
	}
	if !exists {
		entry = &entryState{ready: make(chan struct{})}
		r.entries[key] = entry
		r.mu.Unlock()

		session, err := r.create(ctx, key)
		entry.session = session
		entry.err = err
		close(entry.ready)

		if err != nil {
			r.mu.Lock()
			delete(r.entries, key)
			r.mu.Unlock()
		}
		return session, err
	}
	r.mu.Unlock()

	select {
	case <-entry.ready:
		return entry.session, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) create(ctx context.Context, key Key) (*Session, error) {
	command, args, ok := r.opts.Locator.Locate(key.Language)
	if !ok {
		return nil, rpcerr.SessionStartFailed(fmt.Errorf("no language server configured for %q", key.Language))
	}

	client, err := lspclient.New(ctx, lspclient.Options{
		Command:            command,
		Args:               args,
		WorkspaceRoot:      key.Root,
		InitTimeout:        r.opts.InitTimeout,
		ShutdownTimeout:    r.opts.ShutdownTimeout,
		DevelopmentLogging: r.opts.DevelopmentLogging,
	})
	if err != nil {
		return nil, err
	}

	return newSession(key, client), nil
}

// Get returns the existing ready session for key without creating one,
// for callers (like graceful shutdown) that must not spawn anything.
func (r *Registry) Get(key Key) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok || entry.session == nil {
		return nil, false
	}
	select {
	case <-entry.ready:
		return entry.session, entry.err == nil
	default:
		return nil, false
	}
}

// All returns a snapshot of every session currently registered, for
// shutdown sweeps.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.entries))
	for _, entry := range r.entries {
		select {
		case <-entry.ready:
			if entry.session != nil {
				sessions = append(sessions, entry.session)
			}
		default:
		}
	}
	return sessions
}

// Shutdown tears down every spawned LSP client. Errors are collected
// but do not stop the sweep; one unhealthy child must not block
// shutdown of the rest.
func (r *Registry) Shutdown(ctx context.Context) []error {
	var errs []error
	for _, s := range r.All() {
		if err := s.Client.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Key, err))
		}
	}
	return errs
}

// EnsureDocumentOpen is the document-presence guard: if path is
// already open in this session, return; otherwise read the file, send
// didOpen, and record it. Concurrent callers for the same path
// serialize on a per-path lock so didOpen is sent exactly once.
func EnsureDocumentOpen(ctx context.Context, s *Session, path, languageID string, didOpen func(ctx context.Context, path, languageID string, text string) error) error {
	if s.IsDocumentOpen(path) {
		return nil
	}

	pathMu := s.pathMutex(path)
	pathMu.Lock()
	defer pathMu.Unlock()

	// Re-check under the per-path lock: another goroutine may have
	// opened it while we were waiting.
	if s.IsDocumentOpen(path) {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return rpcerr.MalformedRequest("cannot read %s: %v", path, err)
	}

	if err := didOpen(ctx, path, languageID, string(content)); err != nil {
		return err
	}

	s.markOpen(path)
	return nil
}
