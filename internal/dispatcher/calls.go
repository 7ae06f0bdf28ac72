package dispatcher

import (
	"context"
	"encoding/json"

	"go.lsp.dev/protocol"

	"github.com/leta-lsp/leta/internal/callwalker"
	"github.com/leta-lsp/leta/internal/fsuri"
	"github.com/leta-lsp/leta/internal/langid"
	"github.com/leta-lsp/leta/internal/rpcerr"
	"github.com/leta-lsp/leta/internal/session"
)

// CallsParams is the wire shape of the `calls` method.
// FromPath and FromLine are required for outgoing/path mode; ToPath
// and ToLine for incoming/path mode; path mode requires both sides.
// Columns default to 0, and FromSymbol/ToSymbol are optional names
// used only in the path-not-found message.
type CallsParams struct {
	WorkspaceRoot       string `json:"workspace_root"`
	Mode                string `json:"mode"`
	FromPath            string `json:"from_path"`
	FromLine            int    `json:"from_line"`
	FromColumn          int    `json:"from_column"`
	FromSymbol          string `json:"from_symbol"`
	ToPath              string `json:"to_path"`
	ToLine              int    `json:"to_line"`
	ToColumn            int    `json:"to_column"`
	ToSymbol            string `json:"to_symbol"`
	MaxDepth            *int   `json:"max_depth"`
	IncludeNonWorkspace bool   `json:"include_non_workspace"`
}

// CallsService wires the session registry, document guard, and
// call-hierarchy walker together into the dispatcher.Handler for the
// `calls` method. It has no state of its own beyond its collaborators,
// holding them as fields rather than inlining handler logic into
// package-level functions.
type CallsService struct {
	Sessions        *session.Registry
	Detector        langid.Detector
	DefaultMaxDepth int
}

// Handle implements dispatcher.Handler for method "calls".
func (s *CallsService) Handle(ctx context.Context, raw json.RawMessage) (interface{}, *rpcerr.Error) {
	var p CallsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, rpcerr.MalformedRequest("invalid calls params: %v", err)
	}
	if p.WorkspaceRoot == "" {
		return nil, rpcerr.MalformedRequest("missing workspace_root")
	}

	maxDepth := s.DefaultMaxDepth
	if p.MaxDepth != nil {
		maxDepth = *p.MaxDepth
	}

	switch p.Mode {
	case "outgoing":
		return s.outgoing(ctx, p, maxDepth)
	case "incoming":
		return s.incoming(ctx, p, maxDepth)
	case "path":
		return s.path(ctx, p, maxDepth)
	case "":
		return nil, rpcerr.MalformedRequest("missing mode")
	default:
		return nil, rpcerr.MalformedRequest("unknown mode %q", p.Mode)
	}
}

func (s *CallsService) outgoing(ctx context.Context, p CallsParams, maxDepth int) (interface{}, *rpcerr.Error) {
	if p.FromPath == "" {
		return nil, rpcerr.MalformedRequest("missing from_path")
	}
	if p.FromLine == 0 {
		return nil, rpcerr.MalformedRequest("missing from_line")
	}

	walker, rerr := s.walkerFor(ctx, p.FromPath, p.WorkspaceRoot)
	if rerr != nil {
		return nil, rerr
	}
	node, rerr := walker.Outgoing(ctx, p.FromPath, p.FromLine, p.FromColumn, maxDepth, p.IncludeNonWorkspace)
	if rerr != nil {
		return nil, rerr
	}
	return map[string]*callwalker.CallNode{"root": node}, nil
}

func (s *CallsService) incoming(ctx context.Context, p CallsParams, maxDepth int) (interface{}, *rpcerr.Error) {
	if p.ToPath == "" {
		return nil, rpcerr.MalformedRequest("missing to_path")
	}
	if p.ToLine == 0 {
		return nil, rpcerr.MalformedRequest("missing to_line")
	}

	walker, rerr := s.walkerFor(ctx, p.ToPath, p.WorkspaceRoot)
	if rerr != nil {
		return nil, rerr
	}
	node, rerr := walker.Incoming(ctx, p.ToPath, p.ToLine, p.ToColumn, maxDepth, p.IncludeNonWorkspace)
	if rerr != nil {
		return nil, rerr
	}
	return map[string]*callwalker.CallNode{"root": node}, nil
}

func (s *CallsService) path(ctx context.Context, p CallsParams, maxDepth int) (interface{}, *rpcerr.Error) {
	if p.FromPath == "" {
		return nil, rpcerr.MalformedRequest("missing from_path")
	}
	if p.ToPath == "" {
		return nil, rpcerr.MalformedRequest("missing to_path")
	}
	if p.FromLine == 0 {
		return nil, rpcerr.MalformedRequest("missing from_line")
	}
	if p.ToLine == 0 {
		return nil, rpcerr.MalformedRequest("missing to_line")
	}

	walker, rerr := s.walkerFor(ctx, p.FromPath, p.WorkspaceRoot)
	if rerr != nil {
		return nil, rerr
	}
	items, rerr := walker.Path(ctx, p.FromPath, p.FromLine, p.FromColumn, p.ToPath, p.ToLine, maxDepth, p.IncludeNonWorkspace, p.FromSymbol, p.ToSymbol)
	if rerr != nil {
		return nil, rerr
	}

	nodes := make([]callwalker.CallNode, 0, len(items))
	for _, item := range items {
		nodes = append(nodes, walker.FormatNode(item))
	}
	return map[string][]callwalker.CallNode{"path": nodes}, nil
}

// walkerFor resolves the (workspace_root, language) session for path,
// ensures document-open bookkeeping, and returns a Walker scoped to
// that session's client: get-or-create the session, then make sure
// the document is open, before a handler ever touches the walker.
func (s *CallsService) walkerFor(ctx context.Context, path, workspaceRoot string) (*callwalker.Walker, *rpcerr.Error) {
	tag, languageID, ok := s.Detector.Detect(path)
	if !ok {
		return nil, rpcerr.MalformedRequest("no language detected for %s", path)
	}

	sess, err := s.Sessions.GetOrCreate(ctx, session.Key{Root: workspaceRoot, Language: tag})
	if err != nil {
		return nil, toSessionErr(err)
	}

	ensureOpen := func(ctx context.Context, path string) error {
		return session.EnsureDocumentOpen(ctx, sess, path, languageID, func(ctx context.Context, path, languageID, text string) error {
			return sess.Client.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
				TextDocument: protocol.TextDocumentItem{
					URI:        protocol.DocumentURI(fsuri.PathToURI(path)),
					LanguageID: protocol.LanguageIdentifier(languageID),
					Version:    1,
					Text:       text,
				},
			})
		})
	}

	return callwalker.New(sess.Client, ensureOpen, workspaceRoot), nil
}

func toSessionErr(err error) *rpcerr.Error {
	if rerr, ok := err.(*rpcerr.Error); ok {
		return rerr
	}
	return rpcerr.SessionStartFailed(err)
}
