// Package callwalker implements the call-hierarchy graph walker: a
// bounded depth-first walk over prepareCallHierarchy /
// callHierarchy/{incoming,outgoing}Calls that produces either a call
// tree (outgoing or incoming) or a directed call path between two
// source positions. The path search is depth-first and returns the
// first chain it finds within the depth bound, not necessarily the
// shortest one.
//
// Go's growable goroutine stacks let the walk recurse directly, with
// no explicit work stack needed to bound frame size. A cycle is
// detected as soon as an edge's target is already visited, pruning it
// before it is recursed into rather than after — so a cycle of
// length L adds at most L levels to the tree (A→B→A yields a tree of
// height 2), whatever the depth bound.
package callwalker

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.lsp.dev/protocol"
	lspuri "go.lsp.dev/uri"

	"github.com/leta-lsp/leta/internal/fsuri"
	"github.com/leta-lsp/leta/internal/langid"
	"github.com/leta-lsp/leta/internal/rpcerr"
)

// Requester is the subset of lspclient.Client the walker depends on,
// narrowed so the walker can be tested against a fake.
type Requester interface {
	Request(ctx context.Context, method string, params, result interface{}) error
}

// DocumentOpener ensures path has been sent via textDocument/didOpen
// before the walker issues any position-scoped request against it.
type DocumentOpener func(ctx context.Context, path string) error

// direction distinguishes an outgoing-calls walk from an
// incoming-calls walk; the two share every mechanic except which RPC
// method is called and which CallNode field the result populates.
type direction int

const (
	directionOutgoing direction = iota
	directionIncoming
)

// CallNode is one node of a call tree or call path, as returned over
// the wire.
type CallNode struct {
	Name     string     `json:"name"`
	Kind     string     `json:"kind"`
	Path     string     `json:"path"`
	Line     int        `json:"line"`
	Column   int        `json:"column"`
	Detail   string     `json:"detail,omitempty"`
	Calls    []CallNode `json:"calls,omitempty"`
	CalledBy []CallNode `json:"called_by,omitempty"`
}

// dedupKey is the walker's node identity: (uri, range.start.line,
// name). Keying on the declaration range's start line rather than the
// selection range stays stable across servers that widen range between
// prepare and callHierarchy responses, and is distinct from the line
// used for path-search target matching, which uses selectionRange.
type dedupKey struct {
	uri  protocol.DocumentURI
	line uint32
	name string
}

func keyOf(item protocol.CallHierarchyItem) dedupKey {
	return dedupKey{uri: item.URI, line: item.Range.Start.Line, name: item.Name}
}

// Walker drives one call-hierarchy request end to end against a
// single LSP client handle.
type Walker struct {
	Client        Requester
	EnsureOpen    DocumentOpener
	WorkspaceRoot string
}

// New constructs a Walker scoped to one session's client and workspace
// root.
func New(client Requester, ensureOpen DocumentOpener, workspaceRoot string) *Walker {
	return &Walker{Client: client, EnsureOpen: ensureOpen, WorkspaceRoot: workspaceRoot}
}

// Outgoing builds the outgoing-call tree rooted at (path, line,
// column).
func (w *Walker) Outgoing(ctx context.Context, path string, line, column, maxDepth int, includeNonWorkspace bool) (*CallNode, *rpcerr.Error) {
	root, rerr := w.prepare(ctx, path, line, column, "this")
	if rerr != nil {
		return nil, rerr
	}

	visited := map[dedupKey]struct{}{keyOf(*root): {}}
	node := w.expand(ctx, *root, directionOutgoing, 0, maxDepth, includeNonWorkspace, visited)
	return &node, nil
}

// Incoming builds the incoming-call (callers) tree rooted at (path,
// line, column).
func (w *Walker) Incoming(ctx context.Context, path string, line, column, maxDepth int, includeNonWorkspace bool) (*CallNode, *rpcerr.Error) {
	root, rerr := w.prepare(ctx, path, line, column, "this")
	if rerr != nil {
		return nil, rerr
	}

	visited := map[dedupKey]struct{}{keyOf(*root): {}}
	node := w.expand(ctx, *root, directionIncoming, 0, maxDepth, includeNonWorkspace, visited)
	return &node, nil
}

// Path searches for a directed outgoing call chain from (fromPath,
// fromLine, fromColumn) to a symbol declared at (toPath, toLine).
// fromSymbol/toSymbol name the endpoints for the "not found" diagnostic
// only; they play no role in the search itself.
func (w *Walker) Path(ctx context.Context, fromPath string, fromLine, fromColumn int, toPath string, toLine, maxDepth int, includeNonWorkspace bool, fromSymbol, toSymbol string) ([]protocol.CallHierarchyItem, *rpcerr.Error) {
	root, rerr := w.prepare(ctx, fromPath, fromLine, fromColumn, "from")
	if rerr != nil {
		return nil, rerr
	}

	toRel := workspaceRelative(toPath, w.WorkspaceRoot)
	visited := map[dedupKey]struct{}{}
	path := w.searchPath(ctx, *root, toRel, toLine, 0, maxDepth, includeNonWorkspace, visited)
	if path == nil {
		if fromSymbol == "" {
			fromSymbol = root.Name
		}
		if toSymbol == "" {
			toSymbol = "target"
		}
		return nil, rpcerr.PathNotFound(fromSymbol, toSymbol, maxDepth)
	}
	return path, nil
}

// FormatNode converts a raw CallHierarchyItem into the wire CallNode
// shape, without any call/called_by children — used for both tree
// leaves (via expand) and path-mode results.
func (w *Walker) FormatNode(item protocol.CallHierarchyItem) CallNode {
	path := workspaceRelative(fsuri.URIToPath(lspuri.URI(item.URI)), w.WorkspaceRoot)
	return CallNode{
		Name:   item.Name,
		Kind:   langid.KindName(item.Kind),
		Path:   path,
		Line:   int(item.SelectionRange.Start.Line) + 1,
		Column: int(item.SelectionRange.Start.Character),
		Detail: item.Detail,
	}
}

func (w *Walker) prepare(ctx context.Context, path string, line, column int, where string) (*protocol.CallHierarchyItem, *rpcerr.Error) {
	if err := w.EnsureOpen(ctx, path); err != nil {
		return nil, toRPCErr(err)
	}

	docURI := fsuri.PathToURI(path)
	params := &protocol.CallHierarchyPrepareParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(docURI)},
			Position: protocol.Position{
				Line:      uint32(line - 1),
				Character: uint32(column),
			},
		},
	}

	var items []protocol.CallHierarchyItem
	if err := w.Client.Request(ctx, protocol.MethodTextDocumentPrepareCallHierarchy, params, &items); err != nil {
		if rerr := toRPCErr(err); rerr.Kind == rpcerr.KindMethodNotSupported {
			return nil, rpcerr.MethodNotSupported("call hierarchy")
		}
		return nil, toRPCErr(err)
	}
	if len(items) == 0 {
		return nil, rpcerr.NoResultAtPosition(where)
	}
	return &items[0], nil
}

// expand grows one node of the tree. The current item's key is
// already recorded in visited by the caller and is never unwound, so
// the walk never revisits a node. Each surviving child is checked
// against visited before it is recursed into; an already-visited
// child is pruned entirely rather than appearing as an empty leaf, so
// with a depth bound of N the cycle A→B→A produces a tree of height 2,
// not N.
func (w *Walker) expand(ctx context.Context, item protocol.CallHierarchyItem, dir direction, depth, maxDepth int, includeNonWorkspace bool, visited map[dedupKey]struct{}) CallNode {
	node := w.FormatNode(item)
	if depth >= maxDepth {
		return node
	}

	edges, err := w.fetchEdges(ctx, item, dir)
	if err != nil {
		// Per-edge RPC failure is absorbed as "no children" rather than
		// failing the whole walk.
		return node
	}

	var children []CallNode
	for _, edge := range edges {
		if !includeNonWorkspace && isStdlib(string(edge.URI)) {
			continue
		}
		childKey := keyOf(edge)
		if _, seen := visited[childKey]; seen {
			continue
		}
		visited[childKey] = struct{}{}
		children = append(children, w.expand(ctx, edge, dir, depth+1, maxDepth, includeNonWorkspace, visited))
	}

	switch dir {
	case directionOutgoing:
		node.Calls = children
	case directionIncoming:
		node.CalledBy = children
	}
	return node
}

// searchPath runs the termination test before fan-out, and — unlike
// expand — removes the visited key on backtrack, so a sibling branch
// may still reach a node an abandoned branch gave up on. An item at
// depth maxDepth is still tested as the target but is not expanded.
func (w *Walker) searchPath(ctx context.Context, item protocol.CallHierarchyItem, toRelPath string, toLine, depth, maxDepth int, includeNonWorkspace bool, visited map[dedupKey]struct{}) []protocol.CallHierarchyItem {
	key := keyOf(item)
	if _, seen := visited[key]; seen {
		return nil
	}
	visited[key] = struct{}{}

	itemRelPath := workspaceRelative(fsuri.URIToPath(lspuri.URI(item.URI)), w.WorkspaceRoot)
	itemLine := int(item.SelectionRange.Start.Line) + 1
	if itemRelPath == toRelPath && itemLine == toLine {
		return []protocol.CallHierarchyItem{item}
	}

	if depth >= maxDepth {
		delete(visited, key)
		return nil
	}

	edges, err := w.fetchEdges(ctx, item, directionOutgoing)
	if err != nil {
		delete(visited, key)
		return nil
	}

	for _, edge := range edges {
		if !includeNonWorkspace && isStdlib(string(edge.URI)) {
			continue
		}
		if rest := w.searchPath(ctx, edge, toRelPath, toLine, depth+1, maxDepth, includeNonWorkspace, visited); rest != nil {
			return append([]protocol.CallHierarchyItem{item}, rest...)
		}
	}

	delete(visited, key)
	return nil
}

func (w *Walker) fetchEdges(ctx context.Context, item protocol.CallHierarchyItem, dir direction) ([]protocol.CallHierarchyItem, error) {
	switch dir {
	case directionOutgoing:
		params := &protocol.CallHierarchyOutgoingCallsParams{Item: item}
		var calls []protocol.CallHierarchyOutgoingCall
		if err := w.Client.Request(ctx, protocol.MethodCallHierarchyOutgoingCalls, params, &calls); err != nil {
			return nil, err
		}
		items := make([]protocol.CallHierarchyItem, 0, len(calls))
		for _, call := range calls {
			items = append(items, call.To)
		}
		return items, nil
	default:
		params := &protocol.CallHierarchyIncomingCallsParams{Item: item}
		var calls []protocol.CallHierarchyIncomingCall
		if err := w.Client.Request(ctx, protocol.MethodCallHierarchyIncomingCalls, params, &calls); err != nil {
			return nil, err
		}
		items := make([]protocol.CallHierarchyItem, 0, len(calls))
		for _, call := range calls {
			items = append(items, call.From)
		}
		return items, nil
	}
}

func toRPCErr(err error) *rpcerr.Error {
	if rerr, ok := err.(*rpcerr.Error); ok {
		return rerr
	}
	return rpcerr.RPCTransport(err)
}

// stdlibGlobs are the positive-match half of the standard-library
// path heuristics, expressed as doublestar globs rather than
// hand-rolled substring checks (the same library backs
// internal/config.DetectWorkspaceRoot's marker matching, so an
// operator used to one glob dialect gets the same one here).
var stdlibGlobs = []string{
	"**/typeshed-fallback/stdlib/**",
	"**/typeshed/stdlib/**",
	"**/rustlib/src/rust/library/**",
	"**/lib.*.d.ts",
}

// isStdlib applies the standard-library path heuristics to a raw URI
// string. The "/libexec/src/ without /mod/" rule is a glob plus a
// negative substring check: doublestar globs have no native negation,
// and forcing one in would obscure the rule rather than simplify it.
func isStdlib(u string) bool {
	for _, pattern := range stdlibGlobs {
		if ok, _ := doublestar.Match(pattern, u); ok {
			return true
		}
	}
	if ok, _ := doublestar.Match("**/libexec/src/**", u); ok && !strings.Contains(u, "/mod/") {
		return true
	}
	return false
}

// workspaceRelative makes path relative to root, falling back to the
// absolute path if it cannot be expressed relatively (e.g. a
// stdlib/vendor path outside the workspace, when include_non_workspace
// admitted it).
func workspaceRelative(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
