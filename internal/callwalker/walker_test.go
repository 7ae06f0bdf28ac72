package callwalker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/leta-lsp/leta/internal/fsuri"
	"github.com/leta-lsp/leta/internal/rpcerr"
)

// fakeServer answers prepareCallHierarchy/outgoingCalls/incomingCalls
// the way a real language server would, from a fixed graph keyed by
// item name, so each cycle/depth/path scenario can be pinned without a
// spawned subprocess.
type fakeServer struct {
	prepareResult []protocol.CallHierarchyItem
	prepareErr    error
	outgoing      map[string][]protocol.CallHierarchyOutgoingCall
	incoming      map[string][]protocol.CallHierarchyIncomingCall
}

func (f *fakeServer) Request(ctx context.Context, method string, params, v interface{}) error {
	switch method {
	case protocol.MethodTextDocumentPrepareCallHierarchy:
		if f.prepareErr != nil {
			return f.prepareErr
		}
		*(v.(*[]protocol.CallHierarchyItem)) = f.prepareResult
		return nil
	case protocol.MethodCallHierarchyOutgoingCalls:
		item := params.(*protocol.CallHierarchyOutgoingCallsParams).Item
		*(v.(*[]protocol.CallHierarchyOutgoingCall)) = f.outgoing[item.Name]
		return nil
	case protocol.MethodCallHierarchyIncomingCalls:
		item := params.(*protocol.CallHierarchyIncomingCallsParams).Item
		*(v.(*[]protocol.CallHierarchyIncomingCall)) = f.incoming[item.Name]
		return nil
	default:
		return rpcerr.RPCTransport(assert.AnError)
	}
}

func noopOpen(context.Context, string) error { return nil }

func item(name string, path string, line uint32) protocol.CallHierarchyItem {
	u := fsuri.PathToURI(path)
	rng := protocol.Range{Start: protocol.Position{Line: line}, End: protocol.Position{Line: line}}
	return protocol.CallHierarchyItem{
		Name:           name,
		Kind:           protocol.SymbolKindFunction,
		URI:            protocol.DocumentURI(u),
		Range:          rng,
		SelectionRange: rng,
	}
}

func TestOutgoingDepth2FiltersStdlib(t *testing.T) {
	root := item("f", "/work/src/a.rs", 9)
	g := item("g", "/work/src/b.rs", 2)
	stdlib := item("stdlib_io", "/usr/rustlib/src/rust/library/io.rs", 0)

	srv := &fakeServer{
		prepareResult: []protocol.CallHierarchyItem{root},
		outgoing: map[string][]protocol.CallHierarchyOutgoingCall{
			"f": {{To: g}, {To: stdlib}},
		},
	}

	w := New(srv, noopOpen, "/work")
	node, rerr := w.Outgoing(context.Background(), "/work/src/a.rs", 10, 0, 2, false)
	require.Nil(t, rerr)
	require.Len(t, node.Calls, 1)
	assert.Equal(t, "g", node.Calls[0].Name)
	assert.Equal(t, "src/b.rs", node.Calls[0].Path)
	assert.Equal(t, 3, node.Calls[0].Line)
}

func TestOutgoingCycleHeightTwo(t *testing.T) {
	a := item("a", "/work/src/a.rs", 0)
	b := item("b", "/work/src/b.rs", 0)

	srv := &fakeServer{
		prepareResult: []protocol.CallHierarchyItem{a},
		outgoing: map[string][]protocol.CallHierarchyOutgoingCall{
			"a": {{To: b}},
			"b": {{To: a}},
		},
	}

	w := New(srv, noopOpen, "/work")
	node, rerr := w.Outgoing(context.Background(), "/work/src/a.rs", 1, 0, 5, false)
	require.Nil(t, rerr)

	require.Len(t, node.Calls, 1)
	bNode := node.Calls[0]
	assert.Equal(t, "b", bNode.Name)
	assert.Empty(t, bNode.Calls)
}

func TestOutgoingMaxDepthZeroReturnsBareRoot(t *testing.T) {
	root := item("f", "/work/src/a.rs", 9)
	srv := &fakeServer{prepareResult: []protocol.CallHierarchyItem{root}}

	w := New(srv, noopOpen, "/work")
	node, rerr := w.Outgoing(context.Background(), "/work/src/a.rs", 10, 0, 0, false)
	require.Nil(t, rerr)
	assert.Nil(t, node.Calls)
	assert.Nil(t, node.CalledBy)
}

func TestPrepareMethodNotSupported(t *testing.T) {
	// Classifying a -32601 reply into KindMethodNotSupported is
	// lspclient.Client.Request's job (it sees the raw jsonrpc2.Error);
	// a Requester already hands the walker the classified error.
	srv := &fakeServer{prepareErr: &rpcerr.Error{Kind: rpcerr.KindMethodNotSupported, Message: "textDocument/prepareCallHierarchy"}}

	w := New(srv, noopOpen, "/work")
	_, rerr := w.Outgoing(context.Background(), "/work/src/a.rs", 1, 0, 3, false)
	require.NotNil(t, rerr)
	assert.Contains(t, rerr.Error(), "not supported")
}

func TestPrepareNoResultAtPosition(t *testing.T) {
	srv := &fakeServer{prepareResult: nil}

	w := New(srv, noopOpen, "/work")
	_, rerr := w.Outgoing(context.Background(), "/work/src/a.rs", 1, 0, 3, false)
	require.NotNil(t, rerr)
	assert.Equal(t, "No call hierarchy found at this position", rerr.Error())
}

func TestPathFound(t *testing.T) {
	main := item("main", "/work/src/main.rs", 0)
	run := item("run", "/work/src/main.rs", 5)
	helper := item("helper", "/work/src/util.rs", 41)

	srv := &fakeServer{
		prepareResult: []protocol.CallHierarchyItem{main},
		outgoing: map[string][]protocol.CallHierarchyOutgoingCall{
			"main": {{To: run}},
			"run":  {{To: helper}},
		},
	}

	w := New(srv, noopOpen, "/work")
	path, rerr := w.Path(context.Background(), "/work/src/main.rs", 1, 0, "/work/src/util.rs", 42, 4, false, "", "")
	require.Nil(t, rerr)
	require.Len(t, path, 3)
	assert.Equal(t, []string{"main", "run", "helper"}, []string{path[0].Name, path[1].Name, path[2].Name})
}

func TestPathNotFoundWithinDepth(t *testing.T) {
	main := item("main", "/work/src/main.rs", 0)
	run := item("run", "/work/src/main.rs", 5)

	srv := &fakeServer{
		prepareResult: []protocol.CallHierarchyItem{main},
		outgoing: map[string][]protocol.CallHierarchyOutgoingCall{
			"main": {{To: run}},
		},
	}

	w := New(srv, noopOpen, "/work")
	_, rerr := w.Path(context.Background(), "/work/src/main.rs", 1, 0, "/work/src/util.rs", 42, 1, false, "main", "helper")
	require.NotNil(t, rerr)
	assert.Equal(t, "No path found from main to helper within depth 1", rerr.Error())
}

func TestIncomingBuildsCalledBy(t *testing.T) {
	callee := item("callee", "/work/src/b.rs", 0)
	caller := item("caller", "/work/src/a.rs", 0)

	srv := &fakeServer{
		prepareResult: []protocol.CallHierarchyItem{callee},
		incoming: map[string][]protocol.CallHierarchyIncomingCall{
			"callee": {{From: caller}},
		},
	}

	w := New(srv, noopOpen, "/work")
	node, rerr := w.Incoming(context.Background(), "/work/src/b.rs", 1, 0, 2, false)
	require.Nil(t, rerr)
	require.Len(t, node.CalledBy, 1)
	assert.Equal(t, "caller", node.CalledBy[0].Name)
}

func TestIsStdlibHeuristics(t *testing.T) {
	cases := map[string]bool{
		"file:///usr/lib/python3/typeshed-fallback/stdlib/os.pyi": true,
		"file:///usr/lib/typeshed/stdlib/io.pyi":                  true,
		"file:///opt/rustlib/src/rust/library/std/io.rs":          true,
		"file:///usr/libexec/src/foo.c":                           true,
		"file:///usr/libexec/src/mod/foo.c":                       false,
		"file:///node_modules/@types/node/lib.dom.d.ts":           true,
		"file:///work/src/a.ts.d.ts":                              false,
		"file:///work/src/a.rs":                                   false,
	}
	for u, want := range cases {
		assert.Equal(t, want, isStdlib(u), u)
	}
}
