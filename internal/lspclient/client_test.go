package lspclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leta-lsp/leta/internal/rpcerr"
)

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateStarting:     "starting",
		StateInitialized:  "initialized",
		StateFailed:       "failed",
		StateClosed:       "closed",
		State(99):         "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

// newUnstartedClient builds a Client in StateStarting without spawning
// a real subprocess, so the gating checks on Request/Notify can be
// exercised without a language server binary on PATH.
func newUnstartedClient() *Client {
	return &Client{
		opts:  Options{Command: "fake", InitTimeout: time.Second, ShutdownTimeout: time.Second},
		state: StateStarting,
		ready: make(chan struct{}),
	}
}

func TestRequestRejectsUnlessInitialized(t *testing.T) {
	c := newUnstartedClient()

	err := c.Request(context.Background(), "textDocument/prepareCallHierarchy", nil, nil)
	require.Error(t, err)

	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpcerr.KindRPCTransport, rpcErr.Kind)
}

func TestNotifyRejectsUnlessInitialized(t *testing.T) {
	c := newUnstartedClient()

	err := c.Notify(context.Background(), "textDocument/didOpen", nil)
	require.Error(t, err)

	var rpcErr *rpcerr.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpcerr.KindRPCTransport, rpcErr.Kind)
}

func TestShutdownOnUnstartedClientIsIdempotent(t *testing.T) {
	c := newUnstartedClient()
	c.state = StateClosed

	require.NoError(t, c.Shutdown(context.Background()))
}

func TestFailRecordsStateAndErr(t *testing.T) {
	c := newUnstartedClient()
	c.fail(assert.AnError)

	assert.Equal(t, StateFailed, c.State())
	assert.ErrorIs(t, c.FailErr(), assert.AnError)
}

func TestWaitReadyReturnsOnContextCancellation(t *testing.T) {
	c := newUnstartedClient()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.WaitReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServerCapabilitiesNilBeforeHandshake(t *testing.T) {
	c := newUnstartedClient()
	assert.Nil(t, c.ServerCapabilities())
}
