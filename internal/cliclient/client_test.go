package cliclient

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer answers exactly one request per connection, using the
// same {method, params} / Envelope wire shape as internal/daemon.Daemon
// (which keeps reading requests until EOF), without importing it
// (cliclient must not depend on daemon internals).
func fakeServer(t *testing.T, socketPath string, respond func(method string) Envelope) {
	t.Helper()
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				var req struct {
					Method string          `json:"method"`
					Params json.RawMessage `json:"params"`
				}
				if err := json.NewDecoder(conn).Decode(&req); err != nil {
					return
				}
				_ = json.NewEncoder(conn).Encode(respond(req.Method))
			}()
		}
	}()
}

func TestCallDecodesResult(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	fakeServer(t, socketPath, func(method string) Envelope {
		result, _ := json.Marshal(map[string]string{"method": method})
		return Envelope{Result: result}
	})

	client, err := Dial(context.Background(), socketPath)
	require.NoError(t, err)
	defer client.Close()

	var result map[string]string
	err = client.Call(context.Background(), "calls", map[string]string{"mode": "outgoing"}, &result)
	require.NoError(t, err)
	assert.Equal(t, "calls", result["method"])
}

func TestCallSurfacesRemoteError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "daemon.sock")
	fakeServer(t, socketPath, func(method string) Envelope {
		return Envelope{Error: &ErrorEnvelope{Message: "missing workspace_root"}}
	})

	client, err := Dial(context.Background(), socketPath)
	require.NoError(t, err)
	defer client.Close()

	err = client.Call(context.Background(), "calls", map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing workspace_root", err.Error())

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
}

func TestDialFailsWhenSocketMissing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := Dial(ctx, filepath.Join(t.TempDir(), "nonexistent.sock"))
	require.Error(t, err)
}
