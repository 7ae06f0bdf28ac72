// Package cliclient is the CLI side of the daemon socket: a thin
// dialer that sends one {method, params} request per call and decodes
// the dispatcher's Envelope, wrapping the connection in a mutexed
// struct so one Client serializes every call onto a single connection.
package cliclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// Client dials the daemon's Unix-domain socket and issues requests
// against it. One Client serializes all calls on a single connection,
// since the daemon socket is a short-lived CLI-invocation channel, not
// a long-lived multiplexed session.
type Client struct {
	conn net.Conn
	mu   sync.Mutex
	enc  *json.Encoder
	dec  *json.Decoder
}

// Envelope mirrors internal/dispatcher.Envelope without importing the
// daemon's internal package, since the two only need to agree on wire
// shape.
type Envelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorEnvelope  `json:"error,omitempty"`
}

// ErrorEnvelope mirrors internal/dispatcher.ErrorEnvelope.
type ErrorEnvelope struct {
	Message string `json:"message"`
}

// Dial connects to the daemon socket at path. The dial is bounded only
// by ctx; Dial sets no timeout of its own.
func Dial(ctx context.Context, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial daemon socket %s: %w", path, err)
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// Call sends {method, params} and decodes the reply's result into v.
// A deadline derived from ctx bounds both the write and the read, so
// a hung daemon (or a language server that never answers) cannot wedge
// the CLI process indefinitely.
func (c *Client) Call(ctx context.Context, method string, params, v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	if err := c.enc.Encode(struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}{Method: method, Params: raw}); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	var env Envelope
	if err := c.dec.Decode(&env); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if env.Error != nil {
		return &RemoteError{Message: env.Error.Message}
	}
	if v == nil || len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, v)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// RemoteError wraps a daemon-reported {error: {message}} envelope.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}
