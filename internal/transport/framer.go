// Package transport supplies the io.ReadWriteCloser adapter that lets
// go.lsp.dev/jsonrpc2.NewStream speak Content-Length-framed JSON over
// a spawned LSP child process's stdin/stdout pipes.
//
// The wire framing itself — Header\r\n\r\nBody frames, Content-Length
// the only required header, writes serialized through a single writer
// queue, failure on malformed framing or EOF mid-frame — is handled by
// go.lsp.dev/jsonrpc2.Stream, which already implements that header/body
// parser and its own internal write mutex. This package's job is
// strictly the pipe plumbing and lifecycle: closing both pipes
// together, and surfacing read/write errors to the owning LSP client
// handle.
package transport

import (
	"fmt"
	"io"
)

// ChildStdio adapts a spawned process's stdin/stdout pipes into a
// single io.ReadWriteCloser, the shape jsonrpc2.NewStream expects.
// Closing it closes both pipes; the first close error of the two (if
// any) is returned, but both Close calls are always attempted.
type ChildStdio struct {
	stdout io.ReadCloser
	stdin  io.WriteCloser
}

// NewChildStdio wraps a child process's stdout (read side) and stdin
// (write side) pipes.
func NewChildStdio(stdout io.ReadCloser, stdin io.WriteCloser) *ChildStdio {
	return &ChildStdio{stdout: stdout, stdin: stdin}
}

func (c *ChildStdio) Read(p []byte) (int, error) {
	n, err := c.stdout.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("transport: read from child stdout: %w", err)
	}
	return n, err
}

func (c *ChildStdio) Write(p []byte) (int, error) {
	n, err := c.stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("transport: write to child stdin: %w", err)
	}
	return n, nil
}

func (c *ChildStdio) Close() error {
	errOut := c.stdin.Close()
	errIn := c.stdout.Close()
	if errOut != nil {
		return errOut
	}
	return errIn
}
