package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReadCloser struct {
	closed bool
	err    error
}

func (f *failingReadCloser) Read(p []byte) (int, error) { return 0, f.err }
func (f *failingReadCloser) Close() error                { f.closed = true; return nil }

type recordingWriteCloser struct {
	buf    bytes.Buffer
	closed bool
}

func (w *recordingWriteCloser) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *recordingWriteCloser) Close() error                { w.closed = true; return nil }

func TestChildStdioWritePassesThrough(t *testing.T) {
	out := &failingReadCloser{err: io.EOF}
	in := &recordingWriteCloser{}
	c := NewChildStdio(out, in)

	n, err := c.Write([]byte("Content-Length: 2\r\n\r\n{}"))
	require.NoError(t, err)
	assert.Equal(t, len("Content-Length: 2\r\n\r\n{}"), n)
	assert.Equal(t, "Content-Length: 2\r\n\r\n{}", in.buf.String())
}

func TestChildStdioReadSurfacesNonEOFError(t *testing.T) {
	out := &failingReadCloser{err: errors.New("broken pipe")}
	in := &recordingWriteCloser{}
	c := NewChildStdio(out, in)

	_, err := c.Read(make([]byte, 8))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestChildStdioReadPassesEOFUnwrapped(t *testing.T) {
	out := &failingReadCloser{err: io.EOF}
	in := &recordingWriteCloser{}
	c := NewChildStdio(out, in)

	_, err := c.Read(make([]byte, 8))
	assert.Equal(t, io.EOF, err)
}

func TestChildStdioCloseClosesBoth(t *testing.T) {
	out := &failingReadCloser{err: io.EOF}
	in := &recordingWriteCloser{}
	c := NewChildStdio(out, in)

	require.NoError(t, c.Close())
	assert.True(t, out.closed)
	assert.True(t, in.closed)
}
