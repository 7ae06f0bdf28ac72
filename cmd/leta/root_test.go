package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeForExitError(t *testing.T) {
	err := &exitError{code: exitPIDConflict, err: errors.New("already running")}
	assert.Equal(t, int(exitPIDConflict), exitCodeFor(err))
}

func TestExitCodeForWrappedExitError(t *testing.T) {
	inner := &exitError{code: exitSocketBindFailure, err: errors.New("bind failed")}
	wrapped := errors.New("setup: " + inner.Error())
	assert.Equal(t, int(exitInternalError), exitCodeFor(wrapped))

	reallyWrapped := errWrap(inner)
	assert.Equal(t, int(exitSocketBindFailure), exitCodeFor(reallyWrapped))
}

func TestExitCodeForPlainError(t *testing.T) {
	assert.Equal(t, int(exitInternalError), exitCodeFor(errors.New("boom")))
}

func TestExitCodeForNilIsOK(t *testing.T) {
	assert.Equal(t, int(exitOK), exitCodeFor(nil))
}

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["daemon"])
	assert.True(t, names["calls"])
	assert.True(t, names["stop"])
}

func errWrap(err error) error {
	return &wrappedErr{err: err}
}

type wrappedErr struct{ err error }

func (w *wrappedErr) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrappedErr) Unwrap() error { return w.err }
