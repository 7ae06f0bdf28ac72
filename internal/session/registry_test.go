package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocator struct {
	command string
	args    []string
	known   map[string]bool
}

func (f fakeLocator) Locate(language string) (string, []string, bool) {
	if f.known != nil && !f.known[language] {
		return "", nil, false
	}
	return f.command, f.args, true
}

func TestKeyString(t *testing.T) {
	k := Key{Root: "/workspace/foo", Language: "go"}
	assert.Equal(t, "/workspace/foo::go", k.String())
}

func TestGetOrCreateRejectsUnknownLanguage(t *testing.T) {
	r := NewRegistry(ClientOptions{Locator: fakeLocator{known: map[string]bool{"go": true}}})

	_, err := r.GetOrCreate(context.Background(), Key{Root: "/tmp", Language: "cobol"})
	require.Error(t, err)
}

func TestGetReturnsFalseForUnknownKey(t *testing.T) {
	r := NewRegistry(ClientOptions{Locator: fakeLocator{}})

	_, ok := r.Get(Key{Root: "/tmp", Language: "go"})
	assert.False(t, ok)
}

func TestGetOrCreateConcurrentCallersShareOneCreate(t *testing.T) {
	var calls int32
	locator := countingLocator{calls: &calls}
	r := NewRegistry(ClientOptions{Locator: locator})

	key := Key{Root: "/tmp", Language: "missing-binary"}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.GetOrCreate(context.Background(), key)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
	}
	// Every caller's attempt to spawn a nonexistent binary fails, and a
	// failed entry is cleared so later callers retry rather than reuse
	// a poisoned result — so calls may exceed 1, but must not exceed
	// the caller count.
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(len(errs)))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

type countingLocator struct {
	calls *int32
}

func (c countingLocator) Locate(language string) (string, []string, bool) {
	atomic.AddInt32(c.calls, 1)
	return "definitely-not-a-real-binary-on-this-system", nil, true
}

func TestSessionIsDocumentOpenDefaultsFalse(t *testing.T) {
	s := newSession(Key{Root: "/tmp", Language: "go"}, nil)
	assert.False(t, s.IsDocumentOpen("/tmp/main.go"))
}

func TestEnsureDocumentOpenSendsDidOpenOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	s := newSession(Key{Root: dir, Language: "go"}, nil)

	var didOpenCalls int32
	didOpen := func(ctx context.Context, p, languageID, text string) error {
		atomic.AddInt32(&didOpenCalls, 1)
		assert.Equal(t, path, p)
		assert.Equal(t, "go", languageID)
		assert.Equal(t, "package main\n", text)
		return nil
	}

	require.NoError(t, EnsureDocumentOpen(context.Background(), s, path, "go", didOpen))
	require.NoError(t, EnsureDocumentOpen(context.Background(), s, path, "go", didOpen))

	assert.Equal(t, int32(1), atomic.LoadInt32(&didOpenCalls))
	assert.True(t, s.IsDocumentOpen(path))
}

func TestEnsureDocumentOpenMissingFileIsMalformedRequest(t *testing.T) {
	s := newSession(Key{Root: "/tmp", Language: "go"}, nil)

	err := EnsureDocumentOpen(context.Background(), s, "/does/not/exist.go", "go", func(context.Context, string, string, string) error {
		t.Fatal("didOpen should not be called when the file cannot be read")
		return nil
	})
	require.Error(t, err)
}

func TestEnsureDocumentOpenConcurrentCallersSendDidOpenOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	s := newSession(Key{Root: dir, Language: "go"}, nil)

	var didOpenCalls int32
	didOpen := func(ctx context.Context, p, languageID, text string) error {
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&didOpenCalls, 1)
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, EnsureDocumentOpen(context.Background(), s, path, "go", didOpen))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&didOpenCalls))
}

func TestTouchUpdatesLastUsed(t *testing.T) {
	s := newSession(Key{Root: "/tmp", Language: "go"}, nil)
	s.lastUsed = time.Now().Add(-time.Hour)
	before := time.Now()
	s.Touch()
	assert.False(t, s.lastUsed.Before(before))
}
