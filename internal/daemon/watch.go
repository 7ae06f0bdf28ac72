package daemon

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watchCacheDir watches the daemon's cache directory for the socket
// or PID file disappearing out from under a running daemon (an
// operator's stray `rm`, a misbehaving cleanup script) and logs it.
// This is diagnostic only: nothing here mutates daemon state, and the
// daemon keeps serving after logging the warning.
func (d *Daemon) watchCacheDir(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	cacheDir := filepath.Dir(d.opts.SocketPath)
	if err := watcher.Add(cacheDir); err != nil {
		_ = watcher.Close()
		return err
	}

	socketName := filepath.Base(d.opts.SocketPath)
	pidName := filepath.Base(d.opts.PIDPath)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if (name == socketName || name == pidName) && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					d.logger.Printf("warning: %s was removed externally while daemon is running", event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.logger.Printf("cache dir watch error: %v", err)
			}
		}
	}()

	return nil
}
