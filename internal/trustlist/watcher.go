package trustlist

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the trusted-domain file whenever it changes on disk. It
// blocks until the context is cancelled, so run it on its own goroutine.
// A reload failure keeps the previous snapshot.
func (l *List) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := l.LoadFile(path); err != nil && l.logger != nil {
				l.logger.Warn("trusted domains reload failed, keeping previous snapshot",
					zap.String("path", path), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if l.logger != nil {
				l.logger.Warn("trusted domains watcher error", zap.Error(err))
			}
		}
	}
}
