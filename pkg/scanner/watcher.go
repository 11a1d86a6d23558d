package scanner

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the signature-database directory and re-resolves the
// database whenever freshclam (or the system updater) rewrites it, so a
// long-lived session notices new signatures without restarting. Watch
// blocks until ctx is cancelled. If no database directory is known yet
// there is nothing to watch and Watch returns an error.
func (s *Scanner) Watch(ctx context.Context) error {
	s.mu.Lock()
	dir := s.databaseDir
	s.mu.Unlock()
	if dir == "" {
		return fmt.Errorf("no signature database directory to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Debug().Str("dir", dir).Msg("watching signature database")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				s.log.Debug().Str("file", ev.Name).Msg("signature database changed")
				s.rescanDatabase()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("signature database watcher error")
		}
	}
}
