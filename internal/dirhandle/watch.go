package dirhandle

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ytget/stremio-downloads/internal/platform"
)

// DefaultDebounce coalesces bursts of filesystem events.
const DefaultDebounce = 500 * time.Millisecond

// Watch calls fn after files appear, disappear or get renamed in the handle's
// directory. Events for partial downloads are ignored. It blocks until ctx
// is done.
func Watch(ctx context.Context, h Handle, debounce time.Duration, fn func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(h.Path()); err != nil {
		return fmt.Errorf("watch %s: %w", h.Path(), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if platform.IsTemporaryFile(filepath.Base(ev.Name)) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", h.Path(), err)
		case <-timer.C:
			fn()
		}
	}
}
