package profile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"chord/hotkey"
	"chord/log"
)

const settleDelay = 150 * time.Millisecond

// shouldReload reports whether an fsnotify event touches the profile.
// Editors that save via temp file and rename only match by base name.
func shouldReload(path, base string, ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(ev.Name)
	return name == path || filepath.Base(name) == base
}

// Watch reloads path whenever it changes and hands the result to fn until
// ctx is done. Bursts of events are coalesced. The directory is watched
// rather than the file so replacing the file does not end the watch; it is
// created if missing so a profile saved later is still picked up.
func Watch(ctx context.Context, path string, style hotkey.Style, fn func([]hotkey.Binding, error)) error {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("profile watcher: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("profile watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("profile watcher: %w", err)
	}

	go func() {
		defer w.Close()
		base := filepath.Base(path)
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !shouldReload(path, base, ev) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(settleDelay)
				} else {
					timer.Reset(settleDelay)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnf("profile watcher: %v", err)
			case <-fire:
				fire = nil
				bs, err := Load(path, style)
				fn(bs, err)
			}
		}
	}()
	return nil
}
