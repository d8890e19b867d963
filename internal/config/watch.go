package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MattBortsov/homework-bot/pkg/logx"
)

const watchDebounce = 300 * time.Millisecond

// Watch re-reads the settings file whenever it changes on disk and calls
// apply with the freshly parsed settings. Malformed edits are logged and
// skipped; the previous settings stay in effect.
//
// The directory is watched rather than the file itself so editors that
// replace the file (rename + create) keep triggering reloads. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, path string, log logx.Logger, apply func(Settings)) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	var mu sync.Mutex
	var pending *time.Timer
	debounce := func() {
		mu.Lock()
		defer mu.Unlock()
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(watchDebounce, func() {
			s, err := LoadSettings(path)
			if err != nil {
				log.Warn("settings reload failed; keeping previous", logx.Err(err), logx.String("path", path))
				return
			}
			log.Info("settings reloaded", logx.String("path", path))
			apply(s)
		})
	}

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(dir)
			if err != nil {
				_ = w.Close()
			}
		}
		if err != nil {
			log.Warn("settings watch unavailable", logx.Err(err), logx.String("dir", dir))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		log.Debug("settings watcher started", logx.String("dir", dir), logx.String("file", file))

		// inner loop: runs until the watcher breaks, then the outer loop recreates it.
		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = w.Close()
				return
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				// Compare by basename; more robust across absolute/relative paths.
				if strings.EqualFold(filepath.Base(ev.Name), file) {
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
						debounce()
					}
				}
			case werr, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if werr != nil {
					log.Warn("settings watch error", logx.Err(werr), logx.String("dir", dir))
				}
			}
		}

		_ = w.Close()
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
