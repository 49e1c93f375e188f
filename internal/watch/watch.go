// Package watch implements an optional background convenience: watching a
// collection's WAL file for writes and invoking a caller-supplied callback
// (typically Collection.Flush) once it crosses a size threshold. Strictly
// additive — nothing in internal/collection depends on it, and a failure
// to start one (inotify watch limits, unsupported platform) has no
// durability consequences.
package watch

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/polarisdb/polarisdb/internal/dberr"
)

// Watcher watches a collection directory's wal.log and invokes the
// onThreshold callback given to New once its size crosses thresholdBytes.
type Watcher struct {
	fsw           *fsnotify.Watcher
	walPath       string
	thresholdByte int64
	onThreshold   func()
	done          chan struct{}
}

// New starts watching dir's wal.log. onThreshold is called (synchronously,
// from the watcher's own goroutine) the first time the file's size is
// observed at or above thresholdBytes after a write event, and again only
// after the size has been observed below the threshold in between; the
// caller is expected to flush and thereby shrink the WAL back down.
func New(dir string, thresholdBytes int64, onThreshold func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, dberr.IOError("create fsnotify watcher", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, dberr.IOError("watch collection dir", err)
	}
	w := &Watcher{
		fsw:           fsw,
		walPath:       filepath.Join(dir, "wal.log"),
		thresholdByte: thresholdBytes,
		onThreshold:   onThreshold,
		done:          make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	fired := false
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.walPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			info, err := os.Stat(w.walPath)
			if err != nil {
				continue
			}
			if info.Size() < w.thresholdByte {
				fired = false
				continue
			}
			if !fired {
				fired = true
				w.onThreshold()
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
