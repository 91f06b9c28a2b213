// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/azvaliev/gpterm/internal/util"
)

// =============================================================================
// TOKEN FILE WATCHER
// =============================================================================

// Watcher reports a new key when the token file is replaced, so a running
// chat picks up a key saved by "gpterm token set" in another terminal.
type Watcher struct {
	resolver Resolver
	watcher  *fsnotify.Watcher
	onChange func(token string)
	log      zerolog.Logger

	mu      sync.Mutex
	current string

	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher watches r.Dir. current is the key in use; onChange is called
// from the watcher goroutine with each different key Resolve returns.
func NewWatcher(r Resolver, current string, onChange func(token string), logger zerolog.Logger) (*Watcher, error) {
	if r.Dir == "" {
		return nil, fmt.Errorf("no token directory to watch")
	}
	// The directory is watched rather than the file because Save replaces
	// the file by rename.
	if err := os.MkdirAll(r.Dir, util.DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.Dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(r.Dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", r.Dir, err)
	}

	return &Watcher{
		resolver: r,
		watcher:  fw,
		onChange: onChange,
		log:      logger,
		current:  current,
		done:     make(chan struct{}),
	}, nil
}

// Start processes events until Close.
func (w *Watcher) Start() {
	go w.processEvents()
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != TokenFile {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.reload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("token watcher error")
		}
	}
}

func (w *Watcher) reload() {
	token, ok := w.resolver.Resolve()
	if !ok {
		return
	}

	w.mu.Lock()
	changed := token != w.current
	w.current = token
	w.mu.Unlock()

	if changed {
		w.log.Info().Str("path", w.resolver.Path()).Msg("api key reloaded")
		w.onChange(token)
	}
}
