package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contagion/internal/core/macro"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a profile file whenever it changes on disk. The parent
// directory is watched so editors that replace the file by rename are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Profile)
	logger   macro.Logger
	watcher  *fsnotify.Watcher
}

func NewWatcher(path string, onChange func(Profile), logger macro.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange is nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	// The profile directory may not exist yet on a first run.
	if err := os.MkdirAll(filepath.Dir(abs), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile dir: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:     abs,
		debounce: defaultDebounce,
		onChange: onChange,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Run delivers reloaded profiles until ctx is done. Parse and validation
// failures are logged and the previous profile stays active.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Profile changed", "path", w.path, "op", event.Op.String())
			settle = time.After(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Profile watcher error", "err", err)
		case <-settle:
			settle = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	profile, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Profile reload failed", "path", w.path, "err", err)
		return
	}
	if err := profile.Validate(); err != nil {
		w.logger.Warn("Profile reload rejected", "path", w.path, "err", err)
		return
	}
	w.onChange(profile)
}
