// Package watch reruns a program tree whenever it or the config changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Logger receives watcher diagnostics
type Logger interface {
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// Change describes a settled modification of a watched file
type Change struct {
	Path   string
	Config bool // the config file changed rather than the tree
	Seq    uint64
}

// Watcher monitors a tree file and an optional config file
type Watcher struct {
	watcher    *fsnotify.Watcher
	treePath   string
	configPath string
	debounce   time.Duration
	logger     Logger
	onChange   func(Change)

	mu        sync.Mutex
	changeSeq uint64
}

// New creates a watcher. onChange runs on the watcher goroutine once
// changes have been quiet for debounce.
func New(treePath, configPath string, debounce time.Duration, logger Logger, onChange func(Change)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absTree, err := filepath.Abs(treePath)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("resolving tree path: %w", err)
	}
	absConfig := ""
	if configPath != "" {
		if absConfig, err = filepath.Abs(configPath); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	return &Watcher{
		watcher:    fsWatcher,
		treePath:   absTree,
		configPath: absConfig,
		debounce:   debounce,
		logger:     logger,
		onChange:   onChange,
	}, nil
}

// Run watches until ctx is cancelled. Directories are watched rather than
// files so that editors replacing a file on save are noticed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	dirs := map[string]bool{filepath.Dir(w.treePath): true}
	if w.configPath != "" {
		dirs[filepath.Dir(w.configPath)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.logger.Infof("watching tree: %s", w.treePath)
	if w.configPath != "" {
		w.logger.Infof("watching config: %s", w.configPath)
	}

	var (
		timer   *time.Timer
		settled <-chan time.Time
		pending Change
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			change, relevant := w.classify(event.Name)
			if !relevant {
				continue
			}

			// A config change wins over tree changes in the same burst
			if !pending.Config {
				pending = change
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			settled = timer.C

		case <-settled:
			settled = nil
			w.mu.Lock()
			w.changeSeq++
			pending.Seq = w.changeSeq
			w.mu.Unlock()

			if pending.Config {
				w.logger.Infof("config changed: %s", pending.Path)
			} else {
				w.logger.Infof("tree changed: %s", pending.Path)
			}
			w.onChange(pending)
			pending = Change{}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) classify(name string) (Change, bool) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return Change{}, false
	}
	switch abs {
	case w.treePath:
		return Change{Path: abs}, true
	case w.configPath:
		return Change{Path: abs, Config: true}, w.configPath != ""
	}
	return Change{}, false
}

// Seq returns the number of settled changes so far
func (w *Watcher) Seq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}
