// Package watcher watches the mapping resources of directory roots and
// signals, debounced, when any of them changes.
package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/nsresolve/internal/log"
)

// Watcher monitors mapping resources for changes and sends notifications.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	roots     []string
	resource  string
	targets   map[string]bool   // resource file in every root
	dirs      map[string]string // directory below a root leading to a resource, to that resource
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Roots are the directories searched for the resource.
	Roots []string
	// ResourcePath is the slash-separated path of the resource inside each root.
	ResourcePath string
	DebounceDur  time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(resourcePath string, roots ...string) Config {
	return Config{
		Roots:        roots,
		ResourcePath: resourcePath,
		DebounceDur:  100 * time.Millisecond,
	}
}

// New creates a new resource watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.ResourcePath == "" {
		return nil, errors.New("resource path is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		roots:     cfg.Roots,
		resource:  filepath.FromSlash(cfg.ResourcePath),
		targets:   make(map[string]bool),
		dirs:      make(map[string]string),
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, root := range cfg.Roots {
		root = filepath.Clean(root)
		target := filepath.Join(root, w.resource)
		w.targets[target] = true
		for _, dir := range between(root, target) {
			w.dirs[dir] = target
		}
	}
	return w, nil
}

// between returns the directories strictly below root that contain target,
// outermost first.
func between(root, target string) []string {
	rel, err := filepath.Rel(root, filepath.Dir(target))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	parts := strings.Split(rel, string(filepath.Separator))
	dirs := make([]string, 0, len(parts))
	dir := root
	for _, part := range parts {
		dir = filepath.Join(dir, part)
		dirs = append(dirs, dir)
	}
	return dirs
}

// Start begins watching. Every root must exist; resource directories in a
// root, at any depth, are picked up when they are created later.
// Returns a channel that receives a signal when a resource changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, root := range w.roots {
		if err := w.fsWatcher.Add(root); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", root, err)
		}
	}
	for dir := range w.dirs {
		w.addIfExists(dir)
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) addIfExists(dir string) bool {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
		return false
	}
	if err == nil {
		err = w.fsWatcher.Add(dir)
	}
	if err != nil {
		log.ErrorErr(log.CatWatcher, "Failed to watch resource directory", err, "dir", dir)
		return false
	}
	log.Debug(log.CatWatcher, "Watching resource directory", "dir", dir)
	return true
}

// watchDown watches dir and every existing directory below it on the way to
// its resource. Reports whether the resource itself already exists.
func (w *Watcher) watchDown(dir string) bool {
	target := w.dirs[dir]
	if !w.addIfExists(dir) {
		return false
	}
	for _, d := range between(dir, target) {
		if !w.addIfExists(d) {
			return false
		}
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			if !w.isRelevantEvent(event) {
				continue
			}
			log.Debug(log.CatWatcher, "Resource event", "name", event.Name, "op", event.Op.String())

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
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Non-blocking send - drop if channel full
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "Watcher error", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent reports whether event touches a watched resource. Creating
// a resource directory also starts watching it, and counts as a change when
// the resource already appeared beneath it.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	name := filepath.Clean(event.Name)

	if _, ok := w.dirs[name]; ok && event.Op&fsnotify.Create != 0 {
		return w.watchDown(name)
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return w.targets[name]
}
