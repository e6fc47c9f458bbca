// Package watch re-runs a callback when project files change. Events are
// debounced so an editor's write-then-rename burst produces one run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/simonhull/crucible/internal/filesystem"
	"github.com/simonhull/crucible/internal/logger"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set
const DefaultDebounce = 500 * time.Millisecond

// DefaultIgnore lists editor and OS noise that never triggers a run
var DefaultIgnore = []string{
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// Config holds the parameters for a Watcher
type Config struct {
	Root     string        // Directory to watch recursively (default: working directory)
	Patterns []string      // Doublestar patterns relative to Root; empty matches every file
	Ignore   []string      // Extra patterns merged with DefaultIgnore
	Debounce time.Duration // Quiet period before OnChange fires (default: DefaultDebounce)

	// OnChange receives the sorted, deduplicated paths (relative to Root)
	// that changed since the last call. Calls never overlap.
	OnChange func(ctx context.Context, changed []string) error

	Logger logger.Logger
}

// Watcher monitors a directory tree. Run must be called exactly once.
type Watcher struct {
	cfg     Config
	root    string
	ignore  []string
	fsw     *fsnotify.Watcher
	logger  logger.Logger
	started atomic.Bool
}

// New validates cfg and registers every directory under Root
func New(cfg Config) (*Watcher, error) {
	root := cfg.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	ignore := append(slices.Clone(DefaultIgnore), cfg.Ignore...)
	for _, pattern := range append(slices.Clone(cfg.Patterns), ignore...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("watch: invalid pattern %q", pattern)
		}
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewSilentLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}

	w := &Watcher{
		cfg:    cfg,
		root:   root,
		ignore: ignore,
		fsw:    fsw,
		logger: log,
	}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is cancelled. It returns nil on
// cancellation and an error if the underlying watcher stops unexpectedly.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.cfg.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			rel, ok := w.relevant(evt)
			if !ok {
				continue
			}
			w.logger.Debug("File changed", logger.F("path", rel), logger.F("op", evt.Op.String()))
			pending[rel] = struct{}{}
			timer.Reset(w.cfg.Debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; rerun against whatever is on disk now
				pending["."] = struct{}{}
				timer.Reset(w.cfg.Debounce)
				continue
			}
			w.logger.Warn("Watcher error", logger.F("error", err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for rel := range pending {
				changed = append(changed, rel)
			}
			clear(pending)
			slices.Sort(changed)

			if w.cfg.OnChange == nil || ctx.Err() != nil {
				continue
			}
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Warn("Change handler failed", logger.F("error", err))
			}
		}
	}
}

// relevant filters an event down to a path that should trigger a run. New
// directories are registered on the way so nested files are seen too.
func (w *Watcher) relevant(evt fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.root, evt.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	if evt.Has(fsnotify.Create) {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") || slices.Contains(filesystem.DefaultIgnoreDirs, name) {
				return "", false
			}
			if err := w.addTree(evt.Name); err != nil {
				w.logger.Warn("Cannot watch new directory", logger.F("path", rel), logger.F("error", err))
			}
			return "", false
		}
	}
	if evt.Op == fsnotify.Chmod {
		return "", false
	}

	if filesystem.Match(w.ignore, rel) {
		return "", false
	}
	if len(w.cfg.Patterns) > 0 && !filesystem.Match(w.cfg.Patterns, rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) addTree(dir string) error {
	dirs, err := filesystem.Dirs(dir, filesystem.WalkOptions{})
	if err != nil {
		return fmt.Errorf("watch: walk %s: %w", dir, err)
	}
	for _, d := range dirs {
		if err := w.fsw.Add(d); err != nil {
			return fmt.Errorf("watch: add %s: %w", d, err)
		}
		w.logger.Debug("Watching directory", logger.F("path", d))
	}
	return nil
}
