// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when bundle archives under a directory
// change.
//
// Events are filtered by doublestar glob patterns relative to the base
// directory and coalesced over a debounce window, so an archive written in
// several steps triggers a single callback carrying every changed path.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is unset.
const DefaultDebounce = 500 * time.Millisecond

var (
	// DefaultPatterns selects bundle archives at any depth.
	DefaultPatterns = []string{"**/*.jar"}

	// ErrInvalidPattern is returned when a watch or ignore glob does not compile.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// defaultIgnores are never watched: VCS metadata, editor swap files and
	// the partial downloads left by build tools.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.swp",
		"**/*~",
		"**/*.part",
		"**/*.tmp",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// BaseDir is the directory tree to watch. Empty means the working directory.
		BaseDir string
		// Patterns select the files that trigger a callback. Empty means DefaultPatterns.
		Patterns []string
		// Ignore adds patterns to the built-in ignores.
		Ignore []string
		// Debounce is the quiet period after the last event. Zero or negative
		// values select DefaultDebounce.
		Debounce time.Duration
		// OnChange receives the changed paths relative to BaseDir, sorted.
		OnChange func(ctx context.Context, changed []string) error
		// Logger receives watcher diagnostics. Nil means slog.Default().
		Logger *slog.Logger
	}

	// PatternError names the glob that failed to compile.
	PatternError struct {
		Field   string
		Pattern string
		Err     error
	}

	// Watcher monitors a directory tree and fires a debounced callback when
	// matching files change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		debounce time.Duration
		baseDir  string
		logger   *slog.Logger
		started  atomic.Bool
	}
)

// Error implements the error interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Field, e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidPattern and the doublestar error.
func (e *PatternError) Unwrap() []error { return []error{ErrInvalidPattern, e.Err} }

// Validate checks the watch patterns, then the ignores, and returns the
// first invalid one.
func (c Config) Validate() error {
	fields := []struct {
		name     string
		patterns []string
	}{{"watch", c.Patterns}, {"ignore", c.Ignore}}
	for _, f := range fields {
		for _, pat := range f.patterns {
			if pat == "" || !doublestar.ValidatePattern(pat) {
				return &PatternError{Field: f.name, Pattern: pat, Err: doublestar.ErrBadPattern}
			}
		}
	}
	return nil
}

// New creates a Watcher and registers every non-ignored directory under
// BaseDir with fsnotify.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		baseDir = wd
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: cfg.Patterns,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		debounce: cfg.Debounce,
		baseDir:  absBase,
		logger:   cfg.Logger,
	}
	if len(w.patterns) == 0 {
		w.patterns = DefaultPatterns
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Warn("failed to close watcher after init failure", "error", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// BaseDir returns the absolute directory being watched.
func (w *Watcher) BaseDir() string { return w.baseDir }

// Run blocks until ctx is canceled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when fsnotify fails fatally.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire drains the pending set. A run still in progress reschedules
	// instead of overlapping, so pending paths are not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous run still in progress, rescheduling")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		if w.cfg.OnChange == nil {
			return
		}
		if err := w.cfg.OnChange(ctx, changed); err != nil {
			w.logger.Error("change callback failed", "changed", len(changed), "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("failed to close fsnotify watcher", "error", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name, rel)
			}
			if w.isIgnored(rel) || !w.matches(rel) {
				continue
			}

			mu.Lock()
			pending[filepath.ToSlash(rel)] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("%w: %w", ErrWatchExhausted, err)
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// addDirectories registers every non-ignored directory under the base.
// Inaccessible directories are logged and skipped.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.baseDir, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "error", walkDirErr)
			return nil //nolint:nilerr // inaccessible paths are skipped
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.baseDir, path)
		if relErr != nil {
			return nil //nolint:nilerr // paths outside the base are skipped
		}
		if rel != "." && w.isIgnoredDir(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir extends the watch to a directory created after startup.
func (w *Watcher) maybeAddDir(path, rel string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || w.isIgnoredDir(rel) {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", addErr)
	}
}

func (w *Watcher) isIgnoredDir(rel string) bool {
	return w.isIgnored(rel) || w.isIgnored(rel+"/")
}

func (w *Watcher) isIgnored(rel string) bool {
	return matchAny(w.ignores, rel)
}

func (w *Watcher) matches(rel string) bool {
	return matchAny(w.patterns, rel)
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}
