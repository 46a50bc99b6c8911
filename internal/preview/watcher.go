package preview

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the files and directories to watch.
	Paths []string

	// Ignore are doublestar patterns, relative to each watched directory,
	// of files to skip.
	Ignore []string

	// Interval is the polling interval (default: 500ms).
	Interval time.Duration
}

type fileState struct {
	modTime time.Time
	size    int64
}

// Watcher polls files for changes. All changes seen in one poll are
// reported together.
type Watcher struct {
	config   WatcherConfig
	mu       sync.Mutex
	snapshot map[string]fileState
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 500 * time.Millisecond
	}
	return &Watcher{config: config}
}

// Run polls until ctx is canceled, calling onChange with the paths that
// were added, modified or removed since the previous poll.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) {
	w.Poll()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if changed := w.Poll(); len(changed) > 0 {
				onChange(changed)
			}
		}
	}
}

// Poll scans the watched paths and returns the sorted paths that changed.
// The first poll records a baseline and reports nothing.
func (w *Watcher) Poll() []string {
	current := w.scan()

	w.mu.Lock()
	previous := w.snapshot
	w.snapshot = current
	w.mu.Unlock()

	if previous == nil {
		return nil
	}

	var changed []string
	for p, state := range current {
		if old, ok := previous[p]; !ok || old != state {
			changed = append(changed, p)
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			changed = append(changed, p)
		}
	}
	sort.Strings(changed)
	return changed
}

func (w *Watcher) scan() map[string]fileState {
	states := make(map[string]fileState)
	for _, root := range w.config.Paths {
		filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if p != root && w.ignored(root, p) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			states[p] = fileState{modTime: info.ModTime(), size: info.Size()}
			return nil
		})
	}
	return states
}

func (w *Watcher) ignored(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.config.Ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
