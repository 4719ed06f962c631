// Package watcher implements the per-project file watcher (spec §4.8):
// recursive filesystem watch over a project's root, debounced and coalesced
// into a single project reload per burst of events.
//
// Grounded on rcourtman-Pulse's fsnotify-based config watcher
// (internal/config/watcher_fsnotify_test.go): a goroutine draining
// fsnotify's Events/Errors channels, with a debounce timer reset on every
// event rather than one timer per event.
package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow is the coalescing window from spec §5: "multiple events
// arriving within an implementation-defined window (<=250ms) produce
// exactly one project reload."
var debounceWindow = 200 * time.Millisecond

// ReloadFunc is called at most once per debounce window when a watched
// project's files change.
type ReloadFunc func(projectName string)

// watchedExtensions are the only file types whose changes trigger a reload
// (spec §4.8): everything else (lockfiles, .git, build output) is ignored.
var watchedExtensions = map[string]bool{
	".malloy":   true,
	".malloynb": true,
	".md":       true,
}

// Status mirrors getWatchStatus's return shape (spec §4.8).
type Status struct {
	Enabled      bool   `json:"enabled"`
	WatchingPath string `json:"watchingPath,omitempty"`
	ProjectName  string `json:"projectName,omitempty"`
}

// Watcher holds at most one active recursive watch (spec §4.8: "One active
// watcher per server; startWatching implicitly replaces any prior
// watcher").
type Watcher struct {
	reload ReloadFunc
	logger *zap.Logger

	mu     sync.Mutex
	active *activeWatch
}

type activeWatch struct {
	fsWatcher   *fsnotify.Watcher
	projectName string
	path        string
	stop        chan struct{}
	done        chan struct{}
}

// New constructs a Watcher that calls reload on debounced changes.
func New(reload ReloadFunc, logger *zap.Logger) *Watcher {
	return &Watcher{reload: reload, logger: logger}
}

// StartWatching begins watching rootPath recursively for projectName,
// replacing any prior watcher (spec §4.8).
func (w *Watcher) StartWatching(projectName, rootPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active != nil {
		w.stopLocked()
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addRecursive(fsWatcher, rootPath); err != nil {
		fsWatcher.Close()
		return err
	}

	aw := &activeWatch{
		fsWatcher:   fsWatcher,
		projectName: projectName,
		path:        rootPath,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	w.active = aw
	go w.run(aw)
	return nil
}

// StopWatchMode closes the active watcher, if any (spec §4.8).
func (w *Watcher) StopWatchMode() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

func (w *Watcher) stopLocked() {
	if w.active == nil {
		return
	}
	close(w.active.stop)
	<-w.active.done
	w.active.fsWatcher.Close()
	w.active = nil
}

// GetWatchStatus returns the current watch state (spec §4.8).
func (w *Watcher) GetWatchStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active == nil {
		return Status{Enabled: false}
	}
	return Status{Enabled: true, WatchingPath: w.active.path, ProjectName: w.active.projectName}
}

func (w *Watcher) run(aw *activeWatch) {
	defer close(aw.done)

	var timer *time.Timer
	var timerC <-chan time.Time

	resetDebounce := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(debounceWindow)
		timerC = timer.C
	}

	for {
		select {
		case <-aw.stop:
			return
		case ev, ok := <-aw.fsWatcher.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 && filepath.Base(ev.Name) != ".git" {
				if info, err := statIsDir(ev.Name); err == nil && info {
					_ = aw.fsWatcher.Add(ev.Name)
				}
			}
			if !relevant(ev.Name) {
				continue
			}
			resetDebounce()
		case err, ok := <-aw.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn("watcher error", zap.String("project", aw.projectName), zap.Error(err))
			}
		case <-timerC:
			timerC = nil
			w.reload(aw.projectName)
		}
	}
}

func relevant(path string) bool {
	return watchedExtensions[strings.ToLower(filepath.Ext(path))]
}

// addRecursive walks rootPath and registers every directory with fsWatcher;
// fsnotify watches are not recursive on their own.
func addRecursive(fsWatcher *fsnotify.Watcher, rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return fsWatcher.Add(path)
	})
}

func statIsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
