package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is used when fsnotify cannot watch the directory.
const DefaultPollInterval = 2 * time.Second

// Options configures a Watcher.
type Options struct {
	Debounce     time.Duration
	PollInterval time.Duration
	// ForcePoll skips fsnotify entirely.
	ForcePoll bool
	Logger    *log.Logger
}

// Watcher calls onChange after the watched file changes. The directory is
// watched rather than the file so that editors that save by rename keep
// being noticed.
type Watcher struct {
	path     string
	onChange func()
	opts     Options
	debounce *Debouncer

	mu      sync.Mutex
	polling bool
}

// New returns a watcher for path. Run starts it.
func New(path string, onChange func(), opts Options) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("watcher: onChange is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Watcher{
		path:     abs,
		onChange: onChange,
		opts:     opts,
		debounce: NewDebouncer(opts.Debounce),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Polling reports whether the watcher fell back to polling.
func (w *Watcher) Polling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.polling
}

// Run watches until ctx is cancelled. A pending debounced callback is
// dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debounce.Cancel()

	if !w.opts.ForcePoll {
		fw, err := fsnotify.NewWatcher()
		if err == nil {
			err = fw.Add(filepath.Dir(w.path))
			if err == nil {
				defer fw.Close()
				return w.runNotify(ctx, fw)
			}
			fw.Close()
		}
		w.opts.Logger.Warn("file events unavailable, polling instead", "path", w.path, "err", err)
	}

	w.mu.Lock()
	w.polling = true
	w.mu.Unlock()
	return w.runPoll(ctx)
}

func (w *Watcher) runNotify(ctx context.Context, fw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.opts.Logger.Debug("tree file changed", "path", w.path, "op", ev.Op.String())
				w.debounce.Trigger(w.onChange)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Warn("watch error", "path", w.path, "err", err)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) error {
	last := w.stamp()
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := w.stamp()
			if cur != last {
				last = cur
				w.debounce.Trigger(w.onChange)
			}
		}
	}
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func (w *Watcher) stamp() fileStamp {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{mod: info.ModTime(), size: info.Size()}
}
