package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		i := i
		d.Trigger(func() {
			calls.Add(1)
			last.Store(int32(i))
		})
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Pending() {
		t.Error("Expected a pending callback")
	}

	time.Sleep(150 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
	if last.Load() != 5 {
		t.Errorf("Expected the last callback to run, got %d", last.Load())
	}
	if d.Pending() {
		t.Error("Expected nothing pending after the callback ran")
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("Expected no calls after Cancel, got %d", calls.Load())
	}
}

func TestDebouncerDefaultDuration(t *testing.T) {
	if got := NewDebouncer(0).Duration(); got != DefaultDebounceDuration {
		t.Errorf("Expected %v, got %v", DefaultDebounceDuration, got)
	}
}

func runWatcher(t *testing.T, opts Options) (string, <-chan struct{}, *Watcher) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.json")
	if err := os.WriteFile(path, []byte(`{"node":"a"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	changed := make(chan struct{}, 8)
	opts.Debounce = 20 * time.Millisecond
	opts.Logger = log.New(io.Discard)
	w, err := New(path, func() { changed <- struct{}{} }, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)
	return path, changed, w
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	path, changed, w := runWatcher(t, Options{})

	// A sibling file must not trigger a reload.
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-changed:
		if !w.Polling() {
			t.Fatal("unexpected change for sibling file")
		}
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte(`{"node":"b"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcherPolling(t *testing.T) {
	path, changed, w := runWatcher(t, Options{ForcePoll: true, PollInterval: 20 * time.Millisecond})
	if !w.Polling() {
		t.Fatal("Expected polling mode")
	}

	if err := os.WriteFile(path, []byte(`{"node":"a much longer label"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification while polling")
	}
}

func TestNewRequiresCallback(t *testing.T) {
	if _, err := New("tree.json", nil, Options{}); err == nil {
		t.Error("Expected error for nil callback")
	}
}
