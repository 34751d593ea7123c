// Package watcher reports changes to a single configuration file.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename or replace are still observed. Bursts of
// events are coalesced: the callback runs once the file has been quiet for
// the debounce interval.
package watcher

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet interval before a change is reported.
const DefaultDebounce = 100 * time.Millisecond

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Op is the kind of change that triggered a reload.
type Op uint32

// Operations, combinable when several arrive within one debounce window.
const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

// String returns a readable form such as "write|rename".
func (op Op) String() string {
	var s string
	add := func(bit Op, name string) {
		if op&bit == 0 {
			return
		}
		if s != "" {
			s += "|"
		}
		s += name
	}
	add(OpCreate, "create")
	add(OpWrite, "write")
	add(OpRemove, "remove")
	add(OpRename, "rename")
	if s == "" {
		return "none"
	}
	return s
}

// Event is a coalesced change to the watched file.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler is called from the watcher goroutine after a change settles.
type Handler func(Event)

// Stats describes watcher activity.
type Stats struct {
	Raw       int64 // fsnotify events for the watched file
	Delivered int64 // handler invocations
	Errors    int64
	LastError error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher watches one file.
type Watcher struct {
	mu sync.Mutex

	fsw      *fsnotify.Watcher
	path     string
	handler  Handler
	debounce time.Duration
	logger   *log.Logger

	pending Op
	timer   *time.Timer

	raw       atomic.Int64
	delivered atomic.Int64
	errs      atomic.Int64
	lastError error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New starts watching path. The file need not exist yet but its directory must.
func New(path string, handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher: nil handler")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   log.New(io.Discard),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	w.fsw = fsw

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher. A pending change is dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.fsw.Close()
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Raw:       w.raw.Load(),
		Delivered: w.delivered.Load(),
		Errors:    w.errs.Load(),
		LastError: w.lastError,
	}
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError(err)
		}
	}
}

func (w *Watcher) handleFSEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	op := convertOp(ev.Op)
	if op == 0 {
		return
	}
	w.raw.Add(1)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending |= op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.closed || w.pending == 0 {
		w.mu.Unlock()
		return
	}
	ev := Event{Path: w.path, Op: w.pending, Time: time.Now()}
	w.pending = 0
	w.mu.Unlock()

	w.delivered.Add(1)
	w.handler(ev)
}

// convertOp maps fsnotify operations, ignoring chmod.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

func (w *Watcher) recordError(err error) {
	w.errs.Add(1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
	w.logger.Warn("config watch error", "path", w.path, "err", err)
}
