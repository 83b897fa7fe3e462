// Package tailer watches a directory tree of append-only NDJSON files and
// emits newly-completed lines as they are written. It is used both for the
// assistant's own transcript files and for the hook side-channel directory
// (see the teacher CLI's adjacent file-tailing idiom in
// agent/claudecode/transcript.go, generalized here into a reusable
// live-tailing primitive modeled on the fsnotify debounce loop in
// tail-claude's watcher.go).
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// maxDepth bounds how deep under the root directory .jsonl files are
// discovered, per spec: "at any depth (up to 4)".
const maxDepth = 4

// debounceInterval coalesces bursts of writes into a single read, the same
// tactic tail-claude's sessionWatcher uses for its own session file.
const debounceInterval = 150 * time.Millisecond

// fileState tracks the tailing position of a single file.
type fileState struct {
	offset  int64
	pending []byte // unconsumed bytes after the last complete line
}

// DirWatcher tails every ".jsonl" file under a root directory, emitting
// newly appended complete lines in file order as they arrive. It survives
// file truncation, mid-session growth, files and directories that do not
// yet exist, and files created after the watcher starts.
type DirWatcher struct {
	root string

	onLines func(lines []string, filePath string)
	onError func(err error)

	mu     sync.Mutex
	files  map[string]*fileState
	ready  bool
	watch  *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}

	debounceMu sync.Mutex
	debounce   map[string]*time.Timer
}

// New creates a DirWatcher rooted at root. onLines is called with newly
// completed lines (trailing "\n" stripped) and the absolute file path they
// came from; onError is called with non-fatal per-file errors. Either
// callback may be nil.
func New(root string, onLines func(lines []string, filePath string), onError func(err error)) *DirWatcher {
	if onLines == nil {
		onLines = func([]string, string) {}
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &DirWatcher{
		root:     root,
		onLines:  onLines,
		onError:  onError,
		files:    make(map[string]*fileState),
		debounce: make(map[string]*time.Timer),
	}
}

// Start scans the existing tree, recording current file sizes as tracked
// offsets without emitting their pre-existing content, then begins
// watching for changes. Resolves once the initial scan has settled; a
// missing root directory is not an error — the watcher stays alive and
// will pick up the directory if it is created later.
func (w *DirWatcher) Start(ctx context.Context) error {
	watch, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tailer: creating fsnotify watcher: %w", err)
	}
	w.watch = watch

	w.mu.Lock()
	w.scanExisting()
	w.ready = true
	w.mu.Unlock()

	if err := w.watchTree(); err != nil {
		w.onError(fmt.Errorf("tailer: watching %s: %w", w.root, err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(runCtx)

	return nil
}

// Close stops watching and releases all resources. Safe to call once.
func (w *DirWatcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	if w.done != nil {
		<-w.done
	}
	if w.watch != nil {
		return w.watch.Close()
	}
	return nil
}

// scanExisting records the current size of every .jsonl file already on
// disk as its tracked offset, so pre-existing content is treated as
// already-spoken history rather than live output.
func (w *DirWatcher) scanExisting() {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort scan; one bad entry shouldn't abort the walk
		}
		if d.IsDir() {
			if depth(w.root, path) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".jsonl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		w.files[path] = &fileState{offset: info.Size()}
		return nil
	})
}

// watchTree adds fsnotify watches on the root and every existing
// subdirectory up to maxDepth. Missing directories are tolerated.
func (w *DirWatcher) watchTree() error {
	if _, err := os.Stat(w.root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if !d.IsDir() {
			return nil
		}
		if depth(w.root, path) > maxDepth {
			return filepath.SkipDir
		}
		return w.watch.Add(path)
	})
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return len(strings.Split(filepath.ToSlash(rel), "/"))
}

// run is the fsnotify event loop. It debounces writes per file before
// reading, coalescing rapid successive writes into one read just like
// tail-claude's sessionWatcher does for its own session file.
func (w *DirWatcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.stopDebounceTimers()
			return

		case event, ok := <-w.watch.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watch.Errors:
			if !ok {
				return
			}
			w.onError(fmt.Errorf("tailer: watch error: %w", err))
		}
	}
}

func (w *DirWatcher) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if depth(w.root, event.Name) <= maxDepth {
				_ = w.watch.Add(event.Name)
			}
			return
		}
		if !strings.HasSuffix(event.Name, ".jsonl") {
			return
		}
		w.mu.Lock()
		if _, exists := w.files[event.Name]; !exists {
			w.files[event.Name] = &fileState{}
		}
		w.mu.Unlock()
		w.scheduleRead(event.Name)

	case event.Op.Has(fsnotify.Write):
		if !strings.HasSuffix(event.Name, ".jsonl") {
			return
		}
		w.scheduleRead(event.Name)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		// File rotation: drop tracked state so a recreated file is read
		// from offset 0 as a fresh live file.
		w.mu.Lock()
		delete(w.files, event.Name)
		w.mu.Unlock()
	}
}

func (w *DirWatcher) scheduleRead(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounce[path]; ok {
		t.Stop()
	}
	w.debounce[path] = time.AfterFunc(debounceInterval, func() {
		w.readFile(path)
	})
}

func (w *DirWatcher) stopDebounceTimers() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	for _, t := range w.debounce {
		t.Stop()
	}
}

// readFile reads from the tracked offset to EOF, splits on newlines, and
// emits completed lines. Mirrors the incremental-read algorithm in §4.1:
// a trailing fragment without a newline is held back for the next read; a
// file whose size has shrunk below the tracked offset is treated as
// truncated and its offset reset to the new size without emitting anything
// for the truncation itself.
func (w *DirWatcher) readFile(path string) {
	w.mu.Lock()
	state, ok := w.files[path]
	if !ok {
		state = &fileState{}
		w.files[path] = state
	}
	offset := state.offset
	w.mu.Unlock()

	f, err := os.Open(path) //nolint:gosec // path comes from our own watched tree
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.onError(fmt.Errorf("tailer: opening %s: %w", path, err))
		}
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		w.onError(fmt.Errorf("tailer: stat %s: %w", path, err))
		return
	}

	if info.Size() < offset {
		w.mu.Lock()
		state.offset = info.Size()
		state.pending = nil
		w.mu.Unlock()
		return
	}

	if info.Size() == offset {
		return
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		w.onError(fmt.Errorf("tailer: seeking %s: %w", path, err))
		return
	}

	buf := make([]byte, info.Size()-offset)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		w.onError(fmt.Errorf("tailer: reading %s: %w", path, err))
		return
	}
	buf = buf[:n]

	w.mu.Lock()
	data := append(state.pending, buf...) //nolint:gocritic // state.pending is owned by this file's reads, never aliased
	lines, rest := splitCompleteLines(data)
	advanced := int64(len(data) - len(rest))
	state.offset = offset + advanced
	state.pending = rest
	w.mu.Unlock()

	var nonEmpty []string
	for _, line := range lines {
		if line != "" {
			nonEmpty = append(nonEmpty, line)
		}
	}
	if len(nonEmpty) > 0 {
		w.onLines(nonEmpty, path)
	}
}

// splitCompleteLines splits data on "\n", returning every complete line
// (terminator stripped) and any trailing incomplete fragment.
func splitCompleteLines(data []byte) (lines []string, trailing []byte) {
	parts := strings.Split(string(data), "\n")
	if len(parts) == 0 {
		return nil, data
	}
	last := parts[len(parts)-1]
	complete := parts[:len(parts)-1]
	return complete, []byte(last)
}
