// Package watcher feeds documents dropped into the intake directory to the
// processing pool. The intake layout is intake/<callerID>/<file>: the
// subdirectory names the caller the document belongs to.
package watcher

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/curalog/curalog/internal/fileid"
	"github.com/curalog/curalog/internal/models"
)

// Writes are debounced so a file still being copied in is not picked up
// half-written.
const defaultDebounce = 400 * time.Millisecond

// Submitter schedules a document for background processing.
type Submitter interface {
	Submit(doc models.RawDocument) (string, error)
}

// Watcher watches the intake directory and submits stable files.
type Watcher struct {
	root       string
	stagingDir string
	extensions []string
	submitter  Submitter
	debounce   time.Duration
	logger     *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the write-settle window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets a logger for intake events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates an intake watcher. root is the intake directory, stagingDir
// receives the staged copies handed to the pipeline (which deletes them
// after the run), extensions filters accepted files.
func New(root, stagingDir string, extensions []string, submitter Submitter, opts ...Option) *Watcher {
	w := &Watcher{
		root:       root,
		stagingDir: stagingDir,
		extensions: extensions,
		submitter:  submitter,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. Existing files in the intake tree are submitted
// first, then changes are followed until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	for _, dir := range []string{w.root, w.stagingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			w.mu.Unlock()
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	w.mu.Unlock()

	if err := w.watchTree(w.root); err != nil {
		_ = fsw.Close()
		return err
	}
	w.syncExisting()

	go w.run(ctx)
	return nil
}

// Stop halts the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("intake watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			// New caller directory: watch it and pick up anything already inside.
			if err := w.watchTree(ev.Name); err != nil {
				w.logger.Warn("failed to watch new intake directory",
					zap.String("path", ev.Name), zap.Error(err))
			}
			w.syncExisting()
			return
		}
		if w.accepts(ev.Name) {
			w.schedule(ev.Name)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

// schedule (re)arms the debounce timer for a file; the file is submitted
// once no write has arrived for the full window.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.intake(path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// intake stages the file and submits it. The original is removed from the
// intake directory; the staged copy is owned (and deleted) by the pipeline.
func (w *Watcher) intake(path string) {
	callerID, err := w.callerFor(path)
	if err != nil {
		w.logger.Warn("ignoring intake file outside a caller directory",
			zap.String("path", path), zap.Error(err))
		return
	}
	documentID := fileid.DocumentID(path)

	staged := filepath.Join(w.stagingDir, documentID+strings.ToLower(filepath.Ext(path)))
	if err := copyFile(path, staged); err != nil {
		w.logger.Warn("failed to stage intake file",
			zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Remove(path); err != nil {
		w.logger.Warn("failed to remove intake file",
			zap.String("path", path), zap.Error(err))
	}

	jobID, err := w.submitter.Submit(models.RawDocument{
		FilePath:   staged,
		DocumentID: documentID,
		CallerID:   callerID,
		Metadata:   map[string]string{"source": "intake", "title": filepath.Base(path)},
		Background: true,
	})
	if err != nil {
		w.logger.Warn("failed to submit intake document",
			zap.String("path", path), zap.Error(err))
		_ = os.Remove(staged)
		return
	}
	w.logger.Info("intake document submitted",
		zap.String("job_id", jobID), zap.String("file", filepath.Base(path)))
}

// callerFor extracts the caller ID from the first path element below the
// intake root.
func (w *Watcher) callerFor(path string) (string, error) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] == ".." || parts[0] == "." || parts[0] == "" {
		return "", fmt.Errorf("no caller directory in %s", rel)
	}
	return parts[0], nil
}

func (w *Watcher) accepts(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// watchTree adds dir and all its subdirectories to the fsnotify watcher.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// syncExisting schedules every acceptable file already present in the tree.
func (w *Watcher) syncExisting() {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.accepts(path) {
			w.schedule(path)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
