package jobs

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/renunganku/api/internal/service"
)

// BlogImporter upserts blog articles from content files
type BlogImporter interface {
	ImportDir(ctx context.Context, dir string) (int, error)
	ImportFile(ctx context.Context, file string) error
}

// debounce coalesces the bursts of write events editors produce
const blogWatchDebounce = 300 * time.Millisecond

// BlogContentWatcher imports the blog content directory at start and
// re-imports files as they change
type BlogContentWatcher struct {
	blog BlogImporter
	dir  string

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewBlogContentWatcher creates a watcher over dir
func NewBlogContentWatcher(blog BlogImporter, dir string) *BlogContentWatcher {
	return &BlogContentWatcher{blog: blog, dir: dir}
}

// Start runs the initial import and begins watching. A missing directory
// disables watching without failing startup.
func (w *BlogContentWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := w.RunOnce(ctx); err != nil {
		slog.Error("blog import failed", slog.String("job", "blog_watcher"), slog.String("error", err.Error()))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		slog.Warn("blog content dir not watched",
			slog.String("job", "blog_watcher"),
			slog.String("dir", w.dir),
			slog.String("error", err.Error()))
		return nil
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true
	w.wg.Add(1)
	go w.run(watcher, w.stopCh)
	slog.Info("job started", slog.String("job", "blog_watcher"), slog.String("dir", w.dir))
	return nil
}

// Stop closes the watcher
func (w *BlogContentWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	_ = w.watcher.Close()
	w.mu.Unlock()

	w.wg.Wait()
	slog.Info("job stopped", slog.String("job", "blog_watcher"))
}

// IsRunning returns whether the directory is being watched
func (w *BlogContentWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce imports every content file in the directory
func (w *BlogContentWatcher) RunOnce(ctx context.Context) error {
	n, err := w.blog.ImportDir(ctx, w.dir)
	if err != nil {
		return err
	}
	slog.Info("blog content imported", slog.String("job", "blog_watcher"), slog.Int("count", n))
	return nil
}

func (w *BlogContentWatcher) run(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	defer w.wg.Done()

	pending := make(map[string]struct{})
	timer := time.NewTimer(blogWatchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !service.IsBlogContentFile(filepath.Base(event.Name)) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(blogWatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("blog watcher error", slog.String("job", "blog_watcher"), slog.String("error", err.Error()))

		case <-timer.C:
			for file := range pending {
				w.importFile(file)
			}
			clear(pending)
		}
	}
}

func (w *BlogContentWatcher) importFile(file string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := w.blog.ImportFile(ctx, file); err != nil {
		slog.Warn("blog content file rejected",
			slog.String("job", "blog_watcher"),
			slog.String("file", file),
			slog.String("error", err.Error()))
		return
	}
	slog.Info("blog content reloaded", slog.String("job", "blog_watcher"), slog.String("file", file))
}
