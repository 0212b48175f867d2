// Package watcher turns a directory into a prompt inbox: every prompt file
// dropped into it is acquired once, in name order, one at a time.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/lance13c/replyctl/internal/logging"
)

const (
	doneDir   = "done"
	failedDir = "failed"
)

// Handler acquires one prompt. path is the inbox file it came from.
type Handler func(ctx context.Context, path, prompt string) error

// InboxConfig configures the inbox watcher.
type InboxConfig struct {
	DebounceMS int      `yaml:"debounce_ms"`
	Patterns   []string `yaml:"patterns"`
	// MinInterval spaces out consecutive acquisitions. Zero disables it.
	MinInterval time.Duration `yaml:"min_interval"`
}

// DefaultConfig returns sensible defaults for the inbox.
func DefaultConfig() InboxConfig {
	return InboxConfig{
		DebounceMS: 500,
		Patterns:   []string{"*.txt", "*.md"},
	}
}

// Inbox watches a directory for prompt files.
type Inbox struct {
	dir      string
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration
	patterns []string
	limiter  *rate.Limiter

	mu         sync.RWMutex
	isWatching bool
	pending    map[string]time.Time
	processed  int
}

// NewInbox creates the inbox directory (with its done/ and failed/
// subdirectories) and a watcher for it.
func NewInbox(dir string, config InboxConfig, handler Handler) (*Inbox, error) {
	if handler == nil {
		return nil, fmt.Errorf("inbox handler is required")
	}
	for _, d := range []string{dir, filepath.Join(dir, doneDir), filepath.Join(dir, failedDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if config.DebounceMS <= 0 {
		config.DebounceMS = DefaultConfig().DebounceMS
	}
	if len(config.Patterns) == 0 {
		config.Patterns = DefaultConfig().Patterns
	}

	in := &Inbox{
		dir:      dir,
		watcher:  w,
		handler:  handler,
		debounce: time.Duration(config.DebounceMS) * time.Millisecond,
		patterns: config.Patterns,
		pending:  make(map[string]time.Time),
	}
	if config.MinInterval > 0 {
		in.limiter = rate.NewLimiter(rate.Every(config.MinInterval), 1)
	}
	return in, nil
}

// Dir returns the watched directory.
func (in *Inbox) Dir() string {
	return in.dir
}

// Start processes files already in the inbox, then watches for new ones
// until ctx is cancelled.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.isWatching {
		in.mu.Unlock()
		return fmt.Errorf("inbox is already running")
	}
	in.isWatching = true
	in.mu.Unlock()
	defer in.Stop()

	if err := in.watcher.Add(in.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", in.dir, err)
	}

	existing, err := in.scan()
	if err != nil {
		return err
	}
	in.process(ctx, existing)

	ticker := time.NewTicker(in.debounce)
	defer ticker.Stop()

	logging.Info("Watching inbox %s (debounce: %s)", in.dir, in.debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-in.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if in.shouldIgnoreEvent(event) {
				continue
			}
			in.mu.Lock()
			in.pending[event.Name] = time.Now()
			in.mu.Unlock()

		case err, ok := <-in.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			logging.Warn("Inbox watcher error: %v", err)

		case <-ticker.C:
			in.process(ctx, in.ready())
		}
	}
}

// Stop closes the underlying watcher.
func (in *Inbox) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.isWatching {
		in.watcher.Close()
		in.isWatching = false
	}
}

// Processed returns how many prompt files have been handled.
func (in *Inbox) Processed() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.processed
}

func (in *Inbox) scan() ([]string, error) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(in.dir, e.Name())
		if in.matches(path) {
			files = append(files, path)
		}
	}
	return files, nil
}

func (in *Inbox) shouldIgnoreEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Write == 0 && event.Op&fsnotify.Create == 0 {
		return true
	}
	if filepath.Dir(event.Name) != filepath.Clean(in.dir) {
		return true
	}
	return !in.matches(event.Name)
}

func (in *Inbox) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, pattern := range in.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// ready returns pending files whose last write is older than the debounce.
func (in *Inbox) ready() []string {
	in.mu.Lock()
	defer in.mu.Unlock()

	threshold := time.Now().Add(-in.debounce)
	var files []string
	for file, ts := range in.pending {
		if ts.Before(threshold) {
			files = append(files, file)
			delete(in.pending, file)
		}
	}
	return files
}

func (in *Inbox) process(ctx context.Context, files []string) {
	sort.Strings(files)
	for _, file := range files {
		if ctx.Err() != nil {
			return
		}
		if in.limiter != nil {
			if err := in.limiter.Wait(ctx); err != nil {
				return
			}
		}
		in.handle(ctx, file)
	}
}

func (in *Inbox) handle(ctx context.Context, file string) {
	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		logging.Error("Failed to read prompt file %s: %v", file, err)
		return
	}

	prompt := strings.TrimSpace(string(data))
	dest := doneDir
	if prompt == "" {
		logging.Warn("Skipping empty prompt file %s", file)
		dest = failedDir
	} else if err := in.handler(ctx, file, prompt); err != nil {
		logging.Error("Prompt file %s failed: %v", filepath.Base(file), err)
		dest = failedDir
	}

	target := filepath.Join(in.dir, dest, filepath.Base(file))
	if err := os.Rename(file, target); err != nil {
		logging.Error("Failed to move %s to %s: %v", file, dest, err)
	}

	in.mu.Lock()
	in.processed++
	in.mu.Unlock()
}
