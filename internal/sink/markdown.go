// Package sink persists acquired replies.
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/lance13c/replyctl/internal/logging"
)

var outputName = regexp.MustCompile(`^output_(\d+)_\d{8}_\d{6}\.md$`)

// Markdown writes each reply to its own numbered file:
// output_NNN_YYYYMMDD_HHMMSS.md. Numbering continues from files already in
// the directory.
type Markdown struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	counter int
	scanned bool
}

// NewMarkdown returns a sink writing into dir, created on first use.
func NewMarkdown(dir string) *Markdown {
	return &Markdown{dir: dir, now: time.Now}
}

// Dir returns the output directory.
func (m *Markdown) Dir() string {
	return m.dir
}

func (m *Markdown) scan() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read output directory: %w", err)
	}
	for _, e := range entries {
		match := outputName.FindStringSubmatch(e.Name())
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n > m.counter {
			m.counter = n
		}
	}
	return nil
}

// Persist writes the reply and returns the file path.
func (m *Markdown) Persist(ctx context.Context, prompt, final string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.scanned {
		if err := m.scan(); err != nil {
			return "", err
		}
		m.scanned = true
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	m.counter++
	now := m.now()
	name := fmt.Sprintf("output_%03d_%s.md", m.counter, now.Format("20060102_150405"))
	path := filepath.Join(m.dir, name)

	body := fmt.Sprintf("# Acquired reply #%d\n\n**Date**: %s\n\n**Prompt**: %s\n\n---\n\n%s\n",
		m.counter, now.Format("2006-01-02 15:04:05"), prompt, final)

	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		m.counter--
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Info("Saved reply to %s", path)
	return path, nil
}
