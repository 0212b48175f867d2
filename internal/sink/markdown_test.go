package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 10, 19, 9, 30, 5, 0, time.Local) }
}

func TestMarkdownPersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	m := NewMarkdown(dir)
	m.now = fixedClock()

	path, err := m.Persist(context.Background(), "describe Fuji", "Fuji is a mountain.")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "output_001_20261019_093005.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Acquired reply #1\n\n**Date**: 2026-10-19 09:30:05\n\n**Prompt**: describe Fuji\n\n---\n\nFuji is a mountain.\n", string(data))

	path, err = m.Persist(context.Background(), "again", "second")
	require.NoError(t, err)
	assert.Equal(t, "output_002_20261019_093005.md", filepath.Base(path))
}

func TestMarkdownContinuesNumbering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"output_007_20250101_000000.md", "output_003_20250101_000000.md", "notes.md", "output_x.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	m := NewMarkdown(dir)
	m.now = fixedClock()

	path, err := m.Persist(context.Background(), "p", "r")
	require.NoError(t, err)
	assert.Equal(t, "output_008_20261019_093005.md", filepath.Base(path))
}

func TestMarkdownHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMarkdown(t.TempDir()).Persist(ctx, "p", "r")
	assert.ErrorIs(t, err, context.Canceled)
}
