package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	prompts []string
	fail    string
}

func (c *collector) handle(_ context.Context, _ string, prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	if prompt == c.fail {
		return errors.New("acquisition failed")
	}
	return nil
}

func (c *collector) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}

func startInbox(t *testing.T, dir string, c *collector) (*Inbox, chan error) {
	t.Helper()
	in, err := NewInbox(dir, InboxConfig{DebounceMS: 20}, c.handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return in, done
}

func TestInboxProcessesExistingFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("  first\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("ignored"), 0644))

	c := &collector{}
	in, _ := startInbox(t, dir, c)

	require.Eventually(t, func() bool { return in.Processed() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, c.seen())

	assert.FileExists(t, filepath.Join(dir, "done", "a.txt"))
	assert.FileExists(t, filepath.Join(dir, "done", "b.txt"))
	assert.FileExists(t, filepath.Join(dir, "notes.json"))
}

func TestInboxPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	c := &collector{fail: "broken"}
	in, _ := startInbox(t, dir, c)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.txt"), []byte("hello inbox"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.txt"), []byte("broken"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.txt"), []byte("hidden"), 0644))

	require.Eventually(t, func() bool { return in.Processed() == 2 }, 3*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"hello inbox", "broken"}, c.seen())
	assert.FileExists(t, filepath.Join(dir, "done", "one.txt"))
	assert.FileExists(t, filepath.Join(dir, "failed", "two.txt"))
	assert.FileExists(t, filepath.Join(dir, ".hidden.txt"))
}

func TestInboxEmptyFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("   \n"), 0644))

	c := &collector{}
	in, _ := startInbox(t, dir, c)

	require.Eventually(t, func() bool { return in.Processed() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, c.seen())
	assert.FileExists(t, filepath.Join(dir, "failed", "empty.txt"))
}

func TestInboxStopsOnCancel(t *testing.T) {
	in, err := NewInbox(t.TempDir(), InboxConfig{DebounceMS: 20}, (&collector{}).handle)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("inbox did not stop")
	}
}

func TestNewInboxRequiresHandler(t *testing.T) {
	_, err := NewInbox(t.TempDir(), DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestInboxMinInterval(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.txt", "2.txt", "3.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0644))
	}

	var mu sync.Mutex
	var stamps []time.Time
	handler := func(context.Context, string, string) error {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		return nil
	}

	in, err := NewInbox(dir, InboxConfig{DebounceMS: 20, MinInterval: 50 * time.Millisecond}, handler)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Start(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool { return in.Processed() == 3 }, 3*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[0]), 90*time.Millisecond)
}
