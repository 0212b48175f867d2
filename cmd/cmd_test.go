package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lance13c/replyctl/internal/engine"
	"github.com/lance13c/replyctl/internal/logging"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	appConfig, configErr, cfgFile = nil, nil, ""
	for name, def := range map[string]string{"url": "", "remote": "", "headless": "false", "force": "false", "whole-word": "false"} {
		require.NoError(t, initCmd.Flags().Set(name, def))
	}
	t.Cleanup(func() {
		if prev := logging.SetLogger(nil); prev != nil {
			prev.Close()
		}
	})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestInitVarsAndHistory(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "-p", dir, "init", "--url", "https://chat.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, ".replyctl", "config.yaml"))

	_, err = execute(t, "-p", dir, "init")
	assert.Error(t, err)

	out, err = execute(t, "-p", dir, "vars", "add", "name", "John\nSmith")
	require.NoError(t, err)
	assert.Contains(t, out, "Added candidate 1 to {name}")

	_, err = execute(t, "-p", dir, "vars", "add", "name", "Alice")
	require.NoError(t, err)

	out, err = execute(t, "-p", dir, "vars", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "{name} (2 candidates)")

	out, err = execute(t, "-p", dir, "vars", "remove", "name", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	out, err = execute(t, "-p", dir, "vars", "list", "name")
	require.NoError(t, err)
	assert.Equal(t, "1. Alice\n", out)

	out, err = execute(t, "-p", dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No acquisitions yet.")
}

func TestInitWholeWord(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "-p", dir, "init", "--url", "https://chat.example.com", "--force", "--whole-word")
	require.NoError(t, err)
	assert.NotContains(t, out, "trivial_whole_word is off")

	data, err := os.ReadFile(filepath.Join(dir, ".replyctl", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "trivial_whole_word: true")
}

func TestReport(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&stdout)
	c.SetErr(&stderr)

	require.NoError(t, report(c, engine.Outcome{Kind: engine.Success, Text: "reply", Location: "out.md"}))
	assert.Equal(t, "reply\n", stdout.String())
	assert.Contains(t, stderr.String(), "out.md")

	stdout.Reset()
	require.NoError(t, report(c, engine.Outcome{Kind: engine.RegenerateExhausted, Text: "fallback"}))
	assert.Equal(t, "fallback\n", stdout.String())
	assert.Contains(t, stderr.String(), "fallback message")

	err := report(c, engine.Outcome{Kind: engine.RegenerateExhausted, Cause: engine.SendFailed})
	assert.ErrorIs(t, err, engine.ErrRegenerateExhausted)
	assert.Contains(t, err.Error(), "send_failed")
}

func TestInspectSavedPage(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "-p", dir, "init", "--url", "https://chat.example.com")
	require.NoError(t, err)

	page := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><body>
<textarea></textarea>
<div message-content-id="4">hello</div>
<button class="regen">Regenerate</button>
</body></html>`), 0644))

	out, err := execute(t, "-p", dir, "inspect", page)
	require.NoError(t, err)
	assert.Contains(t, out, "Turns: 1")
	assert.Contains(t, out, `button.regen  "Regenerate"`)
	assert.NotContains(t, out, "no input matched")
}
