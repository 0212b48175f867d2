package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, body string) string {
	t.Helper()
	path := filepath.Join(root, ConfigDirName, ConfigFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfigNeedsURL(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "browser.url")

	cfg.Browser.URL = "https://chat.example.com"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no turn attribute", func(c *Config) { c.Selectors.TurnAttribute = "" }},
		{"fallback without message", func(c *Config) { c.Fallback.Message = "" }},
		{"tail fraction", func(c *Config) { c.Sanitizer.TailFraction = 1.5 }},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }},
		{"backoff order", func(c *Config) { c.Acquisition.BackoffMax = time.Millisecond }},
		{"negative polls", func(c *Config) { c.Acquisition.MaxPolls = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Browser.URL = "https://chat.example.com"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Browser.RemoteURL = "localhost:9222"
	cfg.Fallback.Enabled = false
	cfg.Fallback.Message = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadSearchesUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
browser:
  url: https://chat.example.com
acquisition:
  poll_interval: 250ms
  max_polls: 30
fallback:
  trivial_whole_word: true
`)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	l := NewLoader(nested)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Browser.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Acquisition.PollInterval)
	assert.Equal(t, 30, cfg.Acquisition.MaxPolls)
	assert.True(t, cfg.Fallback.TrivialWholeWord)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Acquisition.StablePolls)
	assert.Equal(t, "message-content-id", cfg.Selectors.TurnAttribute)

	projectRoot, err := l.GetProjectRoot()
	require.NoError(t, err)
	assert.Equal(t, root, projectRoot)
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "browser:\n  url: https://chat.example.com\n")

	t.Setenv("REPLYCTL_URL", "https://other.example.com")
	t.Setenv("REPLYCTL_HEADLESS", "true")
	t.Setenv("REPLYCTL_MAX_POLLS", "12")
	t.Setenv("REPLYCTL_POLL_INTERVAL", "2s")
	t.Setenv("REPLYCTL_FALLBACK_MESSAGE", "Please answer again.")

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com", cfg.Browser.URL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 12, cfg.Acquisition.MaxPolls)
	assert.Equal(t, 2*time.Second, cfg.Acquisition.PollInterval)
	assert.Equal(t, "Please answer again.", cfg.Fallback.Message)
}

func TestLoadBadEnv(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "browser:\n  url: https://chat.example.com\n")
	t.Setenv("REPLYCTL_MAX_POLLS", "many")

	_, err := NewLoader(root).Load()
	assert.Error(t, err)
}

func TestLoadExplicitPath(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  remote_url: localhost:9222\n"), 0644))

	cfg, err := NewLoader(t.TempDir()).WithPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "localhost:9222", cfg.Browser.RemoteURL)

	_, err = NewLoader(root).WithPath(filepath.Join(root, "missing.yaml")).Load()
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	root := t.TempDir()
	l := NewLoader(root)

	cfg := DefaultConfig()
	cfg.Browser.URL = "https://chat.example.com"
	cfg.Acquisition.SettleDelay = 1500 * time.Millisecond
	require.NoError(t, l.Save(cfg, l.GetConfigPath()))
	assert.True(t, l.IsInitialized())

	loaded, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, loaded.Acquisition.SettleDelay)
	assert.Equal(t, cfg.Fallback.Message, loaded.Fallback.Message)
	assert.Equal(t, cfg.Selectors, loaded.Selectors)
}

func TestEngineConfigMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Fallback.Message = "again please"
	cfg.Fallback.MaxCycles = 4

	ec := cfg.EngineConfig()
	assert.Equal(t, "again please", ec.FallbackMessage)
	assert.Equal(t, 4, ec.MaxFallbackCycles)
	assert.Equal(t, cfg.Acquisition.MarkerMinLength, ec.MarkerMinLength)

	cfg.Fallback.Enabled = false
	assert.Empty(t, cfg.EngineConfig().FallbackMessage)
}

func TestBrowserOptionsAndSanitizer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Browser.URL = "https://chat.example.com"
	cfg.Browser.Headless = true

	opts := cfg.BrowserOptions()
	assert.Equal(t, "https://chat.example.com", opts.URL)
	assert.True(t, opts.Headless)
	assert.Equal(t, 10*time.Second, opts.ActionTimeout)

	cfg.Sanitizer.ChromeMarkers = []string{"[menu]"}
	s := cfg.NewSanitizer()
	assert.Equal(t, "answer", s.Sanitize("answer [menu] Copy"))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("/root", "outputs"), Resolve("/root", "outputs"))
	assert.Equal(t, "/abs/out", Resolve("/root", "/abs/out"))
	assert.Equal(t, "", Resolve("/root", ""))
}
