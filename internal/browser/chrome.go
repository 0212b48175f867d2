package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/lance13c/replyctl/internal/logging"
)

// hideWebdriver runs before any page script so the chat site does not see an
// automated browser.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// Options controls how the browser is started or attached.
type Options struct {
	URL string
	// RemoteURL attaches to an already running Chrome instead of launching
	// one. Accepts host:port, http://host:port or a DevTools ws URL.
	RemoteURL    string
	ChromePath   string
	ProfileDir   string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	// ActionTimeout bounds every single browser round trip.
	ActionTimeout time.Duration
}

// Manager owns one browser tab.
type Manager struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	opts        Options
}

// FindChrome looks for a Chrome or Chromium executable in the usual places.
func FindChrome() (string, error) {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "linux":
		paths = []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Chromium\Application\chrome.exe`,
		}
	}

	for _, path := range paths {
		if filepath.IsAbs(path) {
			if _, err := os.Stat(path); err == nil {
				logging.Debug("Found Chrome at: %s", path)
				return path, nil
			}
			continue
		}
		if found, err := exec.LookPath(path); err == nil {
			logging.Debug("Found Chrome at: %s", found)
			return found, nil
		}
	}

	if path, err := exec.LookPath("chrome"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("Chrome browser not found. Please install Chrome, Chromium, or Brave")
}

// DefaultProfileDir is where login state is kept between runs.
func DefaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chrome_automation_profile"
	}
	return filepath.Join(home, ".chrome_automation_profile")
}

func (o Options) allocator(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if o.RemoteURL != "" {
		wsURL, err := ResolveWebSocketURL(ctx, o.RemoteURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve DevTools endpoint: %w", err)
		}
		logging.Info("Attaching to running Chrome at %s", wsURL)
		allocCtx, cancel := chromedp.NewRemoteAllocator(context.Background(), wsURL)
		return allocCtx, cancel, nil
	}

	chromePath := o.ChromePath
	if chromePath == "" {
		found, err := FindChrome()
		if err != nil {
			return nil, nil, err
		}
		chromePath = found
	}
	logging.Info("Using Chrome from: %s", chromePath)

	profile := o.ProfileDir
	if profile == "" {
		profile = DefaultProfileDir()
	}
	if err := os.MkdirAll(profile, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create profile directory: %w", err)
	}
	logging.Info("Chrome profile directory: %s", profile)

	w, h := o.WindowWidth, o.WindowHeight
	if w <= 0 || h <= 0 {
		w, h = 1280, 900
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.UserDataDir(profile),
		chromedp.WindowSize(w, h),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)
	if !o.Headless {
		logging.Info("Chrome will run in visible mode")
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return allocCtx, cancel, nil
}

// NewManager launches or attaches to Chrome, installs the webdriver mask and
// navigates to opts.URL when set.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = 10 * time.Second
	}

	allocCtx, allocCancel, err := opts.allocator(ctx)
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logging.Debug("[Chrome] "+format, v...)
		}),
	)

	// Starting Chrome must not use a timeout context: cancelling it would
	// close the browser.
	if err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
		return err
	})); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	m := &Manager{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         tabCtx,
		cancel:      cancel,
		opts:        opts,
	}

	if opts.URL != "" {
		logging.Info("Chrome started. Navigating to %s...", opts.URL)
		if err := m.Navigate(ctx, opts.URL); err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

// Run executes actions on the tab. The round trip is bounded by
// ActionTimeout and stops early when ctx is done.
func (m *Manager) Run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(m.ctx, m.opts.ActionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if m.ctx.Err() != nil {
			return fmt.Errorf("Chrome context was cancelled")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate opens url in the tab.
func (m *Manager) Navigate(ctx context.Context, url string) error {
	if err := m.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// Evaluate runs a script and decodes its JSON result into res.
func (m *Manager) Evaluate(ctx context.Context, script string, res interface{}) error {
	return m.Run(ctx, chromedp.Evaluate(script, res))
}

// Location returns the tab's current URL and title.
func (m *Manager) Location(ctx context.Context) (url string, title string, err error) {
	err = m.Run(ctx, chromedp.Location(&url), chromedp.Title(&title))
	return url, title, err
}

// Done is closed when the browser goes away.
func (m *Manager) Done() <-chan struct{} {
	return m.ctx.Done()
}

// Close closes the tab and, when launched by us, the browser.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
}
