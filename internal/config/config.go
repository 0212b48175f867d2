package config

import (
	"strconv"
	"time"

	"github.com/lance13c/replyctl/internal/browser"
	"github.com/lance13c/replyctl/internal/engine"
	"github.com/lance13c/replyctl/internal/sanitize"
	"github.com/lance13c/replyctl/internal/watcher"
)

// Config represents the complete replyctl configuration
type Config struct {
	Browser     BrowserConfig       `yaml:"browser"`
	Selectors   browser.Selectors   `yaml:"selectors"`
	Acquisition AcquisitionConfig   `yaml:"acquisition"`
	Fallback    FallbackConfig      `yaml:"fallback"`
	Sanitizer   SanitizerConfig     `yaml:"sanitizer"`
	Output      OutputConfig        `yaml:"output"`
	Inbox       watcher.InboxConfig `yaml:"inbox"`
	LogLevel    string              `yaml:"log_level"`
	Meta        MetaConfig          `yaml:"meta"`
}

// BrowserConfig holds Chrome launch and attach settings
type BrowserConfig struct {
	URL           string        `yaml:"url"`
	RemoteURL     string        `yaml:"remote_url,omitempty"` // attach to a running Chrome (host:port or ws URL)
	ChromePath    string        `yaml:"chrome_path,omitempty"`
	ProfileDir    string        `yaml:"profile_dir,omitempty"`
	Headless      bool          `yaml:"headless"`
	WindowWidth   int           `yaml:"window_width"`
	WindowHeight  int           `yaml:"window_height"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
	VerifyDelay   time.Duration `yaml:"verify_delay"` // wait before checking a submit strategy worked
}

// AcquisitionConfig exposes every completion and retry threshold
type AcquisitionConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPolls        int           `yaml:"max_polls"`
	StablePolls     int           `yaml:"stable_polls"`
	MarkerMinLength int           `yaml:"marker_min_length"`
	StableMinLength int           `yaml:"stable_min_length"`
	SettleDelay     time.Duration `yaml:"settle_delay"`

	RetryCeiling   int           `yaml:"retry_ceiling"`
	BackoffMin     time.Duration `yaml:"backoff_min"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	TimeoutRetries int           `yaml:"timeout_retries"`
	SubmitRetries  int           `yaml:"submit_retries"`

	RegenerateKeywords   []string `yaml:"regenerate_keywords"`
	GeneratingIndicators []string `yaml:"generating_indicators"`
}

// FallbackConfig controls the fallback message cycle
type FallbackConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Message          string   `yaml:"message"`
	MaxCycles        int      `yaml:"max_cycles"`
	MinLength        int      `yaml:"min_length"`
	EchoPrefixLength int      `yaml:"echo_prefix_length"`
	TrivialResponses []string `yaml:"trivial_responses"`
	TrivialWholeWord bool     `yaml:"trivial_whole_word"` // match the denylist against words instead of substrings
}

// SanitizerConfig holds the chrome labels stripped from replies
type SanitizerConfig struct {
	ChromeMarkers  []string `yaml:"chrome_markers"`
	TrailingLabels []string `yaml:"trailing_labels"`
	TailFraction   float64  `yaml:"tail_fraction"`
}

// OutputConfig holds where results are written
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Database  string `yaml:"database"`
	Variables string `yaml:"variables"`
}

// MetaConfig holds metadata about the configuration
type MetaConfig struct {
	Version   string    `yaml:"version"`
	CreatedAt time.Time `yaml:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at"`
}

// DefaultFallbackMessage asks the remote assistant to answer again in full.
const DefaultFallbackMessage = "先ほどの質問にもう一度、省略せずに詳しく回答してください。"

// DefaultConfig returns a new config with sensible defaults
func DefaultConfig() *Config {
	now := time.Now()
	ec := engine.DefaultConfig()
	return &Config{
		Browser: BrowserConfig{
			ProfileDir:    browser.DefaultProfileDir(),
			WindowWidth:   1280,
			WindowHeight:  900,
			ActionTimeout: 10 * time.Second,
			VerifyDelay:   800 * time.Millisecond,
		},
		Selectors: browser.DefaultSelectors(),
		Acquisition: AcquisitionConfig{
			PollInterval:         ec.PollInterval,
			MaxPolls:             ec.MaxPolls,
			StablePolls:          ec.StablePolls,
			MarkerMinLength:      ec.MarkerMinLength,
			StableMinLength:      ec.StableMinLength,
			SettleDelay:          ec.SettleDelay,
			RetryCeiling:         ec.RetryCeiling,
			BackoffMin:           ec.BackoffMin,
			BackoffMax:           ec.BackoffMax,
			TimeoutRetries:       ec.TimeoutRetries,
			SubmitRetries:        ec.SubmitRetries,
			RegenerateKeywords:   ec.RegenerateKeywords,
			GeneratingIndicators: ec.GeneratingIndicators,
		},
		Fallback: FallbackConfig{
			Enabled:          true,
			Message:          DefaultFallbackMessage,
			MaxCycles:        ec.MaxFallbackCycles,
			MinLength:        ec.FallbackMinLength,
			EchoPrefixLength: ec.EchoPrefixLength,
			TrivialResponses: ec.TrivialResponses,
		},
		Sanitizer: SanitizerConfig{
			ChromeMarkers:  sanitize.DefaultChromeMarkers,
			TrailingLabels: sanitize.DefaultTrailingLabels,
			TailFraction:   sanitize.DefaultTailFraction,
		},
		Output: OutputConfig{
			Dir:       "outputs",
			Database:  ".replyctl/history.db",
			Variables: ".replyctl/variables.yaml",
		},
		Inbox:    watcher.DefaultConfig(),
		LogLevel: "info",
		Meta: MetaConfig{
			Version:   "1.0.0",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Browser.URL == "" && c.Browser.RemoteURL == "" {
		return NewValidationError("browser.url is required unless browser.remote_url is set")
	}

	if c.Selectors.TurnAttribute == "" {
		return NewValidationError("selectors.turn_attribute is required")
	}

	if c.Fallback.Enabled && c.Fallback.Message == "" {
		return NewValidationError("fallback.message is required when fallback is enabled")
	}

	if c.Sanitizer.TailFraction < 0 || c.Sanitizer.TailFraction >= 1 {
		return NewValidationError("sanitizer.tail_fraction must be in [0, 1)")
	}

	if c.Output.Dir == "" {
		return NewValidationError("output.dir is required")
	}

	if err := c.EngineConfig().Validate(); err != nil {
		return NewValidationError("acquisition: " + err.Error())
	}

	return nil
}

// EngineConfig converts the acquisition and fallback sections.
func (c *Config) EngineConfig() engine.Config {
	a := c.Acquisition
	ec := engine.Config{
		PollInterval:    a.PollInterval,
		MaxPolls:        a.MaxPolls,
		StablePolls:     a.StablePolls,
		MarkerMinLength: a.MarkerMinLength,
		StableMinLength: a.StableMinLength,
		SettleDelay:     a.SettleDelay,

		RetryCeiling:   a.RetryCeiling,
		BackoffMin:     a.BackoffMin,
		BackoffMax:     a.BackoffMax,
		TimeoutRetries: a.TimeoutRetries,
		SubmitRetries:  a.SubmitRetries,

		MaxFallbackCycles: c.Fallback.MaxCycles,
		FallbackMinLength: c.Fallback.MinLength,
		EchoPrefixLength:  c.Fallback.EchoPrefixLength,
		TrivialResponses:  c.Fallback.TrivialResponses,
		TrivialWholeWord:  c.Fallback.TrivialWholeWord,

		RegenerateKeywords:   a.RegenerateKeywords,
		GeneratingIndicators: a.GeneratingIndicators,
	}
	if c.Fallback.Enabled {
		ec.FallbackMessage = c.Fallback.Message
	}
	return ec
}

// BrowserOptions converts the browser section.
func (c *Config) BrowserOptions() browser.Options {
	b := c.Browser
	return browser.Options{
		URL:           b.URL,
		RemoteURL:     b.RemoteURL,
		ChromePath:    b.ChromePath,
		ProfileDir:    b.ProfileDir,
		Headless:      b.Headless,
		WindowWidth:   b.WindowWidth,
		WindowHeight:  b.WindowHeight,
		ActionTimeout: b.ActionTimeout,
	}
}

// NewSanitizer builds the sanitizer described by the sanitizer section.
// Empty lists fall back to the defaults.
func (c *Config) NewSanitizer() *sanitize.Sanitizer {
	s := sanitize.New()
	if len(c.Sanitizer.ChromeMarkers) > 0 {
		s.ChromeMarkers = c.Sanitizer.ChromeMarkers
	}
	if len(c.Sanitizer.TrailingLabels) > 0 {
		s.TrailingLabels = c.Sanitizer.TrailingLabels
	}
	if c.Sanitizer.TailFraction > 0 {
		s.TailFraction = c.Sanitizer.TailFraction
	}
	return s
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "config validation error: " + e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func parseEnvInt(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, NewValidationError(name + " must be an integer: " + value)
	}
	return n, nil
}
