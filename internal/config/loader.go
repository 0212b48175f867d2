package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName  = "config.yaml"
	ConfigDirName   = ".replyctl"
	GlobalConfigDir = ".config/replyctl"
)

// Loader handles configuration loading and discovery
type Loader struct {
	startDir string
	path     string
}

// NewLoader creates a new config loader starting from the given directory
func NewLoader(startDir string) *Loader {
	if startDir == "" {
		var err error
		startDir, err = os.Getwd()
		if err != nil {
			startDir = "."
		}
	}

	return &Loader{
		startDir: startDir,
	}
}

// WithPath pins the loader to an explicit config file.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Load loads the configuration with environment variable overrides
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	config, err := l.loadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// findConfigFile searches upward from the start directory for a config file
func (l *Loader) findConfigFile() (string, error) {
	if l.path != "" {
		if _, err := os.Stat(l.path); err != nil {
			return "", err
		}
		return l.path, nil
	}

	dir := l.startDir
	for {
		configPath := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		globalConfig := filepath.Join(homeDir, GlobalConfigDir, ConfigFileName)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched upward from %s)", l.startDir)
}

// loadFromFile loads configuration from a YAML file on top of the defaults,
// so a file only needs the keys it changes.
func (l *Loader) loadFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies REPLYCTL_* environment variables to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	if url := os.Getenv("REPLYCTL_URL"); url != "" {
		config.Browser.URL = url
	}
	if remote := os.Getenv("REPLYCTL_REMOTE_URL"); remote != "" {
		config.Browser.RemoteURL = remote
	}
	if chrome := os.Getenv("REPLYCTL_CHROME_PATH"); chrome != "" {
		config.Browser.ChromePath = chrome
	}
	if profile := os.Getenv("REPLYCTL_PROFILE_DIR"); profile != "" {
		config.Browser.ProfileDir = profile
	}
	if headless := os.Getenv("REPLYCTL_HEADLESS"); headless != "" {
		v, err := strconv.ParseBool(headless)
		if err != nil {
			return NewValidationError("REPLYCTL_HEADLESS must be a boolean: " + headless)
		}
		config.Browser.Headless = v
	}

	if polls := os.Getenv("REPLYCTL_MAX_POLLS"); polls != "" {
		n, err := parseEnvInt("REPLYCTL_MAX_POLLS", polls)
		if err != nil {
			return err
		}
		config.Acquisition.MaxPolls = n
	}
	if ceiling := os.Getenv("REPLYCTL_RETRY_CEILING"); ceiling != "" {
		n, err := parseEnvInt("REPLYCTL_RETRY_CEILING", ceiling)
		if err != nil {
			return err
		}
		config.Acquisition.RetryCeiling = n
	}
	if interval := os.Getenv("REPLYCTL_POLL_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return NewValidationError("REPLYCTL_POLL_INTERVAL must be a duration: " + interval)
		}
		config.Acquisition.PollInterval = d
	}

	if msg := os.Getenv("REPLYCTL_FALLBACK_MESSAGE"); msg != "" {
		config.Fallback.Message = msg
	}
	if dir := os.Getenv("REPLYCTL_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if level := os.Getenv("REPLYCTL_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	return nil
}

// Save saves the configuration to the specified path
func (l *Loader) Save(config *Config, configPath string) error {
	config.Meta.UpdatedAt = time.Now()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the path where a config file should be created
func (l *Loader) GetConfigPath() string {
	if l.path != "" {
		return l.path
	}
	return filepath.Join(l.startDir, ConfigDirName, ConfigFileName)
}

// IsInitialized checks if a config file exists in the project hierarchy
func (l *Loader) IsInitialized() bool {
	_, err := l.findConfigFile()
	return err == nil
}

// GetProjectRoot returns the root directory containing the .replyctl folder
func (l *Loader) GetProjectRoot() (string, error) {
	configPath, err := l.findConfigFile()
	if err != nil {
		return "", err
	}

	return filepath.Dir(filepath.Dir(configPath)), nil
}

// Resolve makes a configured path absolute against the project root.
func Resolve(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
