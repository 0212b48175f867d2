package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/config"
	"github.com/lance13c/replyctl/internal/logging"
)

var cfgFile string
var appConfig *config.Config
var configErr error
var projectRoot string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "replyctl",
	Short: "replyctl - drive a web chat UI and collect its replies",
	Long: `replyctl submits prompts to a browser-based chat assistant through Chrome,
waits until the reply has really finished, retries when the page reports a
failed reply, and saves the final text as Markdown.

Run 'replyctl init' once per project, then 'replyctl ask', 'replyctl chat'
or 'replyctl watch'.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .replyctl/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().StringP("project", "p", ".", "project directory")
}

// initConfig sets up logging and reads the config file and REPLYCTL_* variables.
func initConfig() {
	startTime := time.Now()
	verbose, _ := rootCmd.PersistentFlags().GetBool("verbose")
	projectDir, _ := rootCmd.PersistentFlags().GetString("project")
	if abs, err := filepath.Abs(projectDir); err == nil {
		projectDir = abs
	}

	if err := logging.Initialize(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logging: %v\n", err)
	} else {
		logging.RedirectStandardLog()
	}

	loader := config.NewLoader(projectDir)
	if cfgFile != "" {
		loader.WithPath(cfgFile)
	}

	projectRoot = projectDir
	if loader.IsInitialized() {
		appConfig, configErr = loader.Load()
		if configErr != nil {
			logging.Warn("Failed to load config: %v", configErr)
		} else if root, err := loader.GetProjectRoot(); err == nil && cfgFile == "" {
			projectRoot = root
		}
	}

	if appConfig != nil {
		if level, err := logging.ParseLevel(appConfig.LogLevel); err == nil {
			logging.GetLogger().SetLevel(level)
		}
	}
	if verbose {
		logging.GetLogger().SetLevel(logging.DEBUG)
		logging.GetLogger().SetMirror(os.Stderr)
	}

	logging.Debug("Config init took %v (project root %s)", time.Since(startTime), projectRoot)
}

// requireConfig returns the loaded config or a helpful error.
func requireConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	if appConfig == nil {
		return nil, fmt.Errorf("replyctl is not initialized in this project, run 'replyctl init' first")
	}
	return appConfig, nil
}

// projectPath resolves a configured path against the project root.
func projectPath(path string) string {
	return config.Resolve(projectRoot, path)
}
