package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/browser"
	"github.com/lance13c/replyctl/internal/config"
	"github.com/lance13c/replyctl/internal/database"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Verify configuration, Chrome and DevTools connectivity",
	Long: `Doctor runs health checks before you start acquiring replies.

This command will:
• Check that replyctl is initialized and the config is valid
• Find a Chrome executable (or use browser.chrome_path)
• Probe the DevTools endpoint when browser.remote_url is set
• Open the history database

Example:
  replyctl doctor`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// runDoctor executes the doctor command
func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println("🏥 replyctl Health Check")
	fmt.Println("========================")
	fmt.Println()

	allPassed := true

	fmt.Print("📋 Checking project initialization... ")
	projectDir, _ := cmd.Root().PersistentFlags().GetString("project")
	loader := config.NewLoader(projectDir)
	if cfgFile != "" {
		loader.WithPath(cfgFile)
	}
	if !loader.IsInitialized() {
		fmt.Println("❌ FAILED")
		fmt.Println("   replyctl is not initialized in this project.")
		fmt.Println("   Run 'replyctl init' to get started.")
		os.Exit(1)
	}
	fmt.Println("✅ PASSED")

	fmt.Print("📄 Loading configuration... ")
	cfg, err := loader.Load()
	if err != nil {
		fmt.Println("❌ FAILED")
		fmt.Printf("   Error loading config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ PASSED")

	fmt.Println("\n📊 Current Configuration:")
	if cfg.Browser.URL != "" {
		fmt.Printf("   Chat URL: %s\n", cfg.Browser.URL)
	}
	if cfg.Browser.RemoteURL != "" {
		fmt.Printf("   Remote Chrome: %s\n", cfg.Browser.RemoteURL)
	}
	fmt.Printf("   Poll: every %s, up to %d polls\n", cfg.Acquisition.PollInterval, cfg.Acquisition.MaxPolls)
	fmt.Printf("   Retry ceiling: %d, fallback cycles: %d\n", cfg.Acquisition.RetryCeiling, cfg.Fallback.MaxCycles)
	fmt.Printf("   Output: %s\n", projectPath(cfg.Output.Dir))

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if cfg.Browser.RemoteURL != "" {
		fmt.Print("\n🔌 Probing DevTools endpoint... ")
		probe, err := browser.ProbeDevTools(ctx, cfg.Browser.RemoteURL)
		if err != nil {
			fmt.Println("❌ FAILED")
			fmt.Printf("   %v\n", err)
			fmt.Println("   Start Chrome with --remote-debugging-port=9222")
			allPassed = false
		} else {
			fmt.Printf("✅ PASSED (%s, %s)\n", probe.Product, probe.RoundTrip.Round(time.Millisecond))
			if targets, err := browser.ListTargets(ctx, cfg.Browser.RemoteURL); err == nil {
				pages := 0
				for _, t := range targets {
					if t.Type == "page" {
						pages++
					}
				}
				fmt.Printf("   %d open page(s)\n", pages)
			}
		}
	} else {
		fmt.Print("\n🌐 Looking for Chrome... ")
		path := cfg.Browser.ChromePath
		if path == "" {
			path, err = browser.FindChrome()
		} else {
			_, err = os.Stat(path)
		}
		if err != nil {
			fmt.Println("❌ FAILED")
			fmt.Printf("   %v\n", err)
			fmt.Println("   Set browser.chrome_path or REPLYCTL_CHROME_PATH")
			allPassed = false
		} else {
			fmt.Println("✅ PASSED")
			fmt.Printf("   %s\n", path)
		}
	}

	fmt.Print("\n🗄️  Opening history database... ")
	db, err := database.New(projectPath(cfg.Output.Database))
	if err != nil {
		fmt.Println("❌ FAILED")
		fmt.Printf("   %v\n", err)
		allPassed = false
	} else {
		stats, err := db.GetStatistics()
		db.Close()
		if err != nil {
			fmt.Println("❌ FAILED")
			fmt.Printf("   %v\n", err)
			allPassed = false
		} else {
			fmt.Printf("✅ PASSED (%d acquisitions)\n", stats.Total)
		}
	}

	fmt.Println()
	if allPassed {
		fmt.Println("🎉 All checks passed.")
		return
	}
	fmt.Println("⚠️  Some checks failed. See the messages above.")
	os.Exit(1)
}
