package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .replyctl/config.yaml with default settings",
	Long: `Init writes a default configuration into the project directory.

Example:
  replyctl init --url https://chat.example.com
  replyctl init --remote localhost:9222`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("url", "", "chat page URL")
	initCmd.Flags().String("remote", "", "attach to a running Chrome (host:port)")
	initCmd.Flags().Bool("headless", false, "run Chrome headless")
	initCmd.Flags().Bool("force", false, "overwrite an existing config")
	initCmd.Flags().Bool("whole-word", false, "match trivial fallback replies by whole word (recommended for English chats)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	projectDir, _ := cmd.Root().PersistentFlags().GetString("project")
	url, _ := cmd.Flags().GetString("url")
	remote, _ := cmd.Flags().GetString("remote")
	headless, _ := cmd.Flags().GetBool("headless")
	force, _ := cmd.Flags().GetBool("force")
	wholeWord, _ := cmd.Flags().GetBool("whole-word")

	loader := config.NewLoader(projectDir)
	if cfgFile != "" {
		loader.WithPath(cfgFile)
	}
	path := loader.GetConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	cfg.Browser.URL = url
	cfg.Browser.RemoteURL = remote
	cfg.Browser.Headless = headless
	cfg.Fallback.TrivialWholeWord = wholeWord

	if err := loader.Save(cfg, path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Wrote %s\n", path)
	if !wholeWord {
		fmt.Fprintln(out, "💡 fallback.trivial_whole_word is off: short words like \"no\" or \"ok\" reject any reply containing them.")
		fmt.Fprintln(out, "   Set it to true (or pass --whole-word) for English chats.")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "⚠️  %v\n", err)
		fmt.Fprintln(out, "   Edit the file before running 'replyctl ask'.")
	}
	return nil
}
