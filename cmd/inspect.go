package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/browser"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [FILE]",
	Short: "Check the configured selectors against the chat page",
	Long: `Inspect opens the chat page (or reads a saved HTML FILE) and reports which
input, submit, turn and generating selectors match, plus every control whose
label looks like a regenerate button. Run it while the page shows an error to
confirm the regenerate button is detected.

Use --all to list every button, link and form field with a ready-to-paste
selector.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().Bool("all", false, "list every control on the page")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	showAll, _ := cmd.Flags().GetBool("all")

	var pageHTML string
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		pageHTML = string(data)
	} else {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manager, err := browser.NewManager(ctx, cfg.BrowserOptions())
		if err != nil {
			return err
		}
		defer manager.Close()

		if pageHTML, err = manager.PageHTML(ctx); err != nil {
			return err
		}
	}

	report, err := browser.Inspect(pageHTML, cfg.Selectors)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report, showAll)
	return nil
}

func printReport(out io.Writer, r *browser.PageReport, showAll bool) {
	mark := func(n int) string {
		if n > 0 {
			return "✅"
		}
		return "  "
	}

	fmt.Fprintln(out, "Input selectors:")
	for _, h := range r.Inputs {
		fmt.Fprintf(out, "  %s %-40s %d\n", mark(h.Matches), h.Selector, h.Matches)
	}
	if !r.InputFound() {
		fmt.Fprintln(out, "  ❌ no input matched, prompts cannot be submitted")
	}

	fmt.Fprintln(out, "Submit selectors:")
	for _, h := range r.Submits {
		fmt.Fprintf(out, "  %s %-40s %d\n", mark(h.Matches), h.Selector, h.Matches)
	}

	fmt.Fprintf(out, "Turns: %d\n", r.Turns)
	fmt.Fprintf(out, "Generating indicators: %d\n", r.Generating)

	if len(r.Regenerate) == 0 {
		fmt.Fprintln(out, "Regenerate button: not found")
	} else {
		fmt.Fprintln(out, "Regenerate button:")
		for _, c := range r.Regenerate {
			fmt.Fprintf(out, "  %s  %q\n", c.Selector, c.Label())
		}
	}

	if showAll {
		fmt.Fprintf(out, "Controls (%d):\n", len(r.Controls))
		for _, c := range r.Controls {
			fmt.Fprintf(out, "  %-50s %q\n", c.Selector, c.Label())
		}
	}
}
