package cmd

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/database"
	"github.com/lance13c/replyctl/internal/logging"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent acquisitions",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of acquisitions to show")
	historyCmd.Flags().Bool("stats", false, "show totals instead of the list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	showStats, _ := cmd.Flags().GetBool("stats")

	db, err := database.New(projectPath(cfg.Output.Database))
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()

	if showStats {
		stats, err := db.GetStatistics()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Acquisitions:     %d\n", stats.Total)
		outcomes := make([]string, 0, len(stats.ByOutcome))
		for k := range stats.ByOutcome {
			outcomes = append(outcomes, k)
		}
		sort.Strings(outcomes)
		for _, k := range outcomes {
			fmt.Fprintf(out, "  %-20s %d\n", k, stats.ByOutcome[k])
		}
		fmt.Fprintf(out, "Regenerates:      %d\n", stats.Regenerates)
		fmt.Fprintf(out, "Fallback cycles:  %d\n", stats.FallbackCycles)
		if stats.LastStartedAt != nil {
			fmt.Fprintf(out, "Last run:         %s\n", stats.LastStartedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	rows, err := db.GetRecentAcquisitions(limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No acquisitions yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tOUTCOME\tRETRIES\tFALLBACKS\tDURATION\tPROMPT")
	for _, a := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			a.StartedAt.Local().Format("01-02 15:04:05"),
			a.Outcome,
			a.Attempts,
			a.FallbackCycles,
			a.Duration.Round(100*time.Millisecond),
			logging.Mask(a.Prompt),
		)
	}
	return tw.Flush()
}
