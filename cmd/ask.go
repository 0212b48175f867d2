package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/engine"
)

var askCmd = &cobra.Command{
	Use:   "ask PROMPT",
	Short: "Send one prompt and print the acquired reply",
	Long: `Ask opens the configured chat page, submits PROMPT (template variables
such as {name} are expanded first), waits for the finished reply and prints it.
The reply is also saved under the output directory.

Exit status is non-zero when no reply was acquired. A fallback reply counts as
acquired but is marked as such on stderr.

Example:
  replyctl ask "Summarise the history of Mount Fuji"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	out, err := rt.acquire(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return report(cmd, out)
}

// report prints an outcome and turns hard failures into an error.
func report(cmd *cobra.Command, out engine.Outcome) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	switch {
	case out.OK():
		fmt.Fprintln(stdout, out.Text)
	case out.Degraded():
		fmt.Fprintln(stdout, out.Text)
		fmt.Fprintf(stderr, "⚠️  no reply acquired, printed the fallback message (%v)\n", out.Err())
	default:
		return out.Err()
	}

	if out.Location != "" {
		fmt.Fprintf(stderr, "📝 Saved to %s\n", out.Location)
	}
	return nil
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
