package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lance13c/replyctl/internal/logging"
	"github.com/lance13c/replyctl/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Acquire a reply for every prompt file dropped into DIR",
	Long: `Watch treats DIR as an inbox. Every prompt file (*.txt and *.md by
default) already there or added later is sent, one at a time and in name
order. Handled files move to DIR/done, failures to DIR/failed.

With --metrics-addr the engine counters are served for Prometheus at /metrics.

Example:
  replyctl watch ./prompts --metrics-addr :9464`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	inbox, err := watcher.NewInbox(args[0], cfg.Inbox, func(ctx context.Context, path, prompt string) error {
		result, err := rt.acquire(ctx, prompt)
		if err != nil {
			return err
		}
		if !result.OK() && !result.Degraded() {
			return result.Err()
		}
		fmt.Fprintf(out, "✅ %s → %s\n", path, result.Location)
		return nil
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return inbox.Start(ctx)
	})

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logging.Info("Serving metrics on %s", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	fmt.Fprintf(out, "📁 Watching %s (Ctrl+C to stop)\n", inbox.Dir())
	if err := g.Wait(); err != nil && !cancelled(err) {
		return err
	}
	fmt.Fprintf(out, "Processed %d prompt file(s)\n", inbox.Processed())
	return nil
}
