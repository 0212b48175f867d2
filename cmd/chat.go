package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lance13c/replyctl/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive prompt loop against the chat page",
	Long: `Chat keeps one browser session open and sends every line you type.
Type quit, exit, q or 終了 to leave.

When stdin or stdout is not a terminal, chat reads one prompt per line and
prints one reply per prompt.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	notifier := &ui.Notifier{}
	rt, err := openRuntime(ctx, cfg, notifier.Observe)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !interactive {
		err := ui.RunLines(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), rt.engine.Acquire, rt.vars.Expand)
		if cancelled(err) {
			return nil
		}
		return err
	}

	target := cfg.Browser.URL
	if target == "" {
		target = cfg.Browser.RemoteURL
	}

	model := ui.NewChatModel(ctx, rt.engine.Acquire, rt.vars.Expand, target)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	notifier.Attach(p)

	if _, err := p.Run(); err != nil && !cancelled(err) && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat screen failed: %w", err)
	}
	return nil
}
