package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lance13c/replyctl/internal/config"
	"github.com/lance13c/replyctl/internal/templates"
)

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Manage template variables used in prompts",
	Long: `Prompts may contain {name} placeholders. Each placeholder is replaced by
a random candidate of that variable when the prompt is sent. Unknown variables
are left as they are.`,
}

var varsListCmd = &cobra.Command{
	Use:   "list [NAME]",
	Short: "List variables, or the candidates of one variable",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVariables()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			candidates := store.Candidates(args[0])
			if len(candidates) == 0 {
				return fmt.Errorf("variable %q has no candidates", args[0])
			}
			for i, c := range candidates {
				fmt.Fprintf(out, "%d. %s\n", i+1, strings.ReplaceAll(c, "\n", "\n   "))
			}
			return nil
		}

		names := store.Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "No template variables yet. Add one with 'replyctl vars add NAME VALUE'.")
			return nil
		}
		for _, name := range names {
			fmt.Fprintf(out, "{%s} (%d candidates)\n", name, len(store.Candidates(name)))
		}
		return nil
	},
}

var varsAddCmd = &cobra.Command{
	Use:   "add NAME VALUE",
	Short: "Add a candidate to a variable (VALUE may span lines)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openVariables()
		if err != nil {
			return err
		}
		if err := store.Add(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added candidate %d to {%s}\n", len(store.Candidates(args[0])), args[0])
		return nil
	},
}

var varsRemoveCmd = &cobra.Command{
	Use:   "remove NAME INDEX",
	Short: "Remove a candidate by its number from 'vars list NAME'",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("index must be a number: %s", args[1])
		}
		store, err := openVariables()
		if err != nil {
			return err
		}
		removed, err := store.Remove(args[0], index)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from {%s}\n", removed, args[0])
		return nil
	},
}

func init() {
	varsCmd.AddCommand(varsListCmd, varsAddCmd, varsRemoveCmd)
	rootCmd.AddCommand(varsCmd)
}

// openVariables works without a config file so variables can be prepared
// before 'replyctl init'.
func openVariables() (*templates.Store, error) {
	path := templates.DefaultFile
	if appConfig != nil && appConfig.Output.Variables != "" {
		path = appConfig.Output.Variables
	}
	return templates.Open(config.Resolve(projectRoot, path))
}
