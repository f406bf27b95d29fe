package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"spendview/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spendview",
		Short: "Expense views over a remote or local expense store",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("port", "", "HTTP port (overrides PORT)")
	rootCmd.PersistentFlags().String("backend", "",
		"data backend, one of "+strings.Join(config.Backends, "|")+" (overrides DATA_BACKEND)")

	rootCmd.AddCommand(
		newServeCommand(),
		newExportCommand(),
		newWorkerCommand(),
		newMigrateCommand(),
	)
	return rootCmd
}
