package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spendview/internal/storage"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the sqlite schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := dbPath(cmd)
				if err != nil {
					return err
				}
				if err := storage.RunMigrations(path); err != nil {
					return err
				}
				return printVersion(cmd, path)
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Revert the last migrations (one by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid steps %q: %w", args[0], err)
					}
					steps = n
				}
				path, err := dbPath(cmd)
				if err != nil {
					return err
				}
				if err := storage.RollbackMigrations(path, steps); err != nil {
					return err
				}
				return printVersion(cmd, path)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := dbPath(cmd)
				if err != nil {
					return err
				}
				return printVersion(cmd, path)
			},
		},
	)
	return cmd
}

func dbPath(cmd *cobra.Command) (string, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.SQLiteDBPath, nil
}

func printVersion(cmd *cobra.Command, path string) error {
	version, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d (dirty)\n", path, version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: version %d\n", path, version)
	return nil
}
