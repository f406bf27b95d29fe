package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spendview/internal/backend"
	"spendview/internal/log"
	"spendview/internal/viewmodel"
)

func newExportCommand() *cobra.Command {
	var (
		format string
		month  int
		year   int
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download an export of the expenses, optionally for one month or year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := viewmodel.ExportRequest{
				Format: strings.ToLower(format),
				Period: viewmodel.Period{Month: month, Year: year},
			}
			if err := req.Validate(); err != nil {
				return err
			}

			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := SetupLogger(cfg, log.ComponentExport)
			if err != nil {
				return err
			}
			ctx, cancel := SignalContext(cmd.Context(), logger)
			defer cancel()

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
			if err != nil {
				return fmt.Errorf("create %s backend: %w", bcfg.Type, err)
			}
			defer res.Close()

			dl, err := res.Backend.Export(ctx, req.Format, month, year)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			defer dl.Body.Close()

			path := output
			if path == "" {
				path = req.Filename()
			}
			n, err := writeFile(path, dl.Body)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "Export written",
				log.FieldOperation, log.OpExport, "path", path, "bytes", n)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "export format")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12, 0 for every month")
	cmd.Flags().IntVar(&year, "year", 0, "year, 0 for every year")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: expenses_<year>_<month>.<format>)")
	return cmd
}

// writeFile copies body into path, removing the partial file on failure.
func writeFile(path string, body io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}
