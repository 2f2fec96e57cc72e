package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/pkg/export"
	"github.com/moneymap/moneymap/pkg/store"
)

var (
	exportEmail  string
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored transactions to CSV or JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportEmail, "email", "e", "", "mailbox address whose transactions to export (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (defaults to stdout)")
	_ = exportCmd.MarkFlagRequired("email")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	var write func(records []store.StoredRecord) error

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "csv":
		write = func(records []store.StoredRecord) error { return export.CSV(out, records) }
	case "json":
		write = func(records []store.StoredRecord) error { return export.JSON(out, records) }
	default:
		return fmt.Errorf("unsupported format %q: use csv or json", exportFormat)
	}

	st, pool, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	records, err := st.ListByUser(ctx, exportEmail)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}

	if err := write(records); err != nil {
		return err
	}
	logger.Info("export complete", "records", len(records), "format", exportFormat)
	return nil
}
