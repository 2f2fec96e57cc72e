package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/pkg/config"
	"github.com/moneymap/moneymap/pkg/store"
)

var rootCmd = &cobra.Command{
	Use:   "moneymap",
	Short: "Extract bank transactions from email alerts and track spending",
	Long: `moneymap connects to a mailbox over IMAP, finds transaction alert emails
from supported banks, parses them into structured transactions and stores
them in PostgreSQL with duplicate suppression.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(banksCmd)
}

// openStore loads config, connects to PostgreSQL and builds the transaction
// store. The returned pool must be closed by the caller.
func openStore(ctx context.Context, logger *slog.Logger) (*store.Store, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	pool, err := store.Open(ctx, cfg.StoreConfig(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	st, err := store.New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool, nil
}
