package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var transactionsEmail string

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List stored transactions for a user",
	RunE:  runTransactions,
}

func init() {
	transactionsCmd.Flags().StringVarP(&transactionsEmail, "email", "e", "", "mailbox address whose transactions to list (required)")
	_ = transactionsCmd.MarkFlagRequired("email")
}

func runTransactions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	st, pool, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	records, err := st.ListByUser(ctx, transactionsEmail)
	if err != nil {
		return fmt.Errorf("listing transactions: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("no stored transactions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FETCHED\tDATE\tAMOUNT\tPARTY\tBANK\tCATEGORY")
	for _, rec := range records {
		txn := rec.Transaction
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\n",
			rec.FetchedDate.Format(time.DateOnly), txn.Date, txn.Amount, txn.PartyName, txn.Bank, txn.Category)
	}
	return w.Flush()
}
