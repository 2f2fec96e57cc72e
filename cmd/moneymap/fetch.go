package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/pkg/api"
	"github.com/moneymap/moneymap/pkg/classify"
	"github.com/moneymap/moneymap/pkg/config"
	"github.com/moneymap/moneymap/pkg/fetcher"
	"github.com/moneymap/moneymap/pkg/mailbox"
	"github.com/moneymap/moneymap/pkg/rules"
)

var (
	fetchEmail  string
	fetchBank   string
	fetchSince  string
	fetchDryRun bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and parse transaction alerts from a mailbox",
	Long: `Fetch connects to the configured IMAP server with the given email address
and an app password, searches for alert emails from the bank's sender
address and parses them into transactions.

The app password is read from the MONEYMAP_APP_PASSWORD environment
variable, or prompted for when unset. Without --since the current calendar
month is fetched.`,
	RunE: runFetch,
}

var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "List supported banks",
	Run: func(cmd *cobra.Command, args []string) {
		for _, bank := range rules.Default().Banks() {
			fmt.Println(bank)
		}
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchEmail, "email", "e", "", "mailbox address to fetch from (required)")
	fetchCmd.Flags().StringVarP(&fetchBank, "bank", "b", "", "bank identifier, see 'moneymap banks' (required)")
	fetchCmd.Flags().StringVar(&fetchSince, "since", "", "fetch alerts received on or after this date (YYYY-MM-DD)")
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "parse and print transactions without storing them")
	_ = fetchCmd.MarkFlagRequired("email")
	_ = fetchCmd.MarkFlagRequired("bank")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	password, err := appPassword()
	if err != nil {
		return err
	}

	dialer := mailbox.NewDialer(cfg.IMAPAddress, time.Duration(cfg.DialTimeoutSeconds)*time.Second, logger)
	f := fetcher.New(dialer, rules.Default(), logger)
	creds := api.Credentials{Address: fetchEmail, AppPassword: password, Bank: fetchBank}

	var result api.Result
	if fetchSince != "" {
		since, err := time.Parse(time.DateOnly, fetchSince)
		if err != nil {
			return fmt.Errorf("invalid --since date %q: %w", fetchSince, err)
		}
		result = f.RunSince(ctx, creds, since)
	} else {
		result = f.Run(ctx, creds)
	}

	for _, msg := range result.Errors {
		logger.Warn("fetch issue", "detail", msg)
	}
	if !result.Success {
		return fmt.Errorf("fetch failed for %s", fetchEmail)
	}

	logger.Info("fetch complete", "transactions", len(result.Transactions), "issues", len(result.Errors))

	for _, w := range categorize(ctx, cfg, result.Transactions, logger) {
		logger.Warn("classification issue", "detail", w)
	}

	for _, txn := range result.Transactions {
		fmt.Printf("%-10s  %10.2f  %-30s  %s\n", txn.Date, txn.Amount, txn.PartyName, txn.VPAID)
	}

	if fetchDryRun {
		return nil
	}

	st, pool, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	inserted, err := st.Persist(ctx, fetchEmail, result.Transactions)
	if err != nil {
		return fmt.Errorf("storing transactions: %w", err)
	}
	fmt.Printf("%d new transaction(s) stored, %d duplicate(s) skipped\n", inserted, len(result.Transactions)-inserted)
	return nil
}

// categorize assigns categories to the fetched batch. Without a configured
// API key, or when the client fails to build, the whole batch gets the
// model-unavailable sentinel so stored records and exports never carry an
// empty category.
func categorize(ctx context.Context, cfg *config.Config, txns []api.Transaction, logger *slog.Logger) []string {
	if len(txns) == 0 {
		return nil
	}

	if cfg.GeminiAPIKey == "" {
		return classify.Apply(ctx, nil, txns, logger)
	}

	gemini, err := classify.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Warn("classifier unavailable, marking batch", "error", err)
		return classify.Apply(ctx, nil, txns, logger)
	}
	defer gemini.Close()

	return classify.Apply(ctx, gemini, txns, logger)
}

// appPassword reads the mailbox app password from the environment, falling
// back to an interactive prompt.
func appPassword() (string, error) {
	if password := os.Getenv("MONEYMAP_APP_PASSWORD"); password != "" {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "App password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading app password: %w", err)
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return "", fmt.Errorf("an app password is required")
	}
	return password, nil
}
