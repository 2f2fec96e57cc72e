package main

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/moneymap/moneymap/pkg/budget"
)

var budgetEmail string

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Manage the monthly spending budget",
}

var budgetSetCmd = &cobra.Command{
	Use:   "set AMOUNT",
	Short: "Set the budget for the current month",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetSet,
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare this month's spending against the budget",
	RunE:  runBudgetStatus,
}

func init() {
	budgetCmd.PersistentFlags().StringVarP(&budgetEmail, "email", "e", "", "mailbox address the budget belongs to (required)")
	_ = budgetCmd.MarkPersistentFlagRequired("email")
	budgetCmd.AddCommand(budgetSetCmd)
	budgetCmd.AddCommand(budgetStatusCmd)
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("budget amount cannot be negative")
	}

	_, pool, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	budgets, err := budget.New(ctx, pool, logger)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := budgets.Set(ctx, budgetEmail, amount, now.Year(), now.Month()); err != nil {
		return err
	}
	fmt.Printf("budget for %s %d set to %s\n", now.Month(), now.Year(), amount.StringFixed(2))
	return nil
}

func runBudgetStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	st, pool, err := openStore(ctx, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	budgets, err := budget.New(ctx, pool, logger)
	if err != nil {
		return err
	}

	now := time.Now()
	limit, err := budgets.Get(ctx, budgetEmail, now.Year(), now.Month())
	if err != nil {
		return err
	}

	summary, err := st.MonthlySummary(ctx, budgetEmail, now.Year(), now.Month())
	if err != nil {
		return fmt.Errorf("summarizing month: %w", err)
	}

	spent := decimal.NewFromFloat(summary.Total)
	fmt.Printf("%s %d\n", now.Month(), now.Year())
	fmt.Printf("  spent:  %s\n", spent.StringFixed(2))
	if limit.IsZero() {
		fmt.Println("  budget: not set")
	} else {
		fmt.Printf("  budget: %s\n", limit.StringFixed(2))
		remaining := limit.Sub(spent)
		if remaining.IsNegative() {
			fmt.Printf("  over by %s\n", remaining.Neg().StringFixed(2))
		} else {
			fmt.Printf("  remaining: %s\n", remaining.StringFixed(2))
		}
	}

	if len(summary.ByCategory) > 0 {
		fmt.Println("  by category:")
		categories := make([]string, 0, len(summary.ByCategory))
		for category := range summary.ByCategory {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Printf("    %-20s %10.2f\n", category, summary.ByCategory[category])
		}
	}
	return nil
}
