// Package budget stores monthly spending budgets per user.
package budget

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

// Store persists one budget amount per (user, month, year).
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates the budget store and runs its schema migration.
func New(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("migrating budgets: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Set creates or replaces a user's budget for one month.
func (s *Store) Set(ctx context.Context, user string, amount decimal.Decimal, year int, month time.Month) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO budgets (user_id, amount, month, year)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, month, year) DO UPDATE SET
			amount = EXCLUDED.amount,
			updated_at = NOW()
	`, user, amount.StringFixed(2), int(month), year)
	if err != nil {
		return fmt.Errorf("setting budget: %w", err)
	}

	s.logger.Info("budget set", "user", user, "year", year, "month", int(month), "amount", amount)
	return nil
}

// Get returns a user's budget for one month, or zero when none is set.
func (s *Store) Get(ctx context.Context, user string, year int, month time.Month) (decimal.Decimal, error) {
	var amount string
	err := s.pool.QueryRow(ctx, `
		SELECT amount::text FROM budgets
		WHERE user_id = $1 AND month = $2 AND year = $3
	`, user, int(month), year).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("querying budget: %w", err)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing budget amount %q: %w", amount, err)
	}
	return value, nil
}

// CurrentMonth returns the budget for the current calendar month.
func (s *Store) CurrentMonth(ctx context.Context, user string) (decimal.Decimal, error) {
	now := time.Now()
	return s.Get(ctx, user, now.Year(), now.Month())
}
