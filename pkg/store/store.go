// Package store persists extracted transactions in PostgreSQL with duplicate
// suppression.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moneymap/moneymap/pkg/api"
)

//go:embed schema.sql
var schemaSQL string

// Config holds the PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// Open creates and pings a connection pool. Shared by the transaction store
// and the budget store.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return pool, nil
}

// Store is the deduplicating transaction store. For a given (user,
// transaction id) at most one record ever exists; records are never updated
// in place and never deleted here.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates the store and runs its schema migration.
func New(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("migrating stored_transactions: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// TransactionID derives the deduplication key for a candidate: the external
// identity when one was supplied, otherwise a date+amount+party composite.
// The composite is a heuristic, not a unique fingerprint: two genuinely
// distinct same-day, same-amount, same-party transactions collide and the
// second is silently dropped.
func TransactionID(txn api.Transaction) string {
	if txn.ID != "" {
		return txn.ID
	}
	return fmt.Sprintf("%s_%.2f_%s", txn.Date, txn.Amount, txn.PartyName)
}

// Persist inserts candidates for a user, skipping any whose identity key is
// already present. Safe to call repeatedly with overlapping candidate sets;
// re-running a fetch over the same emails does not inflate counts. Returns
// the number of newly inserted records.
func (s *Store) Persist(ctx context.Context, user string, txns []api.Transaction) (int, error) {
	inserted := 0
	for _, txn := range txns {
		data, err := json.Marshal(txn)
		if err != nil {
			return inserted, fmt.Errorf("encoding transaction: %w", err)
		}

		tag, err := s.pool.Exec(ctx, `
			INSERT INTO stored_transactions (user_id, transaction_id, transaction_data)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, transaction_id) DO NOTHING
		`, user, TransactionID(txn), data)
		if err != nil {
			return inserted, fmt.Errorf("inserting transaction: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	s.logger.Info("persisted transactions", "user", user, "candidates", len(txns), "inserted", inserted)
	return inserted, nil
}

// StoredRecord is one persisted transaction row.
type StoredRecord struct {
	TransactionID string
	Transaction   api.Transaction
	FetchedDate   time.Time
	Processed     bool
}

// ListByUser returns a user's records, most recently fetched first.
func (s *Store) ListByUser(ctx context.Context, user string) ([]StoredRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transaction_id, transaction_data, fetched_date, is_processed
		FROM stored_transactions
		WHERE user_id = $1
		ORDER BY fetched_date DESC
	`, user)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var records []StoredRecord
	for rows.Next() {
		var (
			rec  StoredRecord
			data []byte
		)
		if err := rows.Scan(&rec.TransactionID, &data, &rec.FetchedDate, &rec.Processed); err != nil {
			return nil, fmt.Errorf("scanning transaction row: %w", err)
		}
		if err := json.Unmarshal(data, &rec.Transaction); err != nil {
			return nil, fmt.Errorf("decoding transaction %s: %w", rec.TransactionID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MonthSummary aggregates a user's spending for one calendar month.
type MonthSummary struct {
	Total      float64
	ByCategory map[string]float64
}

// Unclassified categories are folded into this bucket for reporting.
const uncategorized = "Uncategorized"

var sentinelCategories = map[string]bool{
	"":                     true,
	"N/A (Model Error)":    true,
	"Categorization Error": true,
	"Unknown Description":  true,
}

// MonthlySummary totals a user's transactions for the given month, grouped
// by category. Transaction dates stay in their bank-native formats, so each
// record's date is re-parsed here; records with unparseable dates are
// skipped.
func (s *Store) MonthlySummary(ctx context.Context, user string, year int, month time.Month) (MonthSummary, error) {
	summary := MonthSummary{ByCategory: make(map[string]float64)}

	records, err := s.ListByUser(ctx, user)
	if err != nil {
		return summary, err
	}

	for _, rec := range records {
		date, ok := parseRecordDate(rec.Transaction.Date)
		if !ok || date.Year() != year || date.Month() != month {
			continue
		}

		amount := math.Abs(rec.Transaction.Amount)
		category := rec.Transaction.Category
		if sentinelCategories[category] {
			category = uncategorized
		}

		summary.Total += amount
		summary.ByCategory[category] += amount
	}

	return summary, nil
}

// recordDateLayouts covers the bank-native date formats that reach the store.
var recordDateLayouts = []string{"02-01-06", "02/01/06", "2006-01-02"}

// parseRecordDate parses a stored, bank-native date string. Trailing time
// components are ignored.
func parseRecordDate(s string) (time.Time, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	for _, layout := range recordDateLayouts {
		if t, err := time.Parse(layout, fields[0]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
