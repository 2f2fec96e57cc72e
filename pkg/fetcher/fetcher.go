// Package fetcher coordinates one mailbox fetch-and-parse run.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/moneymap/moneymap/pkg/api"
	"github.com/moneymap/moneymap/pkg/extract"
	"github.com/moneymap/moneymap/pkg/mailtext"
	"github.com/moneymap/moneymap/pkg/rules"
)

// Fetcher runs the email-to-transaction pipeline: resolve the bank rule,
// connect, search, fetch each message, extract text, parse transactions.
// One run is synchronous and owns its mailbox session; sessions are never
// pooled or reused.
type Fetcher struct {
	dialer   api.Dialer
	registry *rules.Registry
	logger   *slog.Logger
}

// New creates a fetcher. The registry is injected so rule configuration stays
// explicit instead of living in package state.
func New(dialer api.Dialer, registry *rules.Registry, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{dialer: dialer, registry: registry, logger: logger}
}

// Run fetches alerts received since the first day of the current month.
// Callers needing historical backfill should use RunSince with a wider
// window.
func (f *Fetcher) Run(ctx context.Context, creds api.Credentials) api.Result {
	now := time.Now()
	return f.RunSince(ctx, creds, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
}

// RunSince fetches alerts received in [since, now].
//
// Authentication failure, connection failure and an unrecognized bank are
// fatal to the run: success=false, no partial results. Per-message failures
// (fetch error, no extractable text) and per-match failures (unparseable
// fields) are recorded and skipped; whatever did parse is returned. The
// mailbox session is closed on every exit path, and a panic anywhere in the
// run is converted into a failed result rather than escaping to the caller.
func (f *Fetcher) RunSince(ctx context.Context, creds api.Credentials, since time.Time) (result api.Result) {
	result.Transactions = []api.Transaction{}
	result.Errors = []string{}

	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("fetch run panicked", "bank", creds.Bank, "panic", r)
			result = api.Result{
				Transactions: []api.Transaction{},
				Errors:       []string{fmt.Sprintf("an unexpected error occurred: %v", r)},
				Success:      false,
			}
		}
	}()

	rule, err := f.registry.Lookup(creds.Bank)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	logger := f.logger.With("bank", creds.Bank, "sender", rule.SenderAddress)

	session, err := f.dialer.Connect(ctx, creds.Address, creds.AppPassword)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("closing mailbox session", "error", err)
		}
	}()

	ids, err := session.Search(ctx, rule.SenderAddress, since)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("searching for %s alerts: %v", creds.Bank, err))
		return result
	}

	logger.Info("mailbox search complete", "since", since.Format(time.DateOnly), "messages", len(ids))

	for _, id := range ids {
		raw, err := session.Fetch(ctx, id)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to fetch message %d: %v", id, err))
			continue
		}

		text := mailtext.Extract(raw, logger)
		if text == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("could not extract text content from message %d", id))
			continue
		}

		txns, warnings := extract.Extract(text, rule)
		logger.Debug("parsed message", "message_id", id, "transactions", len(txns), "warnings", len(warnings))

		result.Transactions = append(result.Transactions, txns...)
		result.Errors = append(result.Errors, warnings...)
	}

	result.Success = true
	return result
}
