// Package classify assigns spending categories to extracted transactions.
//
// Classification is an external capability behind the api.Classifier
// interface; everything here fails closed to a sentinel category so a broken
// or absent model never blocks a fetch.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moneymap/moneymap/pkg/api"
)

// Sentinel categories reported when classification cannot produce a real
// label.
const (
	// CategoryUnknownDescription marks transactions with no description to
	// classify.
	CategoryUnknownDescription = "Unknown Description"

	// CategoryModelUnavailable marks every transaction of a batch when no
	// classifier is configured or the model failed to load.
	CategoryModelUnavailable = "N/A (Model Error)"

	// CategoryError marks a single transaction whose classification call
	// failed.
	CategoryError = "Categorization Error"

	// CategoryUncategorized is the fallback when the model answers with
	// something outside the known category set.
	CategoryUncategorized = "Uncategorized"
)

// Apply categorizes the transactions in place and returns warnings for
// per-item failures. A nil classifier marks the whole batch as model-error;
// an error on one item never aborts the rest.
func Apply(ctx context.Context, c api.Classifier, txns []api.Transaction, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	if c == nil {
		for i := range txns {
			txns[i].Category = CategoryModelUnavailable
		}
		if len(txns) > 0 {
			return []string{"auto-categorization disabled: no classifier configured"}
		}
		return nil
	}

	var warnings []string
	for i := range txns {
		description := strings.TrimSpace(txns[i].PartyName)
		if description == "" {
			txns[i].Category = CategoryUnknownDescription
			continue
		}

		label, err := c.Classify(ctx, description)
		if err != nil {
			txns[i].Category = CategoryError
			warnings = append(warnings, fmt.Sprintf("error categorizing %q: %v", description, err))
			continue
		}

		txns[i].Category = label
		logger.Debug("categorized transaction", "description", description, "category", label)
	}

	return warnings
}
