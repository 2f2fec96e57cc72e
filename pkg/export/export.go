// Package export writes stored transaction records to CSV or JSON for use
// outside the application.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/moneymap/moneymap/pkg/store"
)

var csvHeader = []string{
	"fetched_date", "date", "amount", "party_name", "vpa_id", "bank", "category",
}

// CSV writes records as comma-separated rows with a header line.
func CSV(w io.Writer, records []store.StoredRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, rec := range records {
		txn := rec.Transaction
		row := []string{
			rec.FetchedDate.Format(time.RFC3339),
			txn.Date,
			strconv.FormatFloat(txn.Amount, 'f', 2, 64),
			txn.PartyName,
			txn.VPAID,
			txn.Bank,
			txn.Category,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// jsonRecord is the export shape: the transaction payload plus row metadata.
type jsonRecord struct {
	TransactionID string    `json:"transaction_id"`
	FetchedDate   time.Time `json:"fetched_date"`
	Date          string    `json:"date"`
	Amount        float64   `json:"amount"`
	PartyName     string    `json:"party_name"`
	VPAID         string    `json:"vpa_id"`
	Bank          string    `json:"bank"`
	Category      string    `json:"category,omitempty"`
}

// JSON writes records as an indented JSON array.
func JSON(w io.Writer, records []store.StoredRecord) error {
	out := make([]jsonRecord, 0, len(records))
	for _, rec := range records {
		txn := rec.Transaction
		out = append(out, jsonRecord{
			TransactionID: rec.TransactionID,
			FetchedDate:   rec.FetchedDate,
			Date:          txn.Date,
			Amount:        txn.Amount,
			PartyName:     txn.PartyName,
			VPAID:         txn.VPAID,
			Bank:          txn.Bank,
			Category:      txn.Category,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding json export: %w", err)
	}
	return nil
}
