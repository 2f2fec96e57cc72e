// Package api defines the core data structures and boundary interfaces for moneymap.
package api

import (
	"context"
	"fmt"
	"time"
)

// Transaction holds one transaction parsed from a bank alert email.
// Date and Time keep the bank-native string formats; they are not normalized
// across banks.
type Transaction struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	// VPAID is the counterparty payment address, or an "N/A" sentinel when
	// the bank's alert format doesn't carry one.
	VPAID     string `json:"vpa_id"`
	PartyName string `json:"party_name"`
	Bank      string `json:"bank"`
	Time      string `json:"time,omitempty"`
	// Category is filled in by the classifier after extraction.
	Category string `json:"category,omitempty"`

	// ID optionally carries an externally supplied transaction identity.
	// When empty, the store synthesizes one from date, amount and party
	// name.
	ID string `json:"-"`
}

// Result is the outcome of one fetch run. Errors collects all non-fatal
// warnings encountered along the way; partial success is preferred over
// all-or-nothing failure.
type Result struct {
	Transactions []Transaction `json:"transactions"`
	Errors       []string      `json:"errors"`
	Success      bool          `json:"success"`
}

// Credentials identify one mailbox fetch request. The app password is held
// only for the duration of the run and never persisted.
type Credentials struct {
	Address     string
	AppPassword string
	Bank        string
}

// AuthError indicates the mailbox rejected the credentials.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed, check email or app password: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConnectionError indicates a transport failure talking to the mailbox.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("mailbox connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Session is an authenticated mailbox session with the inbox selected.
// Close must be called exactly once per session, on every exit path.
// A context deadline bounds the individual command; cancellation without a
// deadline is not observed mid-command.
type Session interface {
	// Search returns the identifiers of messages from sender received on or
	// after since. An empty result is success, not an error.
	Search(ctx context.Context, sender string, since time.Time) ([]uint32, error)

	// Fetch returns the raw RFC 5322 bytes of one message.
	Fetch(ctx context.Context, id uint32) ([]byte, error)

	Close() error
}

// Dialer opens mailbox sessions. Connect returns *AuthError on bad
// credentials and *ConnectionError on any other transport failure.
type Dialer interface {
	Connect(ctx context.Context, username, password string) (Session, error)
}

// Classifier assigns a spending category to a transaction description.
type Classifier interface {
	Classify(ctx context.Context, description string) (string, error)
}
