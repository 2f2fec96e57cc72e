package fetcher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymap/moneymap/pkg/api"
	"github.com/moneymap/moneymap/pkg/rules"
)

// fakeSession is an in-memory api.Session serving canned messages.
type fakeSession struct {
	messages  map[uint32][]byte
	searchErr error
	fetchErr  map[uint32]error
	fetchHook func(id uint32)

	closed int
}

func (s *fakeSession) Search(_ context.Context, sender string, since time.Time) ([]uint32, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	ids := make([]uint32, 0, len(s.messages))
	for id := range s.messages {
		ids = append(ids, id)
	}
	for id := range s.fetchErr {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeSession) Fetch(_ context.Context, id uint32) ([]byte, error) {
	if s.fetchHook != nil {
		s.fetchHook(id)
	}
	if err, ok := s.fetchErr[id]; ok {
		return nil, err
	}
	return s.messages[id], nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeDialer hands out one fakeSession, or fails to connect.
type fakeDialer struct {
	session    *fakeSession
	connectErr error
	connects   int
}

func (d *fakeDialer) Connect(_ context.Context, username, password string) (api.Session, error) {
	d.connects++
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return d.session, nil
}

func alertMessage(body string) []byte {
	return []byte("From: alerts@hdfcbank.net\r\n" +
		"To: user@example.com\r\n" +
		"Subject: Debit alert\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")
}

var testCreds = api.Credentials{Address: "user@example.com", AppPassword: "app-pass", Bank: "HDFC"}

func TestRun_UnknownBankFailsBeforeConnecting(t *testing.T) {
	dialer := &fakeDialer{}
	f := New(dialer, rules.Default(), nil)

	result := f.Run(context.Background(), api.Credentials{Address: "user@example.com", Bank: "HSBC"})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "HSBC")
	assert.Zero(t, dialer.connects, "lookup failure must not open a connection")
}

func TestRun_AuthFailure(t *testing.T) {
	dialer := &fakeDialer{connectErr: &api.AuthError{Err: fmt.Errorf("LOGIN failed")}}
	f := New(dialer, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "authentication failed")
	assert.Empty(t, result.Transactions)
}

func TestRun_EmptyMailbox(t *testing.T) {
	session := &fakeSession{}
	f := New(&fakeDialer{session: session}, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.True(t, result.Success)
	// Slices must be non-nil so the JSON form is [] rather than null.
	require.NotNil(t, result.Transactions)
	require.NotNil(t, result.Errors)
	assert.Empty(t, result.Transactions)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, session.closed)
}

func TestRun_ParsesTransactions(t *testing.T) {
	session := &fakeSession{
		messages: map[uint32][]byte{
			1: alertMessage("Rs.100.00 has been debited from your account to VPA shop@upi SHOP ONE on 01-06-24."),
			2: alertMessage("Rs.250.50 has been debited from your account to VPA cafe@upi CAFE TWO on 02-06-24."),
		},
	}
	f := New(&fakeDialer{session: session}, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Transactions, 2)

	total := result.Transactions[0].Amount + result.Transactions[1].Amount
	assert.Equal(t, 350.50, total)
	assert.Equal(t, 1, session.closed)
}

func TestRun_PartialFailureKeepsGoing(t *testing.T) {
	// Three messages: one with two alerts, one that fails to download, one
	// with no extractable text. The good one must still yield both
	// transactions.
	session := &fakeSession{
		messages: map[uint32][]byte{
			1: alertMessage("Rs.100.00 has been debited from your account to VPA shop@upi SHOP ONE on 01-06-24.\r\n" +
				"Rs.40.00 has been debited from your account to VPA kiosk@upi KIOSK on 01-06-24."),
			3: []byte("\x00\x01 definitely not mail"),
		},
		fetchErr: map[uint32]error{2: fmt.Errorf("connection reset")},
	}
	f := New(&fakeDialer{session: session}, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.True(t, result.Success)
	require.Len(t, result.Transactions, 2)
	require.Len(t, result.Errors, 2)
	joined := strings.Join(result.Errors, "\n")
	assert.Contains(t, joined, "failed to fetch message 2")
	assert.Contains(t, joined, "could not extract text content from message 3")
	assert.Equal(t, 1, session.closed)
}

func TestRun_UnextractableMessage(t *testing.T) {
	session := &fakeSession{
		messages: map[uint32][]byte{
			7: []byte("\x00\x01 definitely not mail"),
		},
	}
	f := New(&fakeDialer{session: session}, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.True(t, result.Success)
	assert.Empty(t, result.Transactions)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "could not extract text content from message 7")
}

func TestRun_SearchFailureClosesSession(t *testing.T) {
	session := &fakeSession{searchErr: fmt.Errorf("server gone")}
	f := New(&fakeDialer{session: session}, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "server gone")
	assert.Equal(t, 1, session.closed, "session must be closed even when the search fails")
}

func TestRun_PanicRecovered(t *testing.T) {
	session := &fakeSession{
		messages:  map[uint32][]byte{1: alertMessage("irrelevant")},
		fetchHook: func(uint32) { panic("boom") },
	}
	f := New(&fakeDialer{session: session}, rules.Default(), nil)

	result := f.Run(context.Background(), testCreds)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "an unexpected error occurred"), "got %q", result.Errors[0])
	require.NotNil(t, result.Transactions)
	assert.Equal(t, 1, session.closed, "deferred close must run during panic recovery")
}

func TestRunSince_WindowPassedThrough(t *testing.T) {
	var gotSince time.Time
	session := &fakeSession{}
	dialer := &fakeDialer{session: session}
	f := New(&sinceRecordingDialer{dialer: dialer, since: &gotSince}, rules.Default(), nil)

	since := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	result := f.RunSince(context.Background(), testCreds, since)

	assert.True(t, result.Success)
	assert.Equal(t, since, gotSince)
}

// sinceRecordingDialer wraps sessions so the search window can be observed.
type sinceRecordingDialer struct {
	dialer api.Dialer
	since  *time.Time
}

func (d *sinceRecordingDialer) Connect(ctx context.Context, username, password string) (api.Session, error) {
	session, err := d.dialer.Connect(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return &sinceRecordingSession{Session: session, since: d.since}, nil
}

type sinceRecordingSession struct {
	api.Session
	since *time.Time
}

func (s *sinceRecordingSession) Search(ctx context.Context, sender string, since time.Time) ([]uint32, error) {
	*s.since = since
	return s.Session.Search(ctx, sender, since)
}
