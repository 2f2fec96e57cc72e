// Package mailbox implements the IMAP mailbox client used to retrieve bank
// alert emails.
package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/moneymap/moneymap/pkg/api"
)

// DefaultDialTimeout bounds the TLS dial. The IMAP protocol itself has no
// deadline here; a stuck server should fail the run, not hang it.
const DefaultDialTimeout = 30 * time.Second

// Dialer opens authenticated IMAP sessions against one server.
type Dialer struct {
	address string
	timeout time.Duration
	logger  *slog.Logger
}

// NewDialer creates a dialer for the given IMAP server address
// (host:port, implicit TLS).
func NewDialer(address string, timeout time.Duration, logger *slog.Logger) *Dialer {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{address: address, timeout: timeout, logger: logger}
}

// Connect dials the server, logs in, and selects the inbox. Bad credentials
// return *api.AuthError; every other failure returns *api.ConnectionError.
// The returned session must be closed exactly once.
func (d *Dialer) Connect(ctx context.Context, username, password string) (api.Session, error) {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: d.timeout}, "tcp", d.address, nil)
	if err != nil {
		return nil, &api.ConnectionError{Err: fmt.Errorf("dialing %s: %w", d.address, err)}
	}

	client := imapclient.New(conn, &imapclient.Options{})

	if err := client.Login(username, password).Wait(); err != nil {
		_ = client.Close()
		if isAuthFailure(err) {
			return nil, &api.AuthError{Err: err}
		}
		return nil, &api.ConnectionError{Err: fmt.Errorf("login: %w", err)}
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, &api.ConnectionError{Err: fmt.Errorf("selecting inbox: %w", err)}
	}

	d.logger.Debug("mailbox session opened", "server", d.address, "user", username)
	return &session{client: client, conn: conn, logger: d.logger}, nil
}

func isAuthFailure(err error) bool {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) && imapErr.Code == imap.ResponseCodeAuthenticationFailed {
		return true
	}
	// Some servers report the failure only in the response text.
	return strings.Contains(strings.ToUpper(err.Error()), "AUTHENTICATIONFAILED")
}

type session struct {
	client *imapclient.Client
	conn   net.Conn
	logger *slog.Logger
}

// withDeadline applies the context deadline to the underlying connection for
// the duration of one command. IMAP commands carry no context of their own,
// so cancellation is honored through I/O deadlines; a context without a
// deadline leaves the connection unbounded.
func (s *session) withDeadline(ctx context.Context) func() {
	deadline, ok := ctx.Deadline()
	if !ok {
		return func() {}
	}
	_ = s.conn.SetDeadline(deadline)
	return func() { _ = s.conn.SetDeadline(time.Time{}) }
}

// Search returns the UIDs of inbox messages from sender received on or after
// since. No matches is an empty, successful result.
func (s *session) Search(ctx context.Context, sender string, since time.Time) ([]uint32, error) {
	defer s.withDeadline(ctx)()
	criteria := &imap.SearchCriteria{
		Since: since,
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: sender},
		},
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching mailbox: %w", err)
	}

	uids := data.AllUIDs()
	ids := make([]uint32, len(uids))
	for i, uid := range uids {
		ids[i] = uint32(uid)
	}
	return ids, nil
}

// Fetch downloads the raw RFC 5322 bytes of one message.
func (s *session) Fetch(ctx context.Context, id uint32) ([]byte, error) {
	defer s.withDeadline(ctx)()
	bodySection := &imap.FetchItemBodySection{}
	options := &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	msgs, err := s.client.Fetch(imap.UIDSetNum(imap.UID(id)), options).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching message %d: %w", id, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message %d not found", id)
	}

	body := msgs[0].FindBodySection(bodySection)
	if len(body) == 0 {
		return nil, fmt.Errorf("message %d has an empty body", id)
	}
	return body, nil
}

// Close logs out and releases the connection. Logout failures are not worth
// surfacing: the session is finished either way.
func (s *session) Close() error {
	defer func() {
		_ = s.client.Close()
	}()
	if err := s.client.Logout().Wait(); err != nil {
		s.logger.Debug("imap logout failed", "error", err)
	}
	return nil
}
