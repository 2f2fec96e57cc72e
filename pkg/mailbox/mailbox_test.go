package mailbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneymap/moneymap/pkg/api"
)

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "imap response code",
			err:  &imap.Error{Code: imap.ResponseCodeAuthenticationFailed, Text: "Invalid credentials"},
			want: true,
		},
		{
			name: "wrapped imap response code",
			err:  fmt.Errorf("login: %w", &imap.Error{Code: imap.ResponseCodeAuthenticationFailed}),
			want: true,
		},
		{
			name: "text-only failure",
			err:  errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials (Failure)"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection reset by peer"),
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isAuthFailure(tc.err))
		})
	}
}

func TestNewDialer_Defaults(t *testing.T) {
	d := NewDialer("imap.example.com:993", 0, nil)
	assert.Equal(t, DefaultDialTimeout, d.timeout)
	assert.NotNil(t, d.logger)
}

// deadlineConn records SetDeadline calls.
type deadlineConn struct {
	net.Conn
	deadlines []time.Time
}

func (c *deadlineConn) SetDeadline(t time.Time) error {
	c.deadlines = append(c.deadlines, t)
	return nil
}

func TestWithDeadline_AppliedAndCleared(t *testing.T) {
	conn := &deadlineConn{}
	s := &session{conn: conn}

	deadline := time.Now().Add(5 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	restore := s.withDeadline(ctx)
	require.Len(t, conn.deadlines, 1)
	assert.True(t, conn.deadlines[0].Equal(deadline))

	restore()
	require.Len(t, conn.deadlines, 2)
	assert.True(t, conn.deadlines[1].IsZero(), "restore must clear the deadline")
}

func TestWithDeadline_NoDeadlineNoop(t *testing.T) {
	conn := &deadlineConn{}
	s := &session{conn: conn}

	restore := s.withDeadline(context.Background())
	restore()

	assert.Empty(t, conn.deadlines)
}

func TestConnect_UnreachableServer(t *testing.T) {
	d := NewDialer("127.0.0.1:1", 500*time.Millisecond, nil)

	_, err := d.Connect(context.Background(), "user@example.com", "app-pass")
	require.Error(t, err)

	var connErr *api.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}
