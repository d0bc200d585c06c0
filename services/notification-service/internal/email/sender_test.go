package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type captured struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestSender(cfg SMTPConfig) (*SMTPSender, *captured) {
	s := NewSMTPSender(cfg)
	c := &captured{}
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		c.addr, c.auth, c.from, c.to, c.msg = addr, a, from, to, string(msg)
		return nil
	}
	s.now = func() time.Time { return time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC) }
	return s, c
}

func TestSendBuildsPlainTextMessage(t *testing.T) {
	s, c := newTestSender(SMTPConfig{Host: "mailpit", Port: "1025"})
	err := s.Send(context.Background(), Message{To: "kim@example.com", Subject: "Booking confirmed", Body: "line one\nline two"})
	require.NoError(t, err)

	require.Equal(t, "mailpit:1025", c.addr)
	require.Nil(t, c.auth)
	require.Equal(t, "no-reply@dojobook.local", c.from)
	require.Equal(t, []string{"kim@example.com"}, c.to)
	require.True(t, strings.HasPrefix(c.msg, "From: no-reply@dojobook.local\r\nTo: kim@example.com\r\nSubject: Booking confirmed\r\n"))
	require.Contains(t, c.msg, "Date: Mon, 17 Mar 2025 09:00:00 +0000\r\n")
	require.True(t, strings.HasSuffix(c.msg, "\r\n\r\nline one\r\nline two\r\n"))
}

func TestSendUsesAuthWhenConfigured(t *testing.T) {
	s, c := newTestSender(SMTPConfig{Host: "smtp.example.com", Port: "587", From: "dojo@example.com", Username: "dojo", Password: "secret"})
	require.NoError(t, s.Send(context.Background(), Message{To: "kim@example.com"}))
	require.NotNil(t, c.auth)
	require.Equal(t, "dojo@example.com", c.from)
}

func TestSendRejectsHeaderInjection(t *testing.T) {
	s, c := newTestSender(SMTPConfig{Host: "mailpit", Port: "1025"})
	err := s.Send(context.Background(), Message{To: "kim@example.com", Subject: "Hi\r\nBcc: victim@example.com"})
	require.NoError(t, err)
	require.NotContains(t, c.msg, "\r\nBcc:")
	require.Contains(t, c.msg, "Subject: HiBcc: victim@example.com\r\n")

	require.Error(t, s.Send(context.Background(), Message{To: "nobody"}))
}

func TestSendHonoursCancelledContext(t *testing.T) {
	s, c := newTestSender(SMTPConfig{Host: "mailpit", Port: "1025"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, Message{To: "kim@example.com"}), context.Canceled)
	require.Empty(t, c.msg)
}
