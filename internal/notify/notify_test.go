package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestResetLink(t *testing.T) {
	assert.Equal(t, "http://localhost:5173/reset-password?token=abc123", ResetLink("http://localhost:5173/", "abc123"))
	assert.Equal(t, "https://inv.example/reset-password?token=a%2Bb", ResetLink("https://inv.example", "a+b"))
}

func TestRenderResetEscapesName(t *testing.T) {
	body, err := renderReset(ResetNotice{
		Email:     "ana@dominospizza.cl",
		Name:      "<b>Ana</b>",
		Link:      "http://localhost:5173/reset-password?token=abc",
		ExpiresAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, body, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.Contains(t, body, `href="http://localhost:5173/reset-password?token=abc"`)
	assert.Contains(t, body, "01-03-2026 11:00")
	assert.Contains(t, body, "Este enlace expira en 1 hora")
	assert.Contains(t, body, `<p style="word-break: break-all; color: #006491;">http://localhost:5173/reset-password?token=abc</p>`)
}

func TestRenderResetFallsBackToEmail(t *testing.T) {
	body, err := renderReset(ResetNotice{Email: "ana@dominospizza.cl", Link: "http://x/reset-password?token=t"})
	require.NoError(t, err)
	assert.Contains(t, body, "Hola ana@dominospizza.cl,")
}

func TestSMTPMailerBuildsAndSends(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example", Port: 587, From: "no-reply@dominospizza.cl"})
	require.NoError(t, err)

	var sent *mail.Msg
	m.send = func(_ context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	err = m.SendPasswordReset(context.Background(), ResetNotice{Email: "ana@dominospizza.cl", Name: "Ana", Link: "http://x/reset-password?token=t"})
	require.NoError(t, err)
	require.NotNil(t, sent)

	to, err := sent.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@dominospizza.cl"}, to)
	assert.Len(t, sent.GetGenHeader(mail.HeaderSubject), 1)
}

func TestSMTPMailerPropagatesSendFailure(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example", Port: 587, From: "no-reply@dominospizza.cl"})
	require.NoError(t, err)
	m.send = func(context.Context, *mail.Msg) error { return errors.New("connection refused") }

	err = m.SendPasswordReset(context.Background(), ResetNotice{Email: "ana@dominospizza.cl", Link: "http://x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSMTPMailerRejectsBadRecipient(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example", Port: 587, From: "no-reply@dominospizza.cl"})
	require.NoError(t, err)
	m.send = func(context.Context, *mail.Msg) error {
		t.Fatal("send must not be called")
		return nil
	}

	err = m.SendPasswordReset(context.Background(), ResetNotice{Email: "not an address"})
	assert.Error(t, err)
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{From: "a@b.cl"})
	assert.Error(t, err)
	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.example"})
	assert.Error(t, err)
}

func TestLogNotifierOmitsLink(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := n.SendPasswordReset(context.Background(), ResetNotice{Email: "ana@dominospizza.cl", Link: "http://x/reset-password?token=secret"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ana@dominospizza.cl")
	assert.False(t, strings.Contains(buf.String(), "secret"))
}
