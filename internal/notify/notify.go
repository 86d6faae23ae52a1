// Package notify delivers password reset links to account holders.
package notify

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// ResetNotice is everything a reset message needs.
type ResetNotice struct {
	Email     string
	Name      string
	Link      string
	ExpiresAt time.Time
}

type Notifier interface {
	SendPasswordReset(ctx context.Context, n ResetNotice) error
}

// ResetLink builds the frontend URL that carries a reset token.
func ResetLink(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// LogNotifier records that a reset was requested without delivering
// anything. It is used when no SMTP host is configured. The link is never
// logged since it is a live credential.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, notice ResetNotice) error {
	n.logger.WarnContext(ctx, "smtp not configured, password reset email not sent",
		"email", notice.Email,
		"expires_at", notice.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}
