// Copyright (c) 2026 Starbase. All rights reserved.
// Author: dev@starbase.social

// Package mail provides transactional email delivery for account flows
// (password resets). It is a thin collaborator: templates and rendering are
// intentionally minimal, and a missing SMTP configuration downgrades sends
// to log-only so development environments need no mail server.
package mail

import (
	"fmt"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"github.com/starbasehq/starbase/internal/platform/config"
)

// Sender delivers account mail. Services depend on this interface; the SMTP
// implementation below is the production backend.
type Sender interface {
	// SendPasswordReset delivers a reset token to the account's address.
	SendPasswordReset(to, username, token string) error
}

// SMTPSender implements [Sender] over an SMTP relay via gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// NewSender constructs a [Sender] from application configuration. When no
// SMTP host is configured it returns a logging no-op sender.
func NewSender(cfg *config.Config, logger *slog.Logger) Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("smtp not configured, outbound mail will only be logged")
		return &logSender{logger: logger}
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.MailFrom,
		logger: logger,
	}
}

// SendPasswordReset delivers the reset token.
func (sender *SMTPSender) SendPasswordReset(to, username, token string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", sender.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", "Reset your Starbase password")
	message.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account."+
			"\nYour reset code is: %s\n\nIf you did not request this, ignore this message.\n",
		username, token,
	))

	if err := sender.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("mail: failed to send password reset to %s: %w", to, err)
	}

	sender.logger.Info("password_reset_mail_sent", slog.String("to", to))
	return nil
}

// logSender is the development fallback: it records the send instead of
// performing it.
type logSender struct {
	logger *slog.Logger
}

func (sender *logSender) SendPasswordReset(to, username, token string) error {
	sender.logger.Info("password_reset_mail_skipped",
		slog.String("to", to),
		slog.String("username", username),
	)
	return nil
}
