package service

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/kodprodobro/auth-service/internal/config"
)

// EmailSender is fire-and-forget; callers never inspect delivery status.
type EmailSender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers mail over plain SMTP with optional auth.
type SMTPSender struct {
	cfg    *config.SMTPConfig
	logger *logrus.Logger
}

func NewSMTPSender(cfg *config.SMTPConfig, logger *logrus.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) Send(to, subject, body string) error {
	msg := []byte(
		"From: " + s.cfg.From + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
			"\r\n" +
			body)

	addr := s.cfg.Host + ":" + s.cfg.Port

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	return nil
}

// LogSender stands in for SMTP when no host is configured (local
// development); it logs instead of delivering.
type LogSender struct {
	logger *logrus.Logger
}

func NewLogSender(logger *logrus.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(to, subject, body string) error {
	s.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email delivery skipped (no SMTP host configured)")
	return nil
}
