// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer sends registration emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"gopkg.in/gomail.v2"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings. An empty Host selects the log-only sender.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// New returns an SMTP sender when cfg.Host is set, otherwise a sender
// that only logs.
func New(cfg Config, logger *slog.Logger) Sender {
	if cfg.Host == "" {
		return &LogSender{logger: logger}
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		logger: logger,
	}
}

// SMTPSender sends through gomail, dialing per message.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// Send implements Sender.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	s.logger.Info("mail sent", "subject", msg.Subject)
	return nil
}

// LogSender records messages in the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("mail not sent, SMTP not configured", "subject", msg.Subject)
	return nil
}

// RegistrationData fills the registration templates.
type RegistrationData struct {
	FullName         string
	WebinarTitle     string
	StartAt          time.Time
	Price            string
	PaymentReference string
	DetailURL        string
}

var (
	confirmedTmpl = template.Must(template.New("confirmed").Parse(`Hello {{.FullName}},

Your seat for "{{.WebinarTitle}}" is confirmed.
It starts {{.StartAt.Format "Mon, 02 Jan 2006 15:04 MST"}}.

Details: {{.DetailURL}}

See you there,
ThinkSpace
`))

	pendingTmpl = template.Must(template.New("pending").Parse(`Hello {{.FullName}},

We received your registration for "{{.WebinarTitle}}" ({{.Price}}).
Your payment reference is {{.PaymentReference}}. We will confirm your seat
once the payment proof you uploaded has been checked.

Details: {{.DetailURL}}

ThinkSpace
`))
)

// RegistrationConfirmed builds the email for a confirmed seat.
func RegistrationConfirmed(to string, data RegistrationData) (Message, error) {
	return render(to, "You're registered: "+data.WebinarTitle, confirmedTmpl, data)
}

// RegistrationPending builds the email for a registration awaiting payment review.
func RegistrationPending(to string, data RegistrationData) (Message, error) {
	return render(to, "Registration received: "+data.WebinarTitle, pendingTmpl, data)
}

func render(to, subject string, tmpl *template.Template, data RegistrationData) (Message, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("rendering %s mail: %w", tmpl.Name(), err)
	}
	return Message{To: to, Subject: subject, Body: buf.String()}, nil
}
