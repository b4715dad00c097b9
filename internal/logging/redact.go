// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)

// redactOptions lists the attribute names whose values never reach a log line.
func redactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("password"),
		masq.WithFieldName("password2"),
		masq.WithFieldName("password_hash"),
		masq.WithFieldName("secret"),
		masq.WithFieldName("session_secret"),
		masq.WithFieldName("webhook_secret"),
		masq.WithFieldName("smtp_password"),
		masq.WithFieldName("token"),
		masq.WithFieldName("csrf_token"),
		masq.WithFieldName("session"),
		masq.WithFieldName("cookie"),
		masq.WithFieldName("authorization"),
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(bearerPattern),
	}
}

// NewReplaceAttr returns a slog ReplaceAttr func that redacts sensitive values.
func NewReplaceAttr(extra ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(redactOptions(), extra...)...)
}
