// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging builds the process logger and mirrors WARN and ERROR
// records into the events table that backs the dashboard activity log.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
)

// Attribute keys read by EventLogHandler instead of being copied into metadata.
const (
	AttrCategory = "category"
	AttrUserID   = "user_id"
	AttrIP       = "ip"
	AttrURL      = "url"
)

type userIDKey struct{}

// WithUserID stores the acting user's id for events logged with ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func userIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}

// EventLogHandler is a slog.Handler that wraps another handler and also
// writes records at or above its level to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler wraps inner, mirroring WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel wraps inner with a custom mirroring threshold.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.level {
		h.writeEvent(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler. Attributes added here also feed the
// event's category, user and metadata.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

func (h *EventLogHandler) writeEvent(ctx context.Context, r slog.Record) {
	params := store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Message:   r.Message,
		CreatedAt: r.Time.UTC(),
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}

	userID := userIDFromContext(ctx)
	metadata := make(map[string]string)
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case AttrCategory:
			params.Category = a.Value.String()
		case AttrUserID:
			if a.Value.Kind() == slog.KindInt64 {
				userID = a.Value.Int64()
			}
		case AttrIP:
			params.IpAddress = a.Value.String()
		case AttrURL:
			params.RequestUrl = a.Value.String()
		default:
			metadata[a.Key] = a.Value.Resolve().String()
		}
		return true
	}
	for _, a := range h.attrs {
		visit(a)
	}
	r.Attrs(visit)

	if params.Category == "" {
		params.Category = inferCategory(r.Message)
	}
	if userID > 0 {
		params.UserID = sql.NullInt64{Int64: userID, Valid: true}
	}
	params.Metadata = "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			params.Metadata = string(b)
		}
	}

	// The request context may already be cancelled when an error is logged.
	_, _ = h.queries.CreateEvent(context.WithoutCancel(ctx), params)
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") ||
		strings.Contains(msg, "impersonat") || strings.Contains(msg, "forbidden"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "registration"):
		return model.EventCategoryRegistration
	case strings.Contains(msg, "webinar"):
		return model.EventCategoryWebinar
	case strings.Contains(msg, "blog") || strings.Contains(msg, "comment"):
		return model.EventCategoryBlog
	case strings.Contains(msg, "user"):
		return model.EventCategoryUser
	case strings.Contains(msg, "cache"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}
