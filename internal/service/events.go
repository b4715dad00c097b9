// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
)

// EventService writes and reads the activity log.
type EventService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, logger *slog.Logger) *EventService {
	return &EventService{
		queries: store.New(db),
		logger:  logger,
	}
}

// EventSource describes where an event came from. Zero fields are stored empty.
type EventSource struct {
	UserID    int64
	IPAddress string
	URL       string
}

// LogEvent creates a new event log entry. A failed write is logged and
// returned. A nil service discards the event.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, src EventSource, metadata map[string]any) error {
	if s == nil {
		return nil
	}
	metadataJSON := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		UserID:     util.NullID(src.UserID),
		IpAddress:  src.IPAddress,
		RequestUrl: src.URL,
		Metadata:   metadataJSON,
		CreatedAt:  nowUTC(),
	})
	if err != nil {
		s.logger.Error("failed to log event", "error", err, "category", category)
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message string, src EventSource, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, src, metadata)
}

// LogWarning logs a warning-level event.
func (s *EventService) LogWarning(ctx context.Context, category, message string, src EventSource, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelWarning, category, message, src, metadata)
}

// LogError logs an error-level event.
func (s *EventService) LogError(ctx context.Context, category, message string, src EventSource, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelError, category, message, src, metadata)
}

// List returns one page of the activity log, newest first.
func (s *EventService) List(ctx context.Context, filter store.EventFilter, page int) (Page[store.EventRow], error) {
	number, limit, offset := limitOffset(page, ActivityPageSize)
	total, err := s.queries.CountEvents(ctx, filter)
	if err != nil {
		return Page[store.EventRow]{}, fmt.Errorf("counting events: %w", err)
	}
	items, err := s.queries.ListEvents(ctx, store.ListEventsParams{EventFilter: filter, Limit: limit, Offset: offset})
	if err != nil {
		return Page[store.EventRow]{}, fmt.Errorf("listing events: %w", err)
	}
	return Page[store.EventRow]{Items: items, Number: number, PerPage: ActivityPageSize, Total: total}, nil
}

// Prune removes events older than age and returns how many were deleted.
func (s *EventService) Prune(ctx context.Context, age time.Duration) (int64, error) {
	n, err := s.queries.DeleteOldEvents(ctx, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return n, nil
}

// ClientInfo summarises a User-Agent header for event metadata.
type ClientInfo struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Device  string `json:"device"`
}

// ParseClient extracts browser, OS and device class from a User-Agent string.
func ParseClient(userAgent string) ClientInfo {
	ua := useragent.Parse(userAgent)
	info := ClientInfo{Browser: ua.Name, OS: ua.OS}
	if info.Browser == "" {
		info.Browser = "Unknown"
	}
	if info.OS == "" {
		info.OS = "Unknown"
	}
	switch {
	case ua.Bot:
		info.Device = "bot"
	case ua.Tablet:
		info.Device = "tablet"
	case ua.Mobile:
		info.Device = "mobile"
	default:
		info.Device = "desktop"
	}
	return info
}

// Map returns the info as event metadata.
func (c ClientInfo) Map() map[string]any {
	return map[string]any{"browser": c.Browser, "os": c.OS, "device": c.Device}
}
