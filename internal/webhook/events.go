// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook sends signed JSON notifications about blog, registration
// and user events to the endpoints listed in THINKSPACE_WEBHOOK_URLS.
package webhook

import (
	"context"
	"time"
)

// Event is the JSON body of every notification.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Sender is implemented by Dispatcher and Debouncer.
type Sender interface {
	DispatchEvent(ctx context.Context, eventType string, data any) error
}

// BlogEventData is sent with blog.* events.
type BlogEventData struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Status     string `json:"status"`
	IsVerified bool   `json:"is_verified"`
	AuthorID   int64  `json:"author_id"`
	URL        string `json:"url"`
}

// RegistrationEventData is sent with registration.* events.
type RegistrationEventData struct {
	ID               int64  `json:"id"`
	WebinarID        int64  `json:"webinar_id"`
	WebinarTitle     string `json:"webinar_title"`
	FullName         string `json:"full_name"`
	Email            string `json:"email"`
	Status           string `json:"status"`
	PaymentReference string `json:"payment_reference,omitempty"`
}

// UserEventData is sent with user.* events.
type UserEventData struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
