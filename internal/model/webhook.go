// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Notification event types
const (
	EventBlogNeedsVerification = "blog.needs_verification"
	EventBlogPublished         = "blog.published"
	EventRegistrationCreated   = "registration.created"
	EventRegistrationConfirmed = "registration.confirmed"
	EventUserCreated           = "user.created"
	EventUserDeleted           = "user.deleted"
)

// Webhook delivery statuses
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
	DeliveryStatusDead      = "dead"
)

// WebhookEventInfo pairs an event type with a description.
type WebhookEventInfo struct {
	Type        string
	Description string
}

// AllWebhookEvents lists every notification the site sends.
func AllWebhookEvents() []WebhookEventInfo {
	return []WebhookEventInfo{
		{EventBlogNeedsVerification, "A post was saved as published but is not verified yet"},
		{EventBlogPublished, "A post became publicly visible"},
		{EventRegistrationCreated, "Someone registered for a webinar"},
		{EventRegistrationConfirmed, "A webinar registration was confirmed"},
		{EventUserCreated, "A user account was created"},
		{EventUserDeleted, "A user account was deleted"},
	}
}
