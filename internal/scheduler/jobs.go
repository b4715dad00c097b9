// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"time"
)

// Retention periods for pruning jobs.
const (
	EventRetention    = 90 * 24 * time.Hour
	DeliveryRetention = 30 * 24 * time.Hour
)

// Job names.
const (
	JobWebinarStatus = "webinar_status"
	JobBlogPublish   = "blog_publish"
	JobWebhookRetry  = "webhook_retry"
	JobEventPrune    = "event_prune"
	JobDeliveryPrune = "webhook_delivery_prune"
	JobGeoIPReload   = "geoip_reload"
)

type WebinarRefresher interface {
	RefreshStatuses(ctx context.Context) (int, error)
}

type BlogPublisher interface {
	PublishDue(ctx context.Context) (int, error)
}

type EventPruner interface {
	Prune(ctx context.Context, age time.Duration) (int64, error)
}

type WebhookRetrier interface {
	RetryDue(ctx context.Context) (int, error)
	Prune(ctx context.Context, age time.Duration) (int64, error)
}

type Reloader interface {
	Reload() error
}

// Deps are the services the standard jobs act on. Nil fields skip the
// corresponding job.
type Deps struct {
	Webinars WebinarRefresher
	Blogs    BlogPublisher
	Events   EventPruner
	Webhooks WebhookRetrier
	GeoIP    Reloader
}

// RegisterDefaults registers the standard maintenance jobs.
func (s *Scheduler) RegisterDefaults(d Deps) error {
	type spec struct {
		name, description, schedule string
		fn                          JobFunc
	}
	var specs []spec

	if d.Webinars != nil {
		specs = append(specs, spec{JobWebinarStatus, "Recompute webinar statuses from their time window", "* * * * *",
			func(ctx context.Context) error {
				n, err := d.Webinars.RefreshStatuses(ctx)
				if n > 0 {
					s.logger.Info("webinar statuses refreshed", "changed", n)
				}
				return err
			}})
	}
	if d.Blogs != nil {
		specs = append(specs, spec{JobBlogPublish, "Publish verified posts whose publish time has come", "* * * * *",
			func(ctx context.Context) error {
				n, err := d.Blogs.PublishDue(ctx)
				if n > 0 {
					s.logger.Info("scheduled posts published", "count", n)
				}
				return err
			}})
	}
	if d.Webhooks != nil {
		specs = append(specs,
			spec{JobWebhookRetry, "Re-send failed webhook deliveries that are due", "*/5 * * * *",
				func(ctx context.Context) error {
					_, err := d.Webhooks.RetryDue(ctx)
					return err
				}},
			spec{JobDeliveryPrune, "Delete finished webhook deliveries older than 30 days", "30 3 * * *",
				func(ctx context.Context) error {
					_, err := d.Webhooks.Prune(ctx, DeliveryRetention)
					return err
				}})
	}
	if d.Events != nil {
		specs = append(specs, spec{JobEventPrune, "Delete activity log entries older than 90 days", "0 3 * * *",
			func(ctx context.Context) error {
				n, err := d.Events.Prune(ctx, EventRetention)
				if n > 0 {
					s.logger.Info("old events pruned", "count", n)
				}
				return err
			}})
	}
	if d.GeoIP != nil {
		specs = append(specs, spec{JobGeoIPReload, "Pick up a replaced GeoIP database file", "@hourly",
			func(context.Context) error { return d.GeoIP.Reload() }})
	}

	for _, sp := range specs {
		if err := s.Register(sp.name, sp.description, sp.schedule, sp.fn); err != nil {
			return err
		}
	}
	return nil
}
