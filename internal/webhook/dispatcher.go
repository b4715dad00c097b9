// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
)

// Dispatcher persists one delivery row per endpoint for each event and
// hands the rows to a pool of HTTP workers. Failed deliveries are retried
// by RetryDue, which the scheduler calls.
type Dispatcher struct {
	queries   *store.Queries
	logger    *slog.Logger
	client    *http.Client
	endpoints []string
	secret    string
	queue     chan queuedDelivery
	workers   int
	wg        sync.WaitGroup
	done      chan struct{}
	mu        sync.RWMutex
	running   bool
}

type queuedDelivery struct {
	ID       int64
	Endpoint string
	Event    string
	Payload  []byte
}

// Config holds dispatcher settings.
type Config struct {
	Endpoints    []string
	Secret       string
	Workers      int
	QueueSize    int
	AllowPrivate bool // permit endpoints on loopback or private networks
}

// NewDispatcher creates a dispatcher. With no endpoints every dispatch is
// a no-op.
func NewDispatcher(db *sql.DB, logger *slog.Logger, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         dialer.DialContext,
	}
	if !cfg.AllowPrivate {
		transport.DialContext = util.PublicDialContext(dialer)
	}

	return &Dispatcher{
		queries:   store.New(db),
		logger:    logger,
		client:    &http.Client{Timeout: RequestTimeout, Transport: transport},
		endpoints: cfg.Endpoints,
		secret:    cfg.Secret,
		queue:     make(chan queuedDelivery, cfg.QueueSize),
		workers:   cfg.Workers,
		done:      make(chan struct{}),
	}
}

// Enabled reports whether any endpoint is configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && len(d.endpoints) > 0
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true

	d.logger.Info("starting webhook dispatcher", "workers", d.workers, "endpoints", len(d.endpoints))
	for i := range d.workers {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the workers and waits for in-flight deliveries. Queued rows
// that were not attempted stay pending in the database.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case delivery := <-d.queue:
			d.logger.Debug("processing webhook delivery", "worker_id", id, "delivery_id", delivery.ID)
			d.processDelivery(ctx, delivery)
		}
	}
}

// Dispatch records and queues ev for every endpoint.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *Event) error {
	if !d.Enabled() {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", ev.Type, err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, endpoint := range d.endpoints {
		row, err := d.queries.CreateWebhookDelivery(ctx, store.CreateWebhookDeliveryParams{
			Endpoint:  endpoint,
			Event:     ev.Type,
			Payload:   string(payload),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			d.logger.Error("failed to create webhook delivery", "error", err, "event_type", ev.Type)
			continue
		}
		d.enqueue(queuedDelivery{ID: row.ID, Endpoint: endpoint, Event: ev.Type, Payload: payload})
	}
	return nil
}

// DispatchEvent implements Sender.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

func (d *Dispatcher) enqueue(qd queuedDelivery) bool {
	d.mu.RLock()
	running := d.running
	d.mu.RUnlock()
	if !running {
		return false
	}
	select {
	case d.queue <- qd:
		return true
	default:
		d.logger.Warn("webhook queue full, delivery left for retry", "delivery_id", qd.ID)
		return false
	}
}

// RetryDue re-queues failed deliveries whose retry time has passed and
// returns how many were queued.
func (d *Dispatcher) RetryDue(ctx context.Context) (int, error) {
	if !d.Enabled() {
		return 0, nil
	}
	due, err := d.queries.ListDueWebhookDeliveries(ctx, time.Now().UTC(), 50)
	if err != nil {
		return 0, fmt.Errorf("listing due deliveries: %w", err)
	}
	queued := 0
	for _, row := range due {
		if d.enqueue(queuedDelivery{ID: row.ID, Endpoint: row.Endpoint, Event: row.Event, Payload: []byte(row.Payload)}) {
			queued++
		}
	}
	return queued, nil
}

// Prune deletes finished deliveries older than age.
func (d *Dispatcher) Prune(ctx context.Context, age time.Duration) (int64, error) {
	return d.queries.DeleteOldWebhookDeliveries(ctx, time.Now().UTC().Add(-age))
}

// GenerateSignature returns the hex HMAC-SHA256 of payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
