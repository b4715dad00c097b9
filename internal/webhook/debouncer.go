// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DebounceConfig sets the coalescing window.
type DebounceConfig struct {
	Interval time.Duration // quiet period before sending
	MaxWait  time.Duration // send at the latest this long after the first event
}

// DefaultDebounceConfig returns a 2s window capped at 10s.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{Interval: 2 * time.Second, MaxWait: 10 * time.Second}
}

type pendingEvent struct {
	event     *Event
	timer     *time.Timer
	firstSeen time.Time
}

// Debouncer coalesces repeated events for the same entity, so an editor
// saving a post several times in a row produces one notification carrying
// the latest data.
type Debouncer struct {
	sender  Sender
	config  DebounceConfig
	pending map[string]*pendingEvent
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDebouncer wraps sender.
func NewDebouncer(sender Sender, config DebounceConfig) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		sender:  sender,
		config:  config,
		pending: make(map[string]*pendingEvent),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// eventKey groups events by type and entity id.
func eventKey(ev *Event) string {
	var id int64
	switch data := ev.Data.(type) {
	case BlogEventData:
		id = data.ID
	case RegistrationEventData:
		id = data.ID
	case UserEventData:
		id = data.ID
	default:
		return ev.Type
	}
	return fmt.Sprintf("%s:%d", ev.Type, id)
}

// DispatchEvent implements Sender.
func (d *Debouncer) DispatchEvent(_ context.Context, eventType string, data any) error {
	ev := NewEvent(eventType, data)
	key := eventKey(ev)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pending[key]; ok {
		existing.event = ev
		if now.Sub(existing.firstSeen) >= d.config.MaxWait {
			d.sendLocked(key)
			return nil
		}
		existing.timer.Reset(d.config.Interval)
		return nil
	}

	pe := &pendingEvent{event: ev, firstSeen: now}
	pe.timer = time.AfterFunc(d.config.Interval, func() {
		d.mu.Lock()
		d.sendLocked(key)
		d.mu.Unlock()
	})
	d.pending[key] = pe
	return nil
}

// sendLocked must be called with d.mu held.
func (d *Debouncer) sendLocked(key string) {
	pe, ok := d.pending[key]
	if !ok {
		return
	}
	pe.timer.Stop()
	delete(d.pending, key)

	d.wg.Add(1)
	go func(ev *Event) {
		defer d.wg.Done()
		_ = d.sender.DispatchEvent(d.ctx, ev.Type, ev.Data)
	}(pe.event)
}

// Flush sends everything pending now.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.pending {
		d.sendLocked(key)
	}
}

// Stop flushes pending events and waits for them to be handed over.
func (d *Debouncer) Stop() {
	d.Flush()
	d.wg.Wait()
	d.cancel()
}

// PendingCount returns the number of events waiting in the window.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
