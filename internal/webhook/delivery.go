// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/olegiv/thinkspace/internal/metrics"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
)

const (
	MaxAttempts    = 5
	InitialBackoff = time.Minute
	MaxBackoff     = 6 * time.Hour
	RequestTimeout = 15 * time.Second
	MaxResponseLen = 4 * 1024
	UserAgent      = "ThinkSpace-Webhook/1.0"

	SignatureHeader = "X-ThinkSpace-Signature"
	EventHeader     = "X-ThinkSpace-Event"
	DeliveryHeader  = "X-ThinkSpace-Delivery"
)

// DeliveryResult is the outcome of one HTTP attempt.
type DeliveryResult struct {
	Success     bool
	StatusCode  int
	Error       error
	ShouldRetry bool
}

func (d *Dispatcher) processDelivery(ctx context.Context, qd queuedDelivery) {
	record, err := d.queries.GetWebhookDelivery(ctx, qd.ID)
	if err != nil {
		d.logger.Error("failed to load webhook delivery", "error", err, "delivery_id", qd.ID)
		return
	}
	if record.Status == model.DeliveryStatusDelivered || record.Status == model.DeliveryStatusDead {
		return
	}

	result := d.attemptDelivery(ctx, qd)
	now := time.Now().UTC().Truncate(time.Second)
	code := sql.NullInt64{Int64: int64(result.StatusCode), Valid: result.StatusCode > 0}

	if result.Success {
		err = d.queries.UpdateDeliverySuccess(ctx, store.UpdateDeliverySuccessParams{
			ResponseCode: code,
			DeliveredAt:  sql.NullTime{Time: now, Valid: true},
			UpdatedAt:    now,
			ID:           qd.ID,
		})
		if err != nil {
			d.logger.Error("failed to mark webhook delivered", "error", err, "delivery_id", qd.ID)
		}
		metrics.RecordWebhookDelivery(model.DeliveryStatusDelivered)
		return
	}

	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	attempts := record.Attempts + 1

	if !result.ShouldRetry || attempts >= MaxAttempts {
		err = d.queries.UpdateDeliveryDead(ctx, store.UpdateDeliveryDeadParams{
			ResponseCode: code,
			ErrorMessage: errMsg,
			UpdatedAt:    now,
			ID:           qd.ID,
		})
		if err != nil {
			d.logger.Error("failed to mark webhook dead", "error", err, "delivery_id", qd.ID)
		}
		metrics.RecordWebhookDelivery(model.DeliveryStatusDead)
		d.logger.Warn("webhook delivery gave up",
			"delivery_id", qd.ID,
			"event_type", qd.Event,
			"attempts", attempts,
			"reason", errMsg)
		return
	}

	next := now.Add(calculateBackoff(attempts))
	err = d.queries.UpdateDeliveryRetry(ctx, store.UpdateDeliveryRetryParams{
		ResponseCode: code,
		ErrorMessage: errMsg,
		NextRetryAt:  sql.NullTime{Time: next, Valid: true},
		UpdatedAt:    now,
		ID:           qd.ID,
	})
	if err != nil {
		d.logger.Error("failed to schedule webhook retry", "error", err, "delivery_id", qd.ID)
	}
	metrics.RecordWebhookDelivery("retry")
	d.logger.Info("webhook delivery scheduled for retry",
		"delivery_id", qd.ID,
		"attempt", attempts,
		"next_retry_at", next.Format(time.RFC3339))
}

func (d *Dispatcher) attemptDelivery(ctx context.Context, qd queuedDelivery) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, qd.Endpoint, bytes.NewReader(qd.Payload))
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(EventHeader, qd.Event)
	req.Header.Set(DeliveryHeader, strconv.FormatInt(qd.ID, 10))
	if d.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+GenerateSignature(qd.Payload, d.secret))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("request failed: %w", err), ShouldRetry: true}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))

	return classifyStatus(resp.StatusCode)
}

// classifyStatus treats 2xx as success and retries 5xx, 408 and 429.
func classifyStatus(code int) DeliveryResult {
	switch {
	case code >= 200 && code < 300:
		return DeliveryResult{Success: true, StatusCode: code}
	case code >= 400 && code < 500:
		return DeliveryResult{
			StatusCode:  code,
			Error:       fmt.Errorf("HTTP %d: %s", code, http.StatusText(code)),
			ShouldRetry: code == http.StatusRequestTimeout || code == http.StatusTooManyRequests,
		}
	default:
		return DeliveryResult{
			StatusCode:  code,
			Error:       fmt.Errorf("HTTP %d: %s", code, http.StatusText(code)),
			ShouldRetry: true,
		}
	}
}

// calculateBackoff doubles from InitialBackoff per attempt, capped at MaxBackoff.
func calculateBackoff(attempt int64) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}
	backoff := InitialBackoff
	for i := int64(1); i < attempt; i++ {
		backoff *= 2
		if backoff >= MaxBackoff {
			return MaxBackoff
		}
	}
	return backoff
}
