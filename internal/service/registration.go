// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/olegiv/thinkspace/internal/mailer"
	"github.com/olegiv/thinkspace/internal/metrics"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
	"github.com/olegiv/thinkspace/internal/webhook"
)

// ErrNotPending is returned when confirming a registration that is not pending.
var ErrNotPending = errors.New("only pending registrations can be confirmed")

const (
	paymentReferenceAttempts = 5
	mailTimeout              = 15 * time.Second
)

// RegistrationService signs people up for webinars without overselling seats.
type RegistrationService struct {
	queries  *store.Queries
	uploads  *UploadService
	mail     mailer.Sender
	notifier webhook.Sender
	prefix   string
	baseURL  string
	logger   *slog.Logger
	now      func() time.Time
}

// RegistrationOptions configures a RegistrationService.
type RegistrationOptions struct {
	PaymentPrefix string
	BaseURL       string
}

// NewRegistrationService creates a RegistrationService. mail and notifier may be nil.
func NewRegistrationService(db *sql.DB, uploads *UploadService, mail mailer.Sender, notifier webhook.Sender,
	opts RegistrationOptions, logger *slog.Logger) *RegistrationService {
	if opts.PaymentPrefix == "" {
		opts.PaymentPrefix = "TS"
	}
	return &RegistrationService{
		queries:  store.New(db),
		uploads:  uploads,
		mail:     mail,
		notifier: notifier,
		prefix:   opts.PaymentPrefix,
		baseURL:  opts.BaseURL,
		logger:   logger,
		now:      nowUTC,
	}
}

// RegisterInput is a public signup for one webinar.
type RegisterInput struct {
	Form         model.RegistrationForm
	UserID       int64
	PaymentProof *FileUpload
	UserAgent    string
}

// Register signs up for the webinar with the given slug. Free webinars are
// confirmed at once; priced ones need a payment proof and stay pending until
// staff confirm them.
func (s *RegistrationService) Register(ctx context.Context, slug string, in RegisterInput) (store.WebinarRegistration, error) {
	in.Form.Email = model.NormalizeEmail(in.Form.Email)
	in.Form.FullName = strings.TrimSpace(in.Form.FullName)
	if errs := model.Validate(in.Form); errs != nil {
		metrics.RecordRegistration(metrics.OutcomeRejected)
		return store.WebinarRegistration{}, errs
	}
	w, err := s.queries.GetWebinarBySlug(ctx, slug)
	if err != nil {
		return store.WebinarRegistration{}, notFound(err)
	}
	now := s.now()
	status := model.ComputeWebinarStatus(w.Status, w.StartAt, w.DurationMinutes, now)
	if !model.AcceptsRegistrations(status) {
		metrics.RecordRegistration(metrics.OutcomeRejected)
		return store.WebinarRegistration{}, ErrRegistrationClosed
	}

	email := in.Form.Email
	if _, err := s.queries.GetRegistrationByEmail(ctx, store.GetRegistrationByEmailParams{WebinarID: w.ID, Email: email}); err == nil {
		metrics.RecordRegistration(metrics.OutcomeDuplicate)
		return store.WebinarRegistration{}, ErrAlreadyRegistered
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.WebinarRegistration{}, fmt.Errorf("checking registration: %w", err)
	}

	regStatus := model.RegistrationConfirmed
	var proof string
	if !w.IsFree() {
		if in.PaymentProof == nil {
			metrics.RecordRegistration(metrics.OutcomeRejected)
			return store.WebinarRegistration{}, ErrPaymentProofRequired
		}
		if proof, err = s.uploads.Save(model.UploadPaymentProof, *in.PaymentProof); err != nil {
			metrics.RecordRegistration(metrics.OutcomeRejected)
			return store.WebinarRegistration{}, model.ValidationErrors{"payment_proof": err.Error()}
		}
		regStatus = model.RegistrationPending
	}

	reg, err := s.insert(ctx, store.CreateRegistrationParams{
		WebinarID:    w.ID,
		UserID:       util.NullID(in.UserID),
		FullName:     in.Form.FullName,
		Email:        email,
		Status:       regStatus,
		Question:     in.Form.Question,
		PaymentProof: proof,
		UserAgent:    in.UserAgent,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		s.uploads.Remove(proof)
		switch {
		case errors.Is(err, ErrWebinarFull):
			metrics.RecordRegistration(metrics.OutcomeFull)
		case errors.Is(err, ErrAlreadyRegistered):
			metrics.RecordRegistration(metrics.OutcomeDuplicate)
		}
		return store.WebinarRegistration{}, err
	}

	if reg.Status == model.RegistrationConfirmed {
		metrics.RecordRegistration(metrics.OutcomeConfirmed)
	} else {
		metrics.RecordRegistration(metrics.OutcomePending)
	}
	s.logger.Info("webinar registration created",
		"registration_id", reg.ID, "webinar_id", w.ID, "status", reg.Status)

	data := s.eventData(reg, w.Title)
	notify(ctx, s.notifier, s.logger, model.EventRegistrationCreated, data)
	if reg.Status == model.RegistrationConfirmed {
		notify(ctx, s.notifier, s.logger, model.EventRegistrationConfirmed, data)
	}
	s.sendMail(ctx, reg, w.Webinar)
	return reg, nil
}

// insert writes the registration under the capacity guard, drawing a new
// payment reference when the random one collides.
func (s *RegistrationService) insert(ctx context.Context, arg store.CreateRegistrationParams) (store.WebinarRegistration, error) {
	for attempt := 0; attempt < paymentReferenceAttempts; attempt++ {
		arg.PaymentReference = s.paymentReference(arg.WebinarID)
		reg, err := s.queries.CreateRegistrationWithinCapacity(ctx, arg)
		switch {
		case err == nil:
			return reg, nil
		case errors.Is(err, sql.ErrNoRows):
			return store.WebinarRegistration{}, ErrWebinarFull
		case store.IsUniqueViolation(err, "webinar_registrations.payment_reference"):
			continue
		case store.IsUniqueViolation(err, "webinar_registrations.email"):
			return store.WebinarRegistration{}, ErrAlreadyRegistered
		default:
			return store.WebinarRegistration{}, fmt.Errorf("creating registration: %w", err)
		}
	}
	return store.WebinarRegistration{}, fmt.Errorf("creating registration: no free payment reference after %d attempts", paymentReferenceAttempts)
}

// paymentReference returns PREFIX-<webinar id>-<4 digits>.
func (s *RegistrationService) paymentReference(webinarID int64) string {
	return fmt.Sprintf("%s-%d-%04d", s.prefix, webinarID, rand.IntN(10000))
}

// Confirm moves a pending registration to confirmed if a seat is free.
func (s *RegistrationService) Confirm(ctx context.Context, id int64) (store.WebinarRegistration, error) {
	reg, err := s.queries.GetRegistration(ctx, id)
	if err != nil {
		return store.WebinarRegistration{}, notFound(err)
	}
	if reg.Status != model.RegistrationPending {
		return reg, ErrNotPending
	}
	confirmed, err := s.queries.ConfirmRegistrationWithinCapacity(ctx, store.ConfirmRegistrationParams{
		ID:        id,
		WebinarID: reg.WebinarID,
		UpdatedAt: s.now(),
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return reg, fmt.Errorf("confirming registration: %w", err)
		}
		// Either a seat was not free or another request changed the status first.
		current, gerr := s.queries.GetRegistration(ctx, id)
		if gerr == nil && current.Status != model.RegistrationPending {
			return current, ErrNotPending
		}
		metrics.RecordRegistration(metrics.OutcomeFull)
		return reg, ErrWebinarFull
	}

	w, err := s.queries.GetWebinarByID(ctx, confirmed.WebinarID)
	if err != nil {
		return confirmed, fmt.Errorf("loading webinar: %w", err)
	}
	metrics.RecordRegistration(metrics.OutcomeConfirmed)
	s.logger.Info("webinar registration confirmed", "registration_id", id, "webinar_id", w.ID)
	notify(ctx, s.notifier, s.logger, model.EventRegistrationConfirmed, s.eventData(confirmed, w.Title))
	s.sendMail(ctx, confirmed, w.Webinar)
	return confirmed, nil
}

// Cancel frees a registration's seat.
func (s *RegistrationService) Cancel(ctx context.Context, id int64) (store.WebinarRegistration, error) {
	reg, err := s.queries.CancelRegistration(ctx, id, s.now())
	if err != nil {
		return store.WebinarRegistration{}, notFound(err)
	}
	s.logger.Info("webinar registration cancelled", "registration_id", id, "webinar_id", reg.WebinarID)
	return reg, nil
}

// MarkJoined records the first time a registrant entered the live session.
func (s *RegistrationService) MarkJoined(ctx context.Context, id int64) (bool, error) {
	if _, err := s.queries.GetRegistration(ctx, id); err != nil {
		return false, notFound(err)
	}
	return s.queries.MarkRegistrationJoined(ctx, id, s.now())
}

// MarkLeft records when a registrant who joined left the session.
func (s *RegistrationService) MarkLeft(ctx context.Context, id int64) (bool, error) {
	if _, err := s.queries.GetRegistration(ctx, id); err != nil {
		return false, notFound(err)
	}
	return s.queries.MarkRegistrationLeft(ctx, id, s.now())
}

// Get returns a registration by id.
func (s *RegistrationService) Get(ctx context.Context, id int64) (store.WebinarRegistration, error) {
	reg, err := s.queries.GetRegistration(ctx, id)
	return reg, notFound(err)
}

// ListForWebinar returns a webinar's registrations, optionally filtered by
// status, with the per-status counts.
func (s *RegistrationService) ListForWebinar(ctx context.Context, webinarID int64, status string) ([]store.WebinarRegistration, store.RegistrationCounts, error) {
	if status != "" && status != model.RegistrationPending && status != model.RegistrationConfirmed && status != model.RegistrationCancelled {
		status = ""
	}
	regs, err := s.queries.ListRegistrationsForWebinar(ctx, store.ListRegistrationsForWebinarParams{WebinarID: webinarID, Status: status})
	if err != nil {
		return nil, store.RegistrationCounts{}, fmt.Errorf("listing registrations: %w", err)
	}
	counts, err := s.queries.CountRegistrationsByStatus(ctx, webinarID)
	if err != nil {
		return nil, store.RegistrationCounts{}, fmt.Errorf("counting registrations: %w", err)
	}
	return regs, counts, nil
}

// ListForEmail returns every registration made with an email address.
func (s *RegistrationService) ListForEmail(ctx context.Context, email string) ([]store.RegistrationRow, error) {
	return s.queries.ListRegistrationsByEmail(ctx, model.NormalizeEmail(email))
}

// SeatsRemaining returns the free seats of a webinar.
func (s *RegistrationService) SeatsRemaining(ctx context.Context, webinarID int64) (int64, error) {
	w, err := s.queries.GetWebinarByID(ctx, webinarID)
	if err != nil {
		return 0, notFound(err)
	}
	return w.SeatsRemaining(), nil
}

func (s *RegistrationService) eventData(reg store.WebinarRegistration, title string) webhook.RegistrationEventData {
	return webhook.RegistrationEventData{
		ID:               reg.ID,
		WebinarID:        reg.WebinarID,
		WebinarTitle:     title,
		FullName:         reg.FullName,
		Email:            reg.Email,
		Status:           reg.Status,
		PaymentReference: reg.PaymentReference,
	}
}

// sendMail emails the registrant. Failures are logged, never returned.
func (s *RegistrationService) sendMail(ctx context.Context, reg store.WebinarRegistration, w store.Webinar) {
	if s.mail == nil {
		return
	}
	data := mailer.RegistrationData{
		FullName:         reg.FullName,
		WebinarTitle:     w.Title,
		StartAt:          w.StartAt,
		Price:            model.FormatPrice(w.PriceCents),
		PaymentReference: reg.PaymentReference,
		DetailURL:        s.baseURL + "/webinars/" + w.Slug,
	}
	build := mailer.RegistrationConfirmed
	if reg.Status == model.RegistrationPending {
		build = mailer.RegistrationPending
	}
	msg, err := build(reg.Email, data)
	if err != nil {
		s.logger.Error("failed to render registration email", "registration_id", reg.ID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
	defer cancel()
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.Warn("failed to send registration email", "registration_id", reg.ID, "error", err)
	}
}
