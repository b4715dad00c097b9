// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message, messageType string) {
	renderer.SetFlash(r, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, "error")
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, url, message string) {
	flashAndRedirect(w, r, renderer, url, message, "success")
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, message string, statusCode int, logMsg string, args ...any) {
	slog.Error(logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, logMsg string, args ...any) {
	logAndHTTPError(w, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// renderPage renders a page, answering 500 if the template fails.
func renderPage(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, name string, data render.TemplateData) {
	renderStatus(w, r, renderer, http.StatusOK, name, data)
}

func renderStatus(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, status int, name string, data render.TemplateData) {
	if err := renderer.RenderStatus(w, r, status, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "template", name, "error", err)
	}
}

// renderInvalid re-renders a form page with its validation errors.
func renderInvalid(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, name string, data render.TemplateData, errs model.ValidationErrors) {
	data.Errors = errs
	if data.Flash == "" {
		data.Flash, data.FlashType = "Please correct the errors below.", "error"
	}
	renderStatus(w, r, renderer, http.StatusUnprocessableEntity, name, data)
}

// renderNotFound renders the 404 page.
func renderNotFound(w http.ResponseWriter, r *http.Request, renderer *render.Renderer) {
	if renderer == nil || !renderer.Has(templateNotFound) {
		http.NotFound(w, r)
		return
	}
	renderStatus(w, r, renderer, http.StatusNotFound, templateNotFound, render.TemplateData{Title: "Page not found"})
}

// handleServiceError maps a service error on a dashboard action to a flash
// and redirect. Unexpected errors are logged.
func handleServiceError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, redirectURL, entity string, err error) {
	if errs, ok := model.AsValidationErrors(err); ok {
		flashError(w, r, renderer, redirectURL, validationSummary(errs))
		return
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		flashError(w, r, renderer, redirectURL, entity+" not found")
	case isUserError(err):
		flashError(w, r, renderer, redirectURL, err.Error())
	default:
		slog.Error("failed to process "+entity, "error", err, "path", r.URL.Path)
		flashError(w, r, renderer, redirectURL, "Something went wrong while processing "+entity)
	}
}

// userErrors are sentinel errors whose message is safe to show as-is.
var userErrors = []error{
	errInvalidForm,
	service.ErrPublishUnverified,
	service.ErrResourceSource,
	service.ErrAlreadyRegistered,
	service.ErrWebinarFull,
	service.ErrPaymentProofRequired,
	service.ErrRegistrationClosed,
	service.ErrEmailTaken,
	service.ErrInvalidCredentials,
	service.ErrInactiveAccount,
	service.ErrCannotDeleteSelf,
	service.ErrCannotDeactivateSelf,
	service.ErrCannotImpersonate,
	service.ErrCommentsClosed,
	service.ErrInvalidParent,
	service.ErrFileType,
	service.ErrFileTooLarge,
	service.ErrEmptyFile,
	service.ErrNotPending,
	service.ErrStartInPast,
}

// validationSummary joins field messages for a flash, in field order.
func validationSummary(errs model.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, strings.ReplaceAll(f, "_", " ")+": "+errs[f])
	}
	return strings.Join(parts, "; ")
}

func isUserError(err error) bool {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
