// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/geoip"
	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
)

// AuthHandler handles sign-in, sign-up and the signed-in user's own pages.
type AuthHandler struct {
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	svc             Services
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		renderer:        renderer,
		sessionManager:  sm,
		svc:             svc,
		loginProtection: lp,
	}
}

// LoginData holds data for the login page.
type LoginData struct {
	Next string
}

// homeFor is where a user lands after signing in without a next target.
func homeFor(u store.User) string {
	if u.IsStaff || u.IsSuperuser {
		return redirectDashboard
	}
	return RouteRoot
}

// safeNext returns next when it is a local path, else fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}

// LoginForm renders the login page. Signed-in users are sent on.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next"), homeFor(*user)), http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, templateLogin, render.TemplateData{
		Title: "Sign in",
		Data:  LoginData{Next: r.URL.Query().Get("next")},
		Form:  model.LoginForm{},
	})
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, form model.LoginForm, next, message string) {
	form.Password = ""
	renderStatus(w, r, h.renderer, status, templateLogin, render.TemplateData{
		Title:     "Sign in",
		Data:      LoginData{Next: next},
		Form:      form,
		Flash:     message,
		FlashType: "error",
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form model.LoginForm
	if err := decodeForm(w, r, &form); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, form, "", "Invalid form data")
		return
	}
	next := r.PostForm.Get("next")
	email := model.NormalizeEmail(form.Email)
	src := eventSource(r)

	if h.loginProtection != nil {
		if remaining := h.loginProtection.Lockout(email); remaining > 0 {
			_ = h.svc.Events.LogWarning(r.Context(), model.EventCategoryAuth, "Login attempt on locked account", src, map[string]any{"email": email})
			h.renderLogin(w, r, http.StatusTooManyRequests, form, next,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	user, err := h.svc.Users.Authenticate(r.Context(), form)
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			form.Password = ""
			renderInvalid(w, r, h.renderer, templateLogin, render.TemplateData{Title: "Sign in", Data: LoginData{Next: next}, Form: form}, errs)
			return
		}
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			_ = h.svc.Events.LogWarning(r.Context(), model.EventCategoryAuth, "Login failed: invalid credentials", src, map[string]any{"email": email})
			h.renderLogin(w, r, http.StatusUnauthorized, form, next, h.failedLoginMessage(r, email, src))
		case errors.Is(err, service.ErrInactiveAccount):
			_ = h.svc.Events.LogWarning(r.Context(), model.EventCategoryAuth, "Login failed: account disabled", src, map[string]any{"email": email})
			h.renderLogin(w, r, http.StatusForbidden, form, next, err.Error())
		default:
			slog.Error("login failed", "error", err)
			h.renderLogin(w, r, http.StatusInternalServerError, form, next, "Something went wrong. Please try again.")
		}
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.Succeed(email)
	}
	if err := session.Login(r.Context(), h.sessionManager, user.ID); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID)
	src.UserID = user.ID
	metadata := service.ParseClient(r.UserAgent()).Map()
	metadata["email"] = user.Email
	_ = h.svc.Events.LogInfo(r.Context(), model.EventCategoryAuth, "User logged in", src, metadata)

	name := user.FirstName
	if name == "" {
		name = user.Username
	}
	flashSuccess(w, r, h.renderer, safeNext(next, homeFor(user)), "Welcome back, "+name+"!")
}

// failedLoginMessage records the failure and words the response, warning
// when the account is close to or past the lockout threshold.
func (h *AuthHandler) failedLoginMessage(r *http.Request, email string, src service.EventSource) string {
	msg := service.ErrInvalidCredentials.Error()
	if h.loginProtection == nil {
		return msg
	}
	lockedFor, remaining := h.loginProtection.Fail(email)
	if lockedFor > 0 {
		_ = h.svc.Events.LogWarning(r.Context(), model.EventCategoryAuth, "Account locked due to failed attempts", src,
			map[string]any{"email": email, "duration": lockedFor.String()})
		return fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockedFor))
	}
	if remaining > 0 && remaining <= 3 {
		return fmt.Sprintf("%s. %d attempts remaining.", msg, remaining)
	}
	return msg
}

// SignupForm renders the sign-up page.
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	if user := middleware.GetUser(r); user != nil {
		http.Redirect(w, r, homeFor(*user), http.StatusSeeOther)
		return
	}
	renderPage(w, r, h.renderer, templateSignup, render.TemplateData{
		Title: "Create an account",
		Form:  model.SignupForm{},
	})
}

// Signup creates an account, signs it in and sends the user to complete
// their profile.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var form model.SignupForm
	if err := decodeForm(w, r, &form); err != nil {
		flashError(w, r, h.renderer, RouteSignup, "Invalid form data")
		return
	}

	user, err := h.svc.Users.Signup(r.Context(), form, middleware.ClientIP(r))
	if err != nil {
		errs, ok := model.AsValidationErrors(err)
		if !ok && errors.Is(err, service.ErrEmailTaken) {
			errs, ok = model.ValidationErrors{"email": err.Error()}, true
		}
		if !ok {
			slog.Error("signup failed", "error", err)
			flashError(w, r, h.renderer, RouteSignup, "Something went wrong. Please try again.")
			return
		}
		form.Password, form.Password2 = "", ""
		renderInvalid(w, r, h.renderer, templateSignup, render.TemplateData{Title: "Create an account", Form: form}, errs)
		return
	}

	if err := session.Login(r.Context(), h.sessionManager, user.ID); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	src := eventSource(r)
	src.UserID = user.ID
	_ = h.svc.Events.LogInfo(r.Context(), model.EventCategoryAuth, "User signed up", src, map[string]any{"email": user.Email})
	flashSuccess(w, r, h.renderer, redirectEditProfile, "Welcome to ThinkSpace! Tell us a little about yourself.")
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := session.UserID(r.Context(), h.sessionManager)
	if userID > 0 {
		src := eventSource(r)
		src.UserID = userID
		_ = h.svc.Events.LogInfo(r.Context(), model.EventCategoryAuth, "User logged out", src, nil)
	}

	if err := session.Logout(r.Context(), h.sessionManager); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	flashAndRedirect(w, r, h.renderer, RouteLogin, "You have been signed out", "info")
}

// ProfileData holds data for the profile page.
type ProfileData struct {
	User          store.User
	Profile       store.Profile
	Registrations []store.RegistrationRow
}

// Profile shows the signed-in user's profile and webinar registrations.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	u, profile, err := h.svc.Users.Profile(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to load profile", "error", err, "user_id", user.ID)
		return
	}
	regs, err := h.svc.Registrations.ListForEmail(r.Context(), u.Email)
	if err != nil {
		logAndInternalError(w, "failed to list registrations", "error", err, "user_id", user.ID)
		return
	}
	renderPage(w, r, h.renderer, templateProfile, render.TemplateData{
		Title:       "My profile",
		Breadcrumbs: []render.Breadcrumb{{Label: "Profile"}},
		Data:        ProfileData{User: u, Profile: profile, Registrations: regs},
	})
}

// EditProfileData holds data for the profile editor.
type EditProfileData struct {
	User      store.User
	Profile   store.Profile
	Countries []geoip.Country
	Genders   []string
	Account   model.AccountForm
}

func profileForm(u store.User, p store.Profile) model.ProfileForm {
	form := model.ProfileForm{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       p.Bio,
		Country:   p.Country,
		Address:   p.Address,
		Gender:    p.Gender,
		Whatsapp:  p.Whatsapp,
		Instagram: p.Instagram,
		Twitter:   p.Twitter,
		Linkedin:  p.Linkedin,
	}
	if p.DateOfBirth.Valid {
		form.DateOfBirth = p.DateOfBirth.Time.Format(model.DateInputLayout)
	}
	return form
}

func (h *AuthHandler) editProfileData(w http.ResponseWriter, r *http.Request) (render.TemplateData, store.User, store.Profile, bool) {
	user := middleware.GetUser(r)
	u, p, err := h.svc.Users.Profile(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to load profile", "error", err, "user_id", user.ID)
		return render.TemplateData{}, u, p, false
	}
	return render.TemplateData{
		Title: "Edit profile",
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Profile", URL: redirectProfile},
			{Label: "Edit"},
		},
		Data: EditProfileData{
			User:      u,
			Profile:   p,
			Countries: geoip.Countries(),
			Genders:   model.Genders(),
			Account:   model.AccountForm{Email: u.Email},
		},
	}, u, p, true
}

// EditProfileForm renders the profile editor.
func (h *AuthHandler) EditProfileForm(w http.ResponseWriter, r *http.Request) {
	data, u, p, ok := h.editProfileData(w, r)
	if !ok {
		return
	}
	data.Form = profileForm(u, p)
	renderPage(w, r, h.renderer, templateEditProfile, data)
}

// EditProfile saves the profile editor.
func (h *AuthHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	var form model.ProfileForm
	if err := decodeForm(w, r, &form); err != nil {
		handleServiceError(w, r, h.renderer, redirectEditProfile, "profile", err)
		return
	}
	avatar, err := formFile(r, "avatar")
	if err != nil {
		flashError(w, r, h.renderer, redirectEditProfile, "Could not read the uploaded avatar")
		return
	}
	defer avatar.Close()

	user := middleware.GetUser(r)
	if _, err := h.svc.Users.UpdateProfile(r.Context(), user.ID, form, avatar.Upload()); err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			data, _, _, ok := h.editProfileData(w, r)
			if !ok {
				return
			}
			data.Form = form
			renderInvalid(w, r, h.renderer, templateEditProfile, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, redirectEditProfile, "profile", err)
		return
	}
	flashSuccess(w, r, h.renderer, redirectProfile, "Profile updated")
}

// UpdateAccount changes the signed-in user's email or password.
func (h *AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var form model.AccountForm
	if err := decodeForm(w, r, &form); err != nil {
		flashError(w, r, h.renderer, redirectEditProfile, "Invalid form data")
		return
	}
	user := middleware.GetUser(r)
	if _, err := h.svc.Users.UpdateAccount(r.Context(), user.ID, form); err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			data, u, p, ok := h.editProfileData(w, r)
			if !ok {
				return
			}
			data.Form = profileForm(u, p)
			ed := data.Data.(EditProfileData)
			ed.Account = model.AccountForm{Email: form.Email}
			data.Data = ed
			renderInvalid(w, r, h.renderer, templateEditProfile, data, errs)
			return
		}
		handleServiceError(w, r, h.renderer, redirectEditProfile, "account", err)
		return
	}
	logEvent(r, h.svc.Events, model.EventCategoryAuth, "Account credentials updated", nil)
	flashSuccess(w, r, h.renderer, redirectProfile, "Account updated")
}

// StopImpersonation restores the superuser behind an impersonation.
func (h *AuthHandler) StopImpersonation(w http.ResponseWriter, r *http.Request) {
	originalID, impersonatedID, ok, err := session.StopImpersonation(r.Context(), h.sessionManager)
	if err != nil {
		logAndInternalError(w, "failed to stop impersonation", "error", err)
		return
	}
	if !ok {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}
	src := eventSource(r)
	src.UserID = originalID
	_ = h.svc.Events.LogInfo(r.Context(), model.EventCategoryAuth, "Impersonation stopped", src,
		map[string]any{"impersonated_user_id": impersonatedID})
	slog.Info("impersonation stopped", "user_id", originalID, "impersonated_user_id", impersonatedID)
	flashSuccess(w, r, h.renderer, fmt.Sprintf("%s/%d/detail", redirectDashboardUsers, impersonatedID), "You are yourself again")
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
