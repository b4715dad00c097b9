// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/render"
	"github.com/olegiv/thinkspace/internal/service"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
)

// PublicHandler serves the public site: home, blog and webinars.
type PublicHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	svc            Services
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(renderer *render.Renderer, sm *scs.SessionManager, svc Services) *PublicHandler {
	return &PublicHandler{
		renderer:       renderer,
		sessionManager: sm,
		svc:            svc,
	}
}

// Home renders the landing page.
func (h *PublicHandler) Home(w http.ResponseWriter, r *http.Request) {
	sections, err := h.svc.Stats.Home(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to load home page", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateHome, render.TemplateData{
		Title: "Home",
		Data:  sections,
	})
}

// About renders the about page.
func (h *PublicHandler) About(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, templateAbout, render.TemplateData{
		Title:       "About",
		Breadcrumbs: []render.Breadcrumb{{Label: "About"}},
	})
}

// BlogListData holds data for the public blog list.
type BlogListData struct {
	Page       service.Page[store.BlogRow]
	Pagination Pagination
	Categories []store.Category
	Filter     store.PublicBlogFilter
}

// BlogList handles GET /blog.
func (h *PublicHandler) BlogList(w http.ResponseWriter, r *http.Request) {
	filter := store.PublicBlogFilter{
		CategorySlug: r.URL.Query().Get("category"),
		Query:        r.URL.Query().Get("q"),
	}
	page, err := h.svc.Blogs.ListPublished(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list blogs", "error", err)
		return
	}
	categories, err := h.svc.Taxonomy.ActiveCategories(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list categories", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateBlogList, render.TemplateData{
		Title:       "Blog",
		Breadcrumbs: []render.Breadcrumb{{Label: "Blog"}},
		Data: BlogListData{
			Page:       page,
			Pagination: paginate(r, page),
			Categories: categories,
			Filter:     filter,
		},
	})
}

// BlogDetailData holds data for a public blog page.
type BlogDetailData struct {
	service.BlogDetail
	Comments     []*service.CommentNode
	CommentCount int
}

// BlogDetail handles GET /blog/{slug}. Every load counts as a view.
func (h *PublicHandler) BlogDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Blogs.GetPublishedBySlug(r.Context(), chi.URLParam(r, "slug"))
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load blog", "error", err)
		return
	}
	comments, count, err := h.svc.Comments.ListForBlog(r.Context(), detail.Blog.ID, middleware.GetUserID(r))
	if err != nil {
		logAndInternalError(w, "failed to list comments", "error", err, "blog_id", detail.Blog.ID)
		return
	}
	renderPage(w, r, h.renderer, templateBlogDetail, render.TemplateData{
		Title: detail.Blog.Title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Blog", URL: RouteBlog},
			{Label: detail.Blog.Title},
		},
		Data: BlogDetailData{BlogDetail: detail, Comments: comments, CommentCount: count},
		Form: model.CommentForm{},
	})
}

// AddComment handles POST /blog/{slug}/comments.
func (h *PublicHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	back := RouteBlog + "/" + url.PathEscape(slug)

	blogID, err := h.svc.Blogs.PublishedID(r.Context(), slug)
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return
	}
	if err != nil {
		logAndInternalError(w, "failed to load blog", "error", err)
		return
	}

	var form model.CommentForm
	if err := decodeForm(w, r, &form); err != nil {
		flashError(w, r, h.renderer, back, "Invalid form data")
		return
	}

	user := middleware.GetUser(r)
	author := service.Commenter{ID: user.ID, IsStaff: user.IsStaff || user.IsSuperuser}
	visible, err := h.svc.Comments.Add(r.Context(), blogID, author, form)
	if err != nil {
		handleServiceError(w, r, h.renderer, back+"#comments", "comment", err)
		return
	}
	if visible {
		flashSuccess(w, r, h.renderer, back+"#comments", "Comment posted")
		return
	}
	flashSuccess(w, r, h.renderer, back+"#comments", "Thanks! Your comment will appear once a moderator approves it")
}

// LikeComment handles POST /blog/{slug}/comments/{id}/like. It answers
// JSON when asked for it and redirects back to the post otherwise.
func (h *PublicHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	back := RouteBlog + "/" + url.PathEscape(slug) + "#comments"
	id, err := ParseIDParam(r)
	if err != nil {
		if wantsJSON(r) {
			writeJSONError(w, http.StatusBadRequest, "invalid comment id")
			return
		}
		renderNotFound(w, r, h.renderer)
		return
	}

	liked, count, err := h.toggleLike(r, slug, id)
	if err != nil {
		if wantsJSON(r) {
			if errors.Is(err, service.ErrNotFound) {
				writeJSONError(w, http.StatusNotFound, "comment not found")
				return
			}
			slog.Error("failed to toggle like", "error", err, "comment_id", id)
			writeJSONError(w, http.StatusInternalServerError, "could not update like")
			return
		}
		handleServiceError(w, r, h.renderer, back, "comment", err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, likeResponse{Success: true, Liked: liked, Count: count})
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// toggleLike resolves slug to a public blog and toggles the like on one of
// its comments.
func (h *PublicHandler) toggleLike(r *http.Request, slug string, commentID int64) (bool, int64, error) {
	blogID, err := h.svc.Blogs.PublishedID(r.Context(), slug)
	if err != nil {
		return false, 0, err
	}
	return h.svc.Comments.ToggleLike(r.Context(), blogID, commentID, middleware.GetUserID(r))
}

// WebinarListData holds data for the public webinar list.
type WebinarListData struct {
	Page       service.Page[store.WebinarRow]
	Pagination Pagination
	Tabs       []string
	Filter     store.PublicWebinarFilter
}

// WebinarList handles GET /webinars. The topic parameter is accepted as an
// alias of q.
func (h *PublicHandler) WebinarList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.PublicWebinarFilter{
		Tab:   model.NormalizeWebinarTab(query.Get("tab")),
		Query: query.Get("q"),
	}
	if filter.Query == "" {
		filter.Query = query.Get("topic")
	}
	page, err := h.svc.Webinars.ListPublic(r.Context(), filter, ParsePageParam(r))
	if err != nil {
		logAndInternalError(w, "failed to list webinars", "error", err)
		return
	}
	renderPage(w, r, h.renderer, templateWebinarList, render.TemplateData{
		Title:       "Webinars",
		Breadcrumbs: []render.Breadcrumb{{Label: "Webinars"}},
		Data: WebinarListData{
			Page:       page,
			Pagination: paginate(r, page),
			Tabs:       []string{model.WebinarTabUpcoming, model.WebinarTabLive, model.WebinarTabPast, model.WebinarTabAll},
			Filter:     filter,
		},
	})
}

func viewerFor(r *http.Request) service.Viewer {
	user := middleware.GetUser(r)
	if user == nil {
		return service.Viewer{}
	}
	return service.Viewer{Email: user.Email, IsStaff: user.IsStaff || user.IsSuperuser}
}

// loadWebinar loads the webinar named by the slug URL parameter, writing a
// 404 or 500 response when it cannot.
func (h *PublicHandler) loadWebinar(w http.ResponseWriter, r *http.Request) (service.WebinarDetail, bool) {
	detail, err := h.svc.Webinars.Detail(r.Context(), chi.URLParam(r, "slug"), viewerFor(r))
	if errors.Is(err, service.ErrNotFound) {
		renderNotFound(w, r, h.renderer)
		return detail, false
	}
	if err != nil {
		logAndInternalError(w, "failed to load webinar", "error", err)
		return detail, false
	}
	return detail, true
}

func webinarURL(slug string) string {
	return RouteWebinar + "/" + url.PathEscape(slug)
}

// WebinarDetail handles GET /webinars/{slug}.
func (h *PublicHandler) WebinarDetail(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadWebinar(w, r)
	if !ok {
		return
	}
	renderPage(w, r, h.renderer, templateWebinarDetail, render.TemplateData{
		Title: detail.Webinar.Title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Webinars", URL: RouteWebinar},
			{Label: detail.Webinar.Title},
		},
		Data: detail,
	})
}

// RegisterData holds data for the registration form.
type RegisterData struct {
	Webinar        store.WebinarRow
	SeatsRemaining int64
	Registration   *store.WebinarRegistration
}

func (h *PublicHandler) renderRegister(w http.ResponseWriter, r *http.Request, status int, detail service.WebinarDetail, form model.RegistrationForm, errs model.ValidationErrors, flash string) {
	data := render.TemplateData{
		Title: "Register for " + detail.Webinar.Title,
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Webinars", URL: RouteWebinar},
			{Label: detail.Webinar.Title, URL: webinarURL(detail.Webinar.Slug)},
			{Label: "Register"},
		},
		Data: RegisterData{
			Webinar:        detail.Webinar,
			SeatsRemaining: detail.SeatsRemaining,
			Registration:   detail.Registration,
		},
		Form:   form,
		Errors: errs,
	}
	if flash != "" {
		data.Flash, data.FlashType = flash, "error"
	}
	if status == http.StatusUnprocessableEntity {
		renderInvalid(w, r, h.renderer, templateRegister, data, errs)
		return
	}
	renderStatus(w, r, h.renderer, status, templateRegister, data)
}

// RegisterForm handles GET /webinars/{slug}/register. Signed-in users get
// their name and email filled in.
func (h *PublicHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadWebinar(w, r)
	if !ok {
		return
	}
	if !model.AcceptsRegistrations(detail.Webinar.Status) {
		flashError(w, r, h.renderer, webinarURL(detail.Webinar.Slug), service.ErrRegistrationClosed.Error())
		return
	}
	var form model.RegistrationForm
	if user := middleware.GetUser(r); user != nil {
		form.FullName = user.FullName()
		form.Email = user.Email
	}
	h.renderRegister(w, r, http.StatusOK, detail, form, nil, "")
}

// Register handles POST /webinars/{slug}/register.
func (h *PublicHandler) Register(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var form model.RegistrationForm
	formErr := decodeForm(w, r, &form)
	detail, ok := h.loadWebinar(w, r)
	if !ok {
		return
	}
	if formErr != nil {
		msg := "Invalid form data"
		if errors.Is(formErr, service.ErrFileTooLarge) {
			msg = formErr.Error()
		}
		h.renderRegister(w, r, http.StatusUnprocessableEntity, detail, form, nil, msg)
		return
	}

	proof, err := formFile(r, "payment_proof")
	if err != nil {
		h.renderRegister(w, r, http.StatusUnprocessableEntity, detail, form, model.ValidationErrors{"payment_proof": "Could not read the uploaded file"}, "")
		return
	}
	defer proof.Close()

	reg, err := h.svc.Registrations.Register(r.Context(), slug, service.RegisterInput{
		Form:         form,
		UserID:       middleware.GetUserID(r),
		PaymentProof: proof.Upload(),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		if errs, ok := model.AsValidationErrors(err); ok {
			h.renderRegister(w, r, http.StatusUnprocessableEntity, detail, form, errs, "")
			return
		}
		switch {
		case errors.Is(err, service.ErrNotFound):
			renderNotFound(w, r, h.renderer)
		case errors.Is(err, service.ErrPaymentProofRequired):
			h.renderRegister(w, r, http.StatusUnprocessableEntity, detail, form, model.ValidationErrors{"payment_proof": err.Error()}, "")
		case isUserError(err):
			h.renderRegister(w, r, http.StatusConflict, detail, form, nil, err.Error())
		default:
			slog.Error("webinar registration failed", "error", err, "webinar", slug)
			h.renderRegister(w, r, http.StatusInternalServerError, detail, form, nil, "Something went wrong with your registration. Please try again.")
		}
		return
	}

	session.RememberRegistration(r.Context(), h.sessionManager, reg.ID)
	metadata := service.ParseClient(r.UserAgent()).Map()
	metadata["registration_id"] = reg.ID
	metadata["status"] = reg.Status
	logEvent(r, h.svc.Events, model.EventCategoryRegistration, "Webinar registration created", metadata)

	msg := "You are registered!"
	if reg.Status == model.RegistrationPending {
		msg = "Registration received. We will confirm it once your payment is verified."
	}
	flashSuccess(w, r, h.renderer, fmt.Sprintf("%s/register/confirmation/%d", webinarURL(slug), reg.ID), msg)
}

// RegistrationConfirmationData holds data for the confirmation page.
type RegistrationConfirmationData struct {
	Webinar      store.WebinarRow
	Registration store.WebinarRegistration
}

// RegistrationConfirmation handles GET /webinars/{slug}/register/confirmation/{id}.
// Only the session that registered, the registrant's account and staff may see it.
func (h *PublicHandler) RegistrationConfirmation(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	detail, ok := h.loadWebinar(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.Registrations.Get(r.Context(), id)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		logAndInternalError(w, "failed to load registration", "error", err, "registration_id", id)
		return
	}
	if err != nil || reg.WebinarID != detail.Webinar.ID || !h.canViewRegistration(r, reg) {
		renderNotFound(w, r, h.renderer)
		return
	}
	renderPage(w, r, h.renderer, templateRegistered, render.TemplateData{
		Title: "Registration confirmation",
		Breadcrumbs: []render.Breadcrumb{
			{Label: "Webinars", URL: RouteWebinar},
			{Label: detail.Webinar.Title, URL: webinarURL(detail.Webinar.Slug)},
			{Label: "Confirmation"},
		},
		Data: RegistrationConfirmationData{Webinar: detail.Webinar, Registration: reg},
	})
}

func (h *PublicHandler) canViewRegistration(r *http.Request, reg store.WebinarRegistration) bool {
	if session.OwnsRegistration(r.Context(), h.sessionManager, reg.ID) {
		return true
	}
	user := middleware.GetUser(r)
	if user == nil {
		return false
	}
	return user.IsStaff || user.IsSuperuser || (reg.UserID.Valid && reg.UserID.Int64 == user.ID) || user.Email == reg.Email
}

// Join handles GET /webinars/{slug}/join. Confirmed registrants of a live
// webinar are sent to the meeting and their attendance is recorded.
func (h *PublicHandler) Join(w http.ResponseWriter, r *http.Request) {
	detail, ok := h.loadWebinar(w, r)
	if !ok {
		return
	}
	back := webinarURL(detail.Webinar.Slug)
	reg := detail.Registration
	if reg == nil || reg.Status != model.RegistrationConfirmed {
		flashError(w, r, h.renderer, back, "Only confirmed registrants can join this webinar")
		return
	}
	if detail.Webinar.Status != model.WebinarStatusLive || detail.Webinar.MeetingUrl == "" {
		flashError(w, r, h.renderer, back, "This webinar is not live yet")
		return
	}
	if _, err := h.svc.Registrations.MarkJoined(r.Context(), reg.ID); err != nil {
		slog.Error("failed to record attendance", "error", err, "registration_id", reg.ID)
	}
	http.Redirect(w, r, detail.Webinar.MeetingUrl, http.StatusSeeOther)
}

// NotFound renders the 404 page for unmatched routes.
func (h *PublicHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderNotFound(w, r, h.renderer)
}
