// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses and executes the HTML templates.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/thinkspace/internal/middleware"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/session"
	"github.com/olegiv/thinkspace/internal/store"
)

// Layout files. Every page is parsed together with one layout and all partials.
const (
	baseLayout      = "layouts/base.html"
	dashboardLayout = "layouts/dashboard.html"
	partialsDir     = "partials"
)

// pageDirs maps page directories to the layout they render in.
var pageDirs = map[string]string{
	"public":    baseLayout,
	"account":   baseLayout,
	"errors":    baseLayout,
	"dashboard": dashboardLayout,
}

// Renderer handles template rendering with caching.
type Renderer struct {
	mu             sync.RWMutex
	templates      map[string]*template.Template
	templatesFS    fs.FS
	sessionManager *scs.SessionManager
	isDev          bool
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	// IsDev re-parses the templates on every render.
	IsDev bool
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templatesFS:    cfg.TemplatesFS,
		sessionManager: cfg.SessionManager,
		isDev:          cfg.IsDev,
	}
	templates, err := parseTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, err
	}
	r.templates = templates
	return r, nil
}

// parseTemplates parses every page under pageDirs. Pages are named
// "dir/file" without the extension, e.g. "dashboard/blogs".
func parseTemplates(templatesFS fs.FS) (map[string]*template.Template, error) {
	partials, err := templateFiles(templatesFS, partialsDir)
	if err != nil {
		return nil, fmt.Errorf("getting partials: %w", err)
	}

	templates := make(map[string]*template.Template)
	for dir, layout := range pageDirs {
		pages, err := templateFiles(templatesFS, dir)
		if err != nil {
			return nil, fmt.Errorf("getting %s templates: %w", dir, err)
		}
		for _, page := range pages {
			name := dir + "/" + strings.TrimSuffix(path.Base(page), ".html")

			files := append([]string{layout}, partials...)
			files = append(files, page)

			tmpl, err := template.New(name).Funcs(templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", name, err)
			}
			templates[name] = tmpl
		}
	}
	return templates, nil
}

// templateFiles returns all .html files in a directory.
// A missing directory yields no files.
func templateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// Breadcrumb is one link in the dashboard trail. The last crumb has no URL.
type Breadcrumb struct {
	Label string
	URL   string
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title         string
	User          *store.User
	Impersonator  *store.User
	Impersonating bool
	Flash         string
	FlashType     string
	Breadcrumbs   []Breadcrumb
	Data          any
	// Form and Errors re-populate a form after failed validation.
	Form        any
	Errors      model.ValidationErrors
	CurrentPath string
	CurrentYear int
}

// IsStaff reports whether the signed-in user may open the dashboard.
func (d TemplateData) IsStaff() bool {
	return d.User != nil && (d.User.IsStaff || d.User.IsSuperuser)
}

// IsSuperuser reports whether the signed-in user administers users.
func (d TemplateData) IsSuperuser() bool {
	return d.User != nil && d.User.IsSuperuser
}

// Render renders a template with a 200 status.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	return r.RenderStatus(w, req, http.StatusOK, name, data)
}

// RenderStatus renders a template with the given status code.
func (r *Renderer) RenderStatus(w http.ResponseWriter, req *http.Request, status int, name string, data TemplateData) error {
	tmpl, err := r.lookup(name)
	if err != nil {
		return err
	}

	data.CurrentYear = time.Now().Year()
	data.CurrentPath = req.URL.Path
	if data.User == nil {
		data.User = middleware.GetUser(req)
	}
	if imp := middleware.GetImpersonator(req); imp != nil {
		data.Impersonator = imp
		data.Impersonating = true
	}
	if r.sessionManager != nil && data.Flash == "" {
		data.Flash, data.FlashType = session.PopFlash(req.Context(), r.sessionManager)
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("client went away while rendering", "template", name, "error", err)
	}
	return nil
}

func (r *Renderer) lookup(name string) (*template.Template, error) {
	if r.isDev && r.templatesFS != nil {
		templates, err := parseTemplates(r.templatesFS)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.templates = templates
		r.mu.Unlock()
	}

	r.mu.RLock()
	tmpl, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	return tmpl, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.templates[name]
	return ok
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager != nil {
		session.SetFlash(req.Context(), r.sessionManager, message, flashType)
	}
}
