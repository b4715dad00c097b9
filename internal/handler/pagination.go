// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/thinkspace/internal/service"
)

// Pagination holds pagination data for list templates.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int64
	PerPage     int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	Pages       []PaginationPage
	BaseURL     string
	QueryString string
}

// PaginationPage represents a single page link.
type PaginationPage struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildPagination creates pagination data for list templates.
// baseURL is the path without query string (e.g., "/dashboard/blogs")
// queryParams are the current query parameters to preserve (e.g., filters)
func BuildPagination(currentPage, totalItems, perPage int, baseURL string, queryParams url.Values) Pagination {
	totalPages := 1
	if perPage > 0 && totalItems > perPage {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	currentPage = min(max(currentPage, 1), totalPages)

	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  int64(totalItems),
		PerPage:     perPage,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
		PrevPage:    currentPage - 1,
		NextPage:    currentPage + 1,
		BaseURL:     baseURL,
	}

	// Build query string without page parameter
	if queryParams != nil {
		params := make(url.Values)
		for k, v := range queryParams {
			if k != "page" && len(v) > 0 && v[0] != "" {
				params[k] = v
			}
		}
		if len(params) > 0 {
			p.QueryString = params.Encode()
		}
	}

	// Show at most 5 pages around the current one, with ellipses
	start := currentPage - 2
	end := currentPage + 2
	if start < 1 {
		start = 1
		end = 5
	}
	if end > totalPages {
		end = totalPages
		start = max(end-4, 1)
	}

	if start > 1 {
		p.Pages = append(p.Pages, PaginationPage{Number: 1, URL: p.PageURL(1)})
		if start > 2 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, PaginationPage{Number: i, URL: p.PageURL(i), IsCurrent: i == currentPage})
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PaginationPage{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, PaginationPage{Number: totalPages, URL: p.PageURL(totalPages)})
	}

	return p
}

// paginate builds the pagination for a service page using the request's
// path and query.
func paginate[T any](r *http.Request, page service.Page[T]) Pagination {
	return BuildPagination(page.Number, int(page.Total), page.PerPage, r.URL.Path, r.URL.Query())
}

// PageURL returns the URL for a specific page number.
func (p Pagination) PageURL(page int) string {
	if p.QueryString != "" {
		return fmt.Sprintf("%s?%s&page=%d", p.BaseURL, p.QueryString, page)
	}
	return fmt.Sprintf("%s?page=%d", p.BaseURL, page)
}

// PrevURL returns the URL for the previous page.
func (p Pagination) PrevURL() string {
	return p.PageURL(p.PrevPage)
}

// NextURL returns the URL for the next page.
func (p Pagination) NextURL() string {
	return p.PageURL(p.NextPage)
}

// ShouldShow returns true if pagination should be displayed (more than 1 page).
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// PageRange returns a description of the current page range.
func (p Pagination) PageRange() string {
	if p.TotalItems == 0 {
		return "0"
	}
	start := (p.CurrentPage-1)*p.PerPage + 1
	end := min(p.CurrentPage*p.PerPage, int(p.TotalItems))
	return fmt.Sprintf("%d-%d", start, end)
}

// ParsePageParam parses the "page" query parameter, defaulting to 1 when
// it is missing or not a positive integer.
func ParsePageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// ParseQueryInt64 parses a named query parameter as a positive int64.
// Returns 0 if the parameter is missing, empty, invalid, or not positive.
func ParseQueryInt64(r *http.Request, name string) int64 {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil || val <= 0 {
		return 0
	}
	return val
}

var errMissingParam = errors.New("missing URL parameter")

// ParseIDParam parses the "id" URL parameter.
func ParseIDParam(r *http.Request) (int64, error) {
	return ParseURLParamInt64(r, "id")
}

// ParseURLParamInt64 parses a named chi URL parameter as int64.
func ParseURLParamInt64(r *http.Request, name string) (int64, error) {
	str := chi.URLParam(r, name)
	if str == "" {
		return 0, errMissingParam
	}
	return strconv.ParseInt(str, 10, 64)
}
