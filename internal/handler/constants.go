// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"

	RouteLogin   = "/login"
	RouteLogout  = "/logout"
	RouteSignup  = "/signup"
	RouteProfile = "/profile"
	RouteBlog    = "/blog"
	RouteWebinar = "/webinars"

	RouteDashboard  = "/dashboard"
	RouteBlogs      = "/blogs"
	RouteCategories = "/categories"
	RouteTags       = "/tags"
	RouteComments   = "/comments"
	RouteWebinars   = "/webinars"
	RouteSpeakers   = "/speakers"
	RouteUsers      = "/users"
	RouteRoles      = "/roles"
	RouteExport     = "/export"
)

const (
	redirectProfile     = RouteProfile
	redirectEditProfile = RouteProfile + "/edit"

	redirectDashboard           = RouteDashboard
	redirectDashboardBlogs      = RouteDashboard + RouteBlogs
	redirectDashboardCategories = RouteDashboard + RouteCategories
	redirectDashboardTags       = RouteDashboard + RouteTags
	redirectDashboardComments   = RouteDashboard + RouteComments
	redirectDashboardWebinars   = RouteDashboard + RouteWebinars
	redirectDashboardSpeakers   = RouteDashboard + RouteSpeakers
	redirectDashboardUsers      = RouteDashboard + RouteUsers
	redirectDashboardRoles      = RouteDashboard + RouteRoles
)

// Page templates.
const (
	templateHome          = "public/home"
	templateAbout         = "public/about"
	templateBlogList      = "public/blog_list"
	templateBlogDetail    = "public/blog_detail"
	templateWebinarList   = "public/webinar_list"
	templateWebinarDetail = "public/webinar_detail"
	templateRegister      = "public/register"
	templateRegistered    = "public/registration_confirmation"

	templateLogin       = "account/login"
	templateSignup      = "account/signup"
	templateProfile     = "account/profile"
	templateEditProfile = "account/edit_profile"

	templateNotFound = "errors/404"

	templateDashboard      = "dashboard/index"
	templateSearch         = "dashboard/search"
	templateExport         = "dashboard/export"
	templateActivity       = "dashboard/activity"
	templateSystemStatus   = "dashboard/system_status"
	templateBlogs          = "dashboard/blogs"
	templateBlogForm       = "dashboard/blog_form"
	templateCategories     = "dashboard/categories"
	templateCategoryForm   = "dashboard/category_form"
	templateTags           = "dashboard/tags"
	templateTagForm        = "dashboard/tag_form"
	templateComments       = "dashboard/comments"
	templateWebinars       = "dashboard/webinars"
	templateWebinarForm    = "dashboard/webinar_form"
	templateWebinarAdmin   = "dashboard/webinar_detail"
	templateRegistrations  = "dashboard/registrations"
	templateResources      = "dashboard/resources"
	templateSpeakers       = "dashboard/speakers"
	templateSpeakerForm    = "dashboard/speaker_form"
	templateUsers          = "dashboard/users"
	templateUserForm       = "dashboard/user_form"
	templateUserDetail     = "dashboard/user_detail"
	templateRoles          = "dashboard/roles"
)
