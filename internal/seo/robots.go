// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package seo

import (
	"strings"
)

// PrivatePaths are never meant for crawlers.
var PrivatePaths = []string{
	"/dashboard",
	"/profile",
	"/login",
	"/signup",
	"/logout",
	"/impersonate",
}

// RobotsConfig holds configuration for robots.txt generation.
type RobotsConfig struct {
	SiteURL       string   // Base URL for the sitemap reference
	DisallowAll   bool     // Block all crawlers outside production
	DisallowPaths []string // Extra paths on top of PrivatePaths
}

// BuildRobots renders robots.txt content.
func BuildRobots(config RobotsConfig) string {
	var sb strings.Builder

	sb.WriteString("User-agent: *\n")

	if config.DisallowAll {
		sb.WriteString("Disallow: /\n")
		return sb.String()
	}

	paths := append(append([]string{}, PrivatePaths...), config.DisallowPaths...)
	for _, path := range paths {
		sb.WriteString("Disallow: ")
		sb.WriteString(path)
		sb.WriteString("\n")
	}
	sb.WriteString("Allow: /\n")

	if config.SiteURL != "" {
		sb.WriteString("\nSitemap: ")
		sb.WriteString(strings.TrimSuffix(config.SiteURL, "/"))
		sb.WriteString("/sitemap.xml\n")
	}

	return sb.String()
}
