// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime/debug"
)

// Placeholder values used when ldflags are not set.
const (
	DevVersion = "dev"
	Unknown    = "unknown"
)

// Info contains build-time version information injected via ldflags.
type Info struct {
	Version   string // Semantic version from git tags (e.g., "v1.2.3")
	GitCommit string // Short git commit hash (e.g., "abc1234")
	BuildTime string // Build timestamp in RFC3339 format
}

// New returns the build info, filling placeholder commit and time values
// from the VCS stamp `go build` embeds when building from a checkout.
func New(ver, commit, buildTime string) Info {
	info := Info{Version: ver, GitCommit: commit, BuildTime: buildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = info.withSettings(bi.Settings)
	}
	return info
}

func (i Info) withSettings(settings []debug.BuildSetting) Info {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if isPlaceholder(i.GitCommit) && s.Value != "" {
				i.GitCommit = s.Value
				if len(i.GitCommit) > 7 {
					i.GitCommit = i.GitCommit[:7]
				}
			}
		case "vcs.time":
			if isPlaceholder(i.BuildTime) {
				i.BuildTime = s.Value
			}
		}
	}
	return i
}

func isPlaceholder(s string) bool {
	return s == "" || s == Unknown
}

// String formats the info for logs and the --version flag.
func (i Info) String() string {
	v := i.Version
	if v == "" {
		v = DevVersion
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, orUnknown(i.GitCommit), orUnknown(i.BuildTime))
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
