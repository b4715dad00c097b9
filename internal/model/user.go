// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model holds domain constants, the rules that do not need the
// database, and the validated form types shared by services and handlers.
package model

import "strings"

// Access levels derived from the user flags. Superuser implies staff.
const (
	RoleRegular   = "regular"
	RoleStaff     = "staff"
	RoleSuperuser = "superuser"
)

// RoleFor returns the access level of a user with the given flags.
func RoleFor(isStaff, isSuperuser bool) string {
	switch {
	case isSuperuser:
		return RoleSuperuser
	case isStaff:
		return RoleStaff
	default:
		return RoleRegular
	}
}

// Profile gender values.
const (
	GenderMale         = "male"
	GenderFemale       = "female"
	GenderOther        = "other"
	GenderPreferNotSay = "prefer_not_to_say"
)

// WhatsApp numbers hold between 7 and 15 digits.
const (
	MaxWhatsAppDigits = 15
	minWhatsAppDigits = 7

	whatsAppSeparators = " -()"
)

// Genders returns the selectable gender values in display order.
func Genders() []string {
	return []string{GenderMale, GenderFemale, GenderOther, GenderPreferNotSay}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidWhatsApp reports whether s is a phone number of 7 to 15 digits,
// optionally prefixed by "+". Spaces, dashes and parentheses are ignored.
func ValidWhatsApp(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(whatsAppSeparators, r):
		default:
			return false
		}
	}
	return digits >= minWhatsAppDigits && digits <= MaxWhatsAppDigits
}
