// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/thinkspace/internal/util"
)

// ValidationErrors maps form field names to messages shown next to the field.
type ValidationErrors map[string]string

// Error implements error.
func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field unless the field already has a message.
func (v ValidationErrors) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Has reports whether field has a message.
func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Err returns v as an error, or nil when it is empty.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidationErrors extracts ValidationErrors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator, configured on first use.
// Field names in messages come from the `form` tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return util.IsValidSlug(fl.Field().String())
		})
		_ = validate.RegisterValidation("whatsapp", func(fl validator.FieldLevel) bool {
			return ValidWhatsApp(fl.Field().String())
		})
	})
	return validate
}

// Validate checks v's struct tags and returns field messages, or nil when valid.
// Forms implementing Checker are then checked for cross-field rules.
func Validate(v any) ValidationErrors {
	errs := ValidationErrors{}

	var fieldErrs validator.ValidationErrors
	if err := Validator().Struct(v); err != nil {
		if !errors.As(err, &fieldErrs) {
			errs.Add("_form", err.Error())
			return errs
		}
		for _, fe := range fieldErrs {
			errs.Add(fe.Field(), validationMessage(fe))
		}
	}

	if c, ok := v.(Checker); ok {
		c.Check(errs)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Checker is implemented by forms with rules that struct tags cannot express.
type Checker interface {
	Check(errs ValidationErrors)
}

var validationMessages = map[string]string{
	"required": "This field is required",
	"notblank": "This field is required",
	"email":    "Enter a valid email address",
	"url":      "Enter a valid URL",
	"slug":     "Use lowercase letters, numbers and hyphens",
	"whatsapp": "Enter a phone number with at most 15 digits",
	"gte":      "Must be at least {param}",
	"lte":      "Must be at most {param}",
	"oneof":    "Choose one of: {param}",
	"eqfield":  "Passwords do not match",
	"datetime": "Enter a valid date",
	"len":      "Must be exactly {param} characters",
	"alphanum": "Use letters and numbers only",
}

func validationMessage(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()

	if tag == "min" || tag == "max" {
		suffix := ""
		if fe.Kind() == reflect.String {
			suffix = " characters"
		}
		if tag == "min" {
			return "Must be at least " + param + suffix
		}
		return "Must be at most " + param + suffix
	}

	if msg, ok := validationMessages[tag]; ok {
		return strings.ReplaceAll(msg, "{param}", param)
	}
	return "Invalid value"
}
