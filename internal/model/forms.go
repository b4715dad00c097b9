// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// Input layouts used by HTML date and datetime-local fields.
const (
	DateTimeInputLayout = "2006-01-02T15:04"
	DateInputLayout     = "2006-01-02"
)

// BlogForm is the dashboard blog editor. Tags is a comma-separated list.
type BlogForm struct {
	Title           string `form:"title" validate:"notblank,max=200"`
	Slug            string `form:"slug" validate:"omitempty,slug,max=200"`
	CategoryID      int64  `form:"category_id" validate:"gte=0"`
	Excerpt         string `form:"excerpt" validate:"max=500"`
	Content         string `form:"content" validate:"notblank"`
	Status          string `form:"status" validate:"oneof=draft published archived"`
	IsVerified      bool   `form:"is_verified"`
	AllowComments   bool   `form:"allow_comments"`
	Tags            string `form:"tags" validate:"max=500"`
	MetaTitle       string `form:"meta_title" validate:"max=200"`
	MetaDescription string `form:"meta_description" validate:"max=300"`
	PublishAt       string `form:"publish_at" validate:"omitempty,datetime=2006-01-02T15:04"`
	RemoveCover     bool   `form:"remove_cover"`
}

// TagNames splits Tags on commas, trimming blanks and dropping
// case-insensitive duplicates.
func (f BlogForm) TagNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, part := range strings.Split(f.Tags, ",") {
		name := strings.TrimSpace(part)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	return names
}

type CategoryForm struct {
	Name        string `form:"name" validate:"notblank,max=100"`
	Slug        string `form:"slug" validate:"omitempty,slug,max=100"`
	Description string `form:"description" validate:"max=500"`
	Position    int64  `form:"position" validate:"gte=0"`
	IsActive    bool   `form:"is_active"`
}

type TagForm struct {
	Name string `form:"name" validate:"notblank,max=50"`
	Slug string `form:"slug" validate:"omitempty,slug,max=50"`
}

// WebinarForm is the dashboard webinar editor. Price is entered in major
// units and stored in cents.
type WebinarForm struct {
	Title           string  `form:"title" validate:"notblank,max=200"`
	Slug            string  `form:"slug" validate:"omitempty,slug,max=200"`
	Description     string  `form:"description" validate:"notblank"`
	StartAt         string  `form:"start_at" validate:"required,datetime=2006-01-02T15:04"`
	DurationMinutes int64   `form:"duration_minutes" validate:"gte=5,lte=480"`
	Price           float64 `form:"price" validate:"gte=0,lte=1000000"`
	Capacity        int64   `form:"capacity" validate:"gte=1"`
	Status          string  `form:"status" validate:"omitempty,oneof=upcoming live completed cancelled"`
	IsFeatured      bool    `form:"is_featured"`
	MeetingURL      string  `form:"meeting_url" validate:"omitempty,url,max=500"`
	RecordingURL    string  `form:"recording_url" validate:"omitempty,url,max=500"`
	SpeakerIDs      []int64 `form:"speaker_ids" validate:"dive,gt=0"`
	RemoveImage     bool    `form:"remove_image"`
}

// StartTime parses StartAt as UTC. Check has already rejected malformed input.
func (f WebinarForm) StartTime() time.Time {
	t, _ := time.ParseInLocation(DateTimeInputLayout, f.StartAt, time.UTC)
	return t
}

// PriceCents converts Price to cents, rounding to the nearest cent.
func (f WebinarForm) PriceCents() int64 {
	return int64(f.Price*100 + 0.5)
}

type SpeakerForm struct {
	Name     string `form:"name" validate:"notblank,max=100"`
	Slug     string `form:"slug" validate:"omitempty,slug,max=100"`
	Title    string `form:"title" validate:"max=150"`
	Bio      string `form:"bio" validate:"max=5000"`
	Website  string `form:"website" validate:"omitempty,url,max=300"`
	Twitter  string `form:"twitter" validate:"max=100"`
	Linkedin string `form:"linkedin" validate:"omitempty,url,max=300"`
	Email    string `form:"email" validate:"omitempty,email,max=254"`
	IsActive bool   `form:"is_active"`
}

// ResourceForm adds a webinar resource. HasFile is set by the handler when
// a file part was uploaded.
type ResourceForm struct {
	Title        string `form:"title" validate:"notblank,max=200"`
	Description  string `form:"description" validate:"max=1000"`
	ResourceType string `form:"resource_type" validate:"oneof=document slides video link other"`
	URL          string `form:"url" validate:"omitempty,url,max=500"`
	IsPreview    bool   `form:"is_preview"`
	HasFile      bool   `form:"-"`
}

// Check requires exactly one of an uploaded file and a URL.
func (f ResourceForm) Check(errs ValidationErrors) {
	source := ""
	if f.HasFile {
		source = "file"
	}
	if ValidateResourceSource(source, f.URL) != nil {
		errs.Add("url", "Provide either a file or a URL, not both")
	}
}

type RegistrationForm struct {
	FullName string `form:"full_name" validate:"notblank,max=150"`
	Email    string `form:"email" validate:"required,email,max=254"`
	Question string `form:"question" validate:"max=1000"`
}

type SignupForm struct {
	Email     string `form:"email" validate:"required,email,max=254"`
	FirstName string `form:"first_name" validate:"max=100"`
	LastName  string `form:"last_name" validate:"max=100"`
	Password  string `form:"password" validate:"required,min=8,max=128"`
	Password2 string `form:"password2" validate:"required,eqfield=Password"`
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// ProfileForm edits the signed-in user's own account and profile.
type ProfileForm struct {
	FirstName    string `form:"first_name" validate:"max=100"`
	LastName     string `form:"last_name" validate:"max=100"`
	Bio          string `form:"bio" validate:"max=2000"`
	Country      string `form:"country" validate:"omitempty,len=2,alpha"`
	Address      string `form:"address" validate:"max=300"`
	DateOfBirth  string `form:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender       string `form:"gender" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	Whatsapp     string `form:"whatsapp" validate:"omitempty,whatsapp"`
	Instagram    string `form:"instagram" validate:"max=100"`
	Twitter      string `form:"twitter" validate:"max=100"`
	Linkedin     string `form:"linkedin" validate:"omitempty,url,max=300"`
	RemoveAvatar bool   `form:"remove_avatar"`
}

// Check rejects birth dates in the future.
func (f ProfileForm) Check(errs ValidationErrors) {
	if dob, ok := f.BirthDate(); ok && dob.After(time.Now().UTC()) {
		errs.Add("date_of_birth", "Date of birth cannot be in the future")
	}
}

// BirthDate parses DateOfBirth; ok is false when it is empty or malformed.
func (f ProfileForm) BirthDate() (time.Time, bool) {
	if f.DateOfBirth == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateInputLayout, f.DateOfBirth, time.UTC)
	return t, err == nil
}

// UserForm is the superuser's user editor. Password is optional on edit.
type UserForm struct {
	Email       string `form:"email" validate:"required,email,max=254"`
	Username    string `form:"username" validate:"omitempty,max=150"`
	FirstName   string `form:"first_name" validate:"max=100"`
	LastName    string `form:"last_name" validate:"max=100"`
	Password    string `form:"password" validate:"omitempty,min=8,max=128"`
	IsStaff     bool   `form:"is_staff"`
	IsSuperuser bool   `form:"is_superuser"`
	IsActive    bool   `form:"is_active"`
}

type CommentForm struct {
	Content  string `form:"content" validate:"notblank,max=2000"`
	ParentID int64  `form:"parent_id" validate:"gte=0"`
}

type RoleForm struct {
	Name        string `form:"name" validate:"notblank,max=80"`
	Description string `form:"description" validate:"max=300"`
}

// AccountForm changes the signed-in user's email or password. The current
// password is always required.
type AccountForm struct {
	Email           string `form:"email" validate:"required,email,max=254"`
	CurrentPassword string `form:"current_password" validate:"required"`
	NewPassword     string `form:"new_password" validate:"omitempty,min=8,max=128"`
	NewPassword2    string `form:"new_password2" validate:"eqfield=NewPassword"`
}
