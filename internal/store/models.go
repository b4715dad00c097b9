// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	PasswordHash string       `json:"-"`
	IsStaff      bool         `json:"is_staff"`
	IsSuperuser  bool         `json:"is_superuser"`
	IsActive     bool         `json:"is_active"`
	LastLoginAt  sql.NullTime `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FullName returns "First Last", falling back to the username.
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

type Profile struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	Bio         string       `json:"bio"`
	Avatar      string       `json:"avatar"`
	Country     string       `json:"country"`
	Address     string       `json:"address"`
	DateOfBirth sql.NullTime `json:"-"`
	Gender      string       `json:"gender"`
	Whatsapp    string       `json:"whatsapp"`
	Instagram   string       `json:"instagram"`
	Twitter     string       `json:"twitter"`
	Linkedin    string       `json:"linkedin"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Position    int64     `json:"position"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type Blog struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	AuthorID        sql.NullInt64 `json:"author_id"`
	CategoryID      sql.NullInt64 `json:"category_id"`
	Excerpt         string        `json:"excerpt"`
	Content         string        `json:"content"`
	CoverImage      string        `json:"cover_image"`
	Status          string        `json:"status"`
	IsVerified      bool          `json:"is_verified"`
	Views           int64         `json:"views"`
	AllowComments   bool          `json:"allow_comments"`
	MetaTitle       string        `json:"meta_title"`
	MetaDescription string        `json:"meta_description"`
	PublishAt       sql.NullTime  `json:"publish_at"`
	PublishedAt     sql.NullTime  `json:"published_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// BlogRow is a blog joined with its author and category display fields.
type BlogRow struct {
	Blog
	AuthorName   string `json:"author_name"`
	CategoryName string `json:"category_name"`
	CategorySlug string `json:"category_slug"`
}

type Comment struct {
	ID         int64         `json:"id"`
	BlogID     int64         `json:"blog_id"`
	UserID     int64         `json:"user_id"`
	ParentID   sql.NullInt64 `json:"-"`
	Content    string        `json:"content"`
	IsApproved bool          `json:"is_approved"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// CommentRow is a comment with its author name, like count and blog title.
type CommentRow struct {
	Comment
	AuthorName string `json:"author_name"`
	BlogTitle  string `json:"blog_title"`
	BlogSlug   string `json:"blog_slug"`
	LikeCount  int64  `json:"like_count"`
}

type Speaker struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Bio       string    `json:"bio"`
	Photo     string    `json:"photo"`
	Website   string    `json:"website"`
	Twitter   string    `json:"twitter"`
	Linkedin  string    `json:"linkedin"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SpeakerRow is a speaker with the number of webinars it is assigned to.
type SpeakerRow struct {
	Speaker
	WebinarCount int64 `json:"webinar_count"`
}

type Webinar struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description"`
	FeaturedImage   string        `json:"featured_image"`
	StartAt         time.Time     `json:"start_at"`
	DurationMinutes int64         `json:"duration_minutes"`
	Status          string        `json:"status"`
	PriceCents      int64         `json:"price_cents"`
	Capacity        int64         `json:"capacity"`
	IsFeatured      bool          `json:"is_featured"`
	HostID          sql.NullInt64 `json:"host_id"`
	MeetingUrl      string        `json:"meeting_url"`
	RecordingUrl    string        `json:"recording_url"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// EndAt returns the scheduled end of the webinar.
func (w Webinar) EndAt() time.Time {
	return w.StartAt.Add(time.Duration(w.DurationMinutes) * time.Minute)
}

// IsFree reports whether the webinar has no price.
func (w Webinar) IsFree() bool {
	return w.PriceCents == 0
}

// WebinarRow is a webinar with its confirmed registration count.
type WebinarRow struct {
	Webinar
	ConfirmedCount int64 `json:"confirmed_count"`
}

// SeatsRemaining returns capacity minus confirmed registrations, floored at zero.
func (w WebinarRow) SeatsRemaining() int64 {
	if remaining := w.Capacity - w.ConfirmedCount; remaining > 0 {
		return remaining
	}
	return 0
}

type WebinarResource struct {
	ID           int64     `json:"id"`
	WebinarID    int64     `json:"webinar_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ResourceType string    `json:"resource_type"`
	FilePath     string    `json:"file_path"`
	Url          string    `json:"url"`
	IsPreview    bool      `json:"is_preview"`
	Position     int64     `json:"position"`
	CreatedAt    time.Time `json:"created_at"`
}

type WebinarRegistration struct {
	ID               int64         `json:"id"`
	WebinarID        int64         `json:"webinar_id"`
	UserID           sql.NullInt64 `json:"-"`
	FullName         string        `json:"full_name"`
	Email            string        `json:"email"`
	Status           string        `json:"status"`
	Question         string        `json:"question"`
	PaymentReference string        `json:"payment_reference"`
	PaymentProof     string        `json:"payment_proof"`
	UserAgent        string        `json:"user_agent"`
	JoinedAt         sql.NullTime  `json:"-"`
	LeftAt           sql.NullTime  `json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// RegistrationRow is a registration joined with its webinar's title, slug and start.
type RegistrationRow struct {
	WebinarRegistration
	WebinarTitle   string    `json:"webinar_title"`
	WebinarSlug    string    `json:"webinar_slug"`
	WebinarStartAt time.Time `json:"webinar_start_at"`
	WebinarStatus  string    `json:"webinar_status"`
}

type Event struct {
	ID         int64         `json:"id"`
	Level      string        `json:"level"`
	Category   string        `json:"category"`
	Message    string        `json:"message"`
	UserID     sql.NullInt64 `json:"-"`
	IpAddress  string        `json:"ip_address"`
	RequestUrl string        `json:"request_url"`
	Metadata   string        `json:"metadata"`
	CreatedAt  time.Time     `json:"created_at"`
}

// EventRow is an event with the acting user's email, if any.
type EventRow struct {
	Event
	UserEmail string `json:"user_email"`
}

type WebhookDelivery struct {
	ID           int64         `json:"id"`
	Endpoint     string        `json:"endpoint"`
	Event        string        `json:"event"`
	Payload      string        `json:"payload"`
	Status       string        `json:"status"`
	Attempts     int64         `json:"attempts"`
	ResponseCode sql.NullInt64 `json:"-"`
	ErrorMessage string        `json:"error_message"`
	NextRetryAt  sql.NullTime  `json:"-"`
	DeliveredAt  sql.NullTime  `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
