// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/thinkspace/internal/auth"
	"github.com/olegiv/thinkspace/internal/metrics"
	"github.com/olegiv/thinkspace/internal/model"
	"github.com/olegiv/thinkspace/internal/store"
	"github.com/olegiv/thinkspace/internal/util"
	"github.com/olegiv/thinkspace/internal/webhook"
)

// CountryLookup resolves a client IP to an ISO country code.
type CountryLookup interface {
	Country(ip string) string
}

// UserService manages accounts, profiles and roles.
type UserService struct {
	db       *sql.DB
	queries  *store.Queries
	uploads  *UploadService
	geo      CountryLookup
	notifier webhook.Sender
	logger   *slog.Logger
}

// NewUserService creates a UserService. geo and notifier may be nil.
func NewUserService(db *sql.DB, uploads *UploadService, geo CountryLookup, notifier webhook.Sender, logger *slog.Logger) *UserService {
	return &UserService{
		db:       db,
		queries:  store.New(db),
		uploads:  uploads,
		geo:      geo,
		notifier: notifier,
		logger:   logger,
	}
}

// Get returns a user by id.
func (s *UserService) Get(ctx context.Context, id int64) (store.User, error) {
	u, err := s.queries.GetUserByID(ctx, id)
	return u, notFound(err)
}

// Signup creates a regular account with an empty profile. clientIP seeds
// the profile country when a GeoIP database is loaded.
func (s *UserService) Signup(ctx context.Context, form model.SignupForm, clientIP string) (store.User, error) {
	form.Email = model.NormalizeEmail(form.Email)
	if errs := model.Validate(form); errs != nil {
		return store.User{}, errs
	}
	country := ""
	if s.geo != nil {
		country = s.geo.Country(clientIP)
	}
	u, err := s.create(ctx, model.UserForm{
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Password:  form.Password,
		IsActive:  true,
	}, country)
	if err != nil {
		return store.User{}, err
	}
	s.logger.Info("user signed up", "user_id", u.ID)
	return u, nil
}

// create inserts a user and its profile in one transaction.
func (s *UserService) create(ctx context.Context, form model.UserForm, country string) (store.User, error) {
	email := model.NormalizeEmail(form.Email)
	if _, err := s.queries.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("checking email: %w", err)
	}

	username, err := s.username(ctx, form.Username, email, 0)
	if err != nil {
		return store.User{}, err
	}
	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return store.User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := nowUTC()
	var u store.User
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		u, err = q.CreateUser(ctx, store.CreateUserParams{
			Email:        email,
			Username:     username,
			FirstName:    strings.TrimSpace(form.FirstName),
			LastName:     strings.TrimSpace(form.LastName),
			PasswordHash: hash,
			IsStaff:      form.IsStaff || form.IsSuperuser,
			IsSuperuser:  form.IsSuperuser,
			IsActive:     form.IsActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}
		_, err = q.CreateProfile(ctx, store.CreateProfileParams{UserID: u.ID, Country: country, CreatedAt: now, UpdatedAt: now})
		return err
	})
	if err != nil {
		if store.IsUniqueViolation(err, "users.email") {
			return store.User{}, ErrEmailTaken
		}
		if store.IsUniqueViolation(err, "users.username") {
			return store.User{}, model.ValidationErrors{"username": "This username is already taken"}
		}
		return store.User{}, fmt.Errorf("creating user: %w", err)
	}
	notify(ctx, s.notifier, s.logger, model.EventUserCreated, webhook.UserEventData{ID: u.ID, Email: u.Email, Name: u.FullName()})
	return u, nil
}

// username returns the requested username or one derived from the email's
// local part, unique among users other than excludeID.
func (s *UserService) username(ctx context.Context, requested, email string, excludeID int64) (string, error) {
	if requested = strings.TrimSpace(requested); requested != "" {
		existing, err := s.queries.GetUserByUsername(ctx, requested)
		if err == nil && existing.ID != excludeID {
			return "", model.ValidationErrors{"username": "This username is already taken"}
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("checking username: %w", err)
		}
		return requested, nil
	}
	local, _, _ := strings.Cut(email, "@")
	return util.UniqueSlug(ctx, local, "user", func(ctx context.Context, candidate string) (bool, error) {
		existing, err := s.queries.GetUserByUsername(ctx, candidate)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return err == nil && existing.ID != excludeID, err
	})
}

// Authenticate checks an email and password. Legacy or outdated hashes are
// upgraded on success.
func (s *UserService) Authenticate(ctx context.Context, form model.LoginForm) (store.User, error) {
	form.Email = model.NormalizeEmail(form.Email)
	if errs := model.Validate(form); errs != nil {
		return store.User{}, errs
	}
	u, err := s.queries.GetUserByEmail(ctx, model.NormalizeEmail(form.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.RecordLoginFailure()
			return store.User{}, ErrInvalidCredentials
		}
		return store.User{}, fmt.Errorf("loading user: %w", err)
	}
	ok, err := auth.CheckPassword(form.Password, u.PasswordHash)
	if err != nil && !errors.Is(err, auth.ErrUnsupportedHash) {
		return store.User{}, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		metrics.RecordLoginFailure()
		return store.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return store.User{}, ErrInactiveAccount
	}

	now := nowUTC()
	if auth.NeedsRehash(u.PasswordHash) {
		if hash, err := auth.HashPassword(form.Password); err == nil {
			if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{PasswordHash: hash, UpdatedAt: now, ID: u.ID}); err != nil {
				s.logger.Warn("failed to upgrade password hash", "user_id", u.ID, "error", err)
			}
		}
	}
	if err := s.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{LastLoginAt: util.NullTime(now), ID: u.ID}); err != nil {
		s.logger.Warn("failed to record last login", "user_id", u.ID, "error", err)
	}
	u.LastLoginAt = util.NullTime(now)
	return u, nil
}

// Profile returns a user with their profile, creating an empty profile for
// accounts that predate it.
func (s *UserService) Profile(ctx context.Context, userID int64) (store.User, store.Profile, error) {
	u, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return store.User{}, store.Profile{}, notFound(err)
	}
	p, err := s.queries.GetProfileByUserID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		now := nowUTC()
		p, err = s.queries.CreateProfile(ctx, store.CreateProfileParams{UserID: userID, CreatedAt: now, UpdatedAt: now})
	}
	if err != nil {
		return store.User{}, store.Profile{}, fmt.Errorf("loading profile: %w", err)
	}
	return u, p, nil
}

// UpdateAccount changes the user's email or password after checking the
// current password.
func (s *UserService) UpdateAccount(ctx context.Context, userID int64, form model.AccountForm) (store.User, error) {
	form.Email = model.NormalizeEmail(form.Email)
	if errs := model.Validate(form); errs != nil {
		return store.User{}, errs
	}
	u, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return store.User{}, notFound(err)
	}
	if ok, _ := auth.CheckPassword(form.CurrentPassword, u.PasswordHash); !ok {
		return store.User{}, model.ValidationErrors{"current_password": "Your current password is incorrect"}
	}

	now := nowUTC()
	email := model.NormalizeEmail(form.Email)
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		if email != u.Email {
			var err error
			u, err = q.UpdateUser(ctx, store.UpdateUserParams{
				Email:       email,
				Username:    u.Username,
				FirstName:   u.FirstName,
				LastName:    u.LastName,
				IsStaff:     u.IsStaff,
				IsSuperuser: u.IsSuperuser,
				IsActive:    u.IsActive,
				UpdatedAt:   now,
				ID:          u.ID,
			})
			if err != nil {
				return err
			}
		}
		if form.NewPassword == "" {
			return nil
		}
		hash, err := auth.HashPassword(form.NewPassword)
		if err != nil {
			return err
		}
		return q.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{PasswordHash: hash, UpdatedAt: now, ID: u.ID})
	})
	if err != nil {
		if store.IsUniqueViolation(err, "users.email") {
			return store.User{}, model.ValidationErrors{"email": ErrEmailTaken.Error()}
		}
		return store.User{}, fmt.Errorf("updating account: %w", err)
	}
	return u, nil
}

// UpdateProfile saves the user's names and profile fields, replacing the
// avatar when a new one is uploaded.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, form model.ProfileForm, avatar *FileUpload) (store.Profile, error) {
	if errs := model.Validate(form); errs != nil {
		return store.Profile{}, errs
	}
	u, p, err := s.Profile(ctx, userID)
	if err != nil {
		return store.Profile{}, err
	}
	avatarPath, err := s.uploads.Replace(model.UploadAvatar, avatar, p.Avatar, form.RemoveAvatar)
	if err != nil {
		return store.Profile{}, model.ValidationErrors{"avatar": err.Error()}
	}

	dob, _ := form.BirthDate()
	now := nowUTC()
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		if _, err := q.UpdateUser(ctx, store.UpdateUserParams{
			Email:       u.Email,
			Username:    u.Username,
			FirstName:   strings.TrimSpace(form.FirstName),
			LastName:    strings.TrimSpace(form.LastName),
			IsStaff:     u.IsStaff,
			IsSuperuser: u.IsSuperuser,
			IsActive:    u.IsActive,
			UpdatedAt:   now,
			ID:          u.ID,
		}); err != nil {
			return err
		}
		var err error
		p, err = q.UpdateProfile(ctx, store.UpdateProfileParams{
			Bio:         form.Bio,
			Avatar:      avatarPath,
			Country:     strings.ToUpper(form.Country),
			Address:     form.Address,
			DateOfBirth: util.NullTime(dob),
			Gender:      form.Gender,
			Whatsapp:    strings.TrimSpace(form.Whatsapp),
			Instagram:   strings.TrimPrefix(strings.TrimSpace(form.Instagram), "@"),
			Twitter:     strings.TrimPrefix(strings.TrimSpace(form.Twitter), "@"),
			Linkedin:    form.Linkedin,
			UpdatedAt:   now,
			UserID:      u.ID,
		})
		return err
	})
	if err != nil {
		return store.Profile{}, fmt.Errorf("updating profile: %w", err)
	}
	return p, nil
}

// AdminUserList is a page of users with the overall counts.
type AdminUserList struct {
	Page[store.User]
	Stats store.UserStats
}

// ListAdmin returns a filtered page of users for the dashboard.
func (s *UserService) ListAdmin(ctx context.Context, filter store.UserFilter, page int) (AdminUserList, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	number, limit, offset := limitOffset(page, UserPageSize)
	total, err := s.queries.CountUsers(ctx, filter)
	if err != nil {
		return AdminUserList{}, fmt.Errorf("counting users: %w", err)
	}
	items, err := s.queries.ListUsers(ctx, store.ListUsersParams{UserFilter: filter, Limit: limit, Offset: offset})
	if err != nil {
		return AdminUserList{}, fmt.Errorf("listing users: %w", err)
	}
	stats, err := s.queries.GetUserStats(ctx)
	if err != nil {
		return AdminUserList{}, fmt.Errorf("loading user stats: %w", err)
	}
	return AdminUserList{
		Page:  Page[store.User]{Items: items, Number: number, PerPage: UserPageSize, Total: total},
		Stats: stats,
	}, nil
}

// Create adds a user from the dashboard. A password is required.
func (s *UserService) Create(ctx context.Context, form model.UserForm) (store.User, error) {
	form.Email = model.NormalizeEmail(form.Email)
	errs := model.Validate(form)
	if form.Password == "" {
		if errs == nil {
			errs = model.ValidationErrors{}
		}
		errs.Add("password", "This field is required")
	}
	if errs != nil {
		return store.User{}, errs
	}
	u, err := s.create(ctx, form, "")
	if errors.Is(err, ErrEmailTaken) {
		return store.User{}, model.ValidationErrors{"email": ErrEmailTaken.Error()}
	}
	return u, err
}

// Update edits a user from the dashboard. actorID may not strip their own
// superuser flag or deactivate themselves.
func (s *UserService) Update(ctx context.Context, id, actorID int64, form model.UserForm) (store.User, error) {
	form.Email = model.NormalizeEmail(form.Email)
	if errs := model.Validate(form); errs != nil {
		return store.User{}, errs
	}
	existing, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		return store.User{}, notFound(err)
	}
	if id == actorID {
		errs := model.ValidationErrors{}
		if existing.IsSuperuser && !form.IsSuperuser {
			errs.Add("is_superuser", "You cannot remove your own superuser access")
		}
		if !form.IsActive {
			errs.Add("is_active", "You cannot deactivate your own account")
		}
		if err := errs.Err(); err != nil {
			return store.User{}, err
		}
	}

	email := model.NormalizeEmail(form.Email)
	if other, err := s.queries.GetUserByEmail(ctx, email); err == nil && other.ID != id {
		return store.User{}, model.ValidationErrors{"email": ErrEmailTaken.Error()}
	}
	username := existing.Username
	if form.Username != "" && form.Username != existing.Username {
		if username, err = s.username(ctx, form.Username, email, id); err != nil {
			return store.User{}, err
		}
	}

	now := nowUTC()
	var u store.User
	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		u, err = q.UpdateUser(ctx, store.UpdateUserParams{
			Email:       email,
			Username:    username,
			FirstName:   strings.TrimSpace(form.FirstName),
			LastName:    strings.TrimSpace(form.LastName),
			IsStaff:     form.IsStaff || form.IsSuperuser,
			IsSuperuser: form.IsSuperuser,
			IsActive:    form.IsActive,
			UpdatedAt:   now,
			ID:          id,
		})
		if err != nil || form.Password == "" {
			return err
		}
		hash, err := auth.HashPassword(form.Password)
		if err != nil {
			return err
		}
		return q.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{PasswordHash: hash, UpdatedAt: now, ID: id})
	})
	if err != nil {
		if store.IsUniqueViolation(err, "users.email") {
			return store.User{}, model.ValidationErrors{"email": ErrEmailTaken.Error()}
		}
		return store.User{}, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

// UserDetail is everything the dashboard shows about one user.
type UserDetail struct {
	User          store.User
	Profile       store.Profile
	Roles         []store.Role
	Registrations []store.RegistrationRow
	BlogCount     int64
}

// Detail returns a user's profile, roles, registrations and authored blog count.
func (s *UserService) Detail(ctx context.Context, id int64) (UserDetail, error) {
	u, p, err := s.Profile(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	d := UserDetail{User: u, Profile: p}
	if d.Roles, err = s.queries.ListRolesForUser(ctx, id); err != nil {
		return UserDetail{}, fmt.Errorf("listing roles: %w", err)
	}
	if d.Registrations, err = s.queries.ListRegistrationsByEmail(ctx, u.Email); err != nil {
		return UserDetail{}, fmt.Errorf("listing registrations: %w", err)
	}
	if d.BlogCount, err = s.queries.CountBlogsByAuthor(ctx, id); err != nil {
		return UserDetail{}, fmt.Errorf("counting blogs: %w", err)
	}
	return d, nil
}

// ToggleActive flips a user's active flag and returns the new value.
func (s *UserService) ToggleActive(ctx context.Context, id, actorID int64) (bool, error) {
	u, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		return false, notFound(err)
	}
	if id == actorID {
		return u.IsActive, ErrCannotDeactivateSelf
	}
	active := !u.IsActive
	if err := s.queries.SetUserActive(ctx, store.SetUserActiveParams{IsActive: active, UpdatedAt: nowUTC(), ID: id}); err != nil {
		return u.IsActive, fmt.Errorf("updating user: %w", err)
	}
	return active, nil
}

// Delete removes a user and their avatar. Users cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id, actorID int64) error {
	if id == actorID {
		return ErrCannotDeleteSelf
	}
	u, p, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if err := s.queries.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	s.uploads.Remove(p.Avatar)
	notify(ctx, s.notifier, s.logger, model.EventUserDeleted, webhook.UserEventData{ID: u.ID, Email: u.Email, Name: u.FullName()})
	return nil
}

// CanImpersonate returns the target user when actor may act as them:
// the actor must be an active superuser, and the target an active,
// different, non-superuser account.
func (s *UserService) CanImpersonate(ctx context.Context, actorID, targetID int64) (store.User, error) {
	actor, err := s.queries.GetUserByID(ctx, actorID)
	if err != nil {
		return store.User{}, notFound(err)
	}
	target, err := s.queries.GetUserByID(ctx, targetID)
	if err != nil {
		return store.User{}, notFound(err)
	}
	if !actor.IsSuperuser || !actor.IsActive || actorID == targetID || target.IsSuperuser || !target.IsActive {
		return store.User{}, ErrCannotImpersonate
	}
	return target, nil
}

// Roles returns every role with its member count.
func (s *UserService) Roles(ctx context.Context) ([]store.RoleRow, error) {
	return s.queries.ListRolesWithCounts(ctx)
}

// UserRoles returns the roles held by a user.
func (s *UserService) UserRoles(ctx context.Context, userID int64) ([]store.Role, error) {
	return s.queries.ListRolesForUser(ctx, userID)
}

// EnsureRole returns the role with the form's name, creating it if needed.
func (s *UserService) EnsureRole(ctx context.Context, form model.RoleForm) (store.Role, bool, error) {
	if errs := model.Validate(form); errs != nil {
		return store.Role{}, false, errs
	}
	name := strings.TrimSpace(form.Name)
	r, err := s.queries.GetRoleByName(ctx, name)
	if err == nil {
		return r, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.Role{}, false, fmt.Errorf("loading role: %w", err)
	}
	r, err = s.queries.CreateRole(ctx, store.CreateRoleParams{Name: name, Description: form.Description, CreatedAt: nowUTC()})
	if err != nil {
		if store.IsUniqueViolation(err, "roles.name") {
			r, err = s.queries.GetRoleByName(ctx, name)
			return r, false, err
		}
		return store.Role{}, false, fmt.Errorf("creating role: %w", err)
	}
	return r, true, nil
}

// DeleteRole removes a role from every user and deletes it.
func (s *UserService) DeleteRole(ctx context.Context, id int64) error {
	if _, err := s.queries.GetRoleByID(ctx, id); err != nil {
		return notFound(err)
	}
	return s.queries.DeleteRole(ctx, id)
}

// AssignRole gives a user a role. Assigning a held role is a no-op.
func (s *UserService) AssignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.checkUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	return s.queries.AddUserRole(ctx, store.UserRoleParams{UserID: userID, RoleID: roleID})
}

// RemoveRole takes a role away from a user.
func (s *UserService) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.checkUserRole(ctx, userID, roleID); err != nil {
		return err
	}
	return s.queries.RemoveUserRole(ctx, store.UserRoleParams{UserID: userID, RoleID: roleID})
}

func (s *UserService) checkUserRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.queries.GetUserByID(ctx, userID); err != nil {
		return notFound(err)
	}
	if _, err := s.queries.GetRoleByID(ctx, roleID); err != nil {
		return notFound(err)
	}
	return nil
}
