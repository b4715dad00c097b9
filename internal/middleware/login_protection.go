// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// maxTrackedIPs bounds the per-IP limiter map between cleanups.
const maxTrackedIPs = 10000

// LoginProtectionConfig holds configuration for login protection.
type LoginProtectionConfig struct {
	IPRateLimit       float64       // login POSTs per second per IP
	IPBurst           int           // burst allowance per IP
	MaxFailedAttempts int           // failures inside AttemptWindow that lock an account
	LockoutDuration   time.Duration // first lockout; doubles with each repeat
	MaxLockout        time.Duration // ceiling for the doubled lockout
	AttemptWindow     time.Duration // failures older than this are forgotten
}

// DefaultLoginProtectionConfig returns the production settings.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
		MaxLockout:        24 * time.Hour,
		AttemptWindow:     15 * time.Minute,
	}
}

func (c LoginProtectionConfig) withDefaults() LoginProtectionConfig {
	d := DefaultLoginProtectionConfig()
	if c.IPRateLimit <= 0 {
		c.IPRateLimit = d.IPRateLimit
	}
	if c.IPBurst <= 0 {
		c.IPBurst = d.IPBurst
	}
	if c.MaxFailedAttempts <= 0 {
		c.MaxFailedAttempts = d.MaxFailedAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.MaxLockout < c.LockoutDuration {
		c.MaxLockout = max(d.MaxLockout, c.LockoutDuration)
	}
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	return c
}

// accountState is the failure history of one email address.
type accountState struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtection throttles login POSTs per IP and locks accounts after
// repeated failures. Accounts are keyed by normalised email.
type LoginProtection struct {
	cfg      LoginProtectionConfig
	ips      *limiterCache[string]
	now      func() time.Time
	mu       sync.Mutex
	accounts map[string]*accountState

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoginProtection creates a LoginProtection and starts its cleanup loop.
// Call Stop when done.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		cfg:      cfg,
		ips:      newLimiterCache[string](cfg.IPRateLimit, cfg.IPBurst),
		now:      time.Now,
		accounts: make(map[string]*accountState),
		stop:     make(chan struct{}),
	}
	go lp.cleanupLoop(10 * time.Minute)
	return lp
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Lockout returns how long the account stays locked, or zero.
func (lp *LoginProtection) Lockout(email string) time.Duration {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	st, ok := lp.accounts[accountKey(email)]
	if !ok {
		return 0
	}
	if left := st.lockedUntil.Sub(lp.now()); left > 0 {
		return left
	}
	return 0
}

// Fail records a failed login. lockedFor is non-zero when this failure
// locked the account; attemptsLeft counts failures still allowed otherwise.
func (lp *LoginProtection) Fail(email string) (lockedFor time.Duration, attemptsLeft int) {
	key := accountKey(email)
	now := lp.now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[key]
	if !ok {
		st = &accountState{windowStart: now}
		lp.accounts[key] = st
	}
	if now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
		st.failures = 0
		st.windowStart = now
	}
	st.failures++

	if st.failures < lp.cfg.MaxFailedAttempts {
		return 0, lp.cfg.MaxFailedAttempts - st.failures
	}

	lockedFor = lp.lockoutFor(st.lockouts)
	st.lockedUntil = now.Add(lockedFor)
	st.lockouts++
	st.failures = 0
	st.windowStart = now
	slog.Warn("account locked after failed logins", "email", key, "lockouts", st.lockouts, "duration", lockedFor)
	return lockedFor, 0
}

// lockoutFor doubles the base lockout for each earlier lockout, up to MaxLockout.
func (lp *LoginProtection) lockoutFor(previous int) time.Duration {
	d := lp.cfg.LockoutDuration
	for range previous {
		d *= 2
		if d >= lp.cfg.MaxLockout {
			return lp.cfg.MaxLockout
		}
	}
	return d
}

// Succeed forgets the failure history of an account.
func (lp *LoginProtection) Succeed(email string) {
	lp.mu.Lock()
	delete(lp.accounts, accountKey(email))
	lp.mu.Unlock()
}

// Stop ends the background cleanup.
func (lp *LoginProtection) Stop() {
	lp.stopOnce.Do(func() { close(lp.stop) })
}

func (lp *LoginProtection) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lp.prune()
		case <-lp.stop:
			return
		}
	}
}

// prune drops accounts that are neither locked nor inside a failure window.
func (lp *LoginProtection) prune() {
	if lp.ips.clearIfExceeds(maxTrackedIPs) {
		slog.Info("cleared login rate limiters", "limit", maxTrackedIPs)
	}
	now := lp.now()
	lp.mu.Lock()
	defer lp.mu.Unlock()
	for key, st := range lp.accounts {
		if now.After(st.lockedUntil) && now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.accounts, key)
		}
	}
}

// Middleware rate limits login POSTs per client IP.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := ClientIP(r)
			if !lp.ips.get(ip).Allow() {
				slog.Warn("login rate limit exceeded", "ip", ip)
				http.Error(w, "Too many login attempts. Please wait a moment and try again.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
