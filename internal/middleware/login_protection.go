// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/auth"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
)

// maxLockout caps the doubling lockout.
const maxLockout = 24 * time.Hour

// LoginProtectionConfig holds configuration for sign-in protection.
type LoginProtectionConfig struct {
	// IPRateLimit is sign-in requests per second per IP (default: 0.5)
	IPRateLimit float64
	// IPBurst is the burst size for the IP limiter (default: 5)
	IPBurst int
	// MaxFailedAttempts before an account is locked (default: 5)
	MaxFailedAttempts int
	// LockoutDuration is the first lockout; each further lockout doubles it (default: 15 minutes)
	LockoutDuration time.Duration
	// AttemptWindow is how long failures are counted together (default: 15 minutes)
	AttemptWindow time.Duration
}

// DefaultLoginProtectionConfig returns sensible defaults.
func DefaultLoginProtectionConfig() LoginProtectionConfig {
	return LoginProtectionConfig{
		IPRateLimit:       0.5,
		IPBurst:           5,
		MaxFailedAttempts: 5,
		LockoutDuration:   15 * time.Minute,
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
	if c.AttemptWindow <= 0 {
		c.AttemptWindow = d.AttemptWindow
	}
	return c
}

// accountState is the failure history of one sign-in email.
type accountState struct {
	failures    int
	windowStart time.Time
	lockedUntil time.Time
	lockouts    int
}

// LoginProtection throttles POST /login per IP and locks an account after
// repeated wrong passwords. Accounts are keyed by auth.NormalizeEmail, so
// case and surrounding spaces do not open a fresh budget.
type LoginProtection struct {
	cfg     LoginProtectionConfig
	ips     *limiterCache
	now     func() time.Time
	janitor *janitor

	mu       sync.Mutex
	accounts map[string]*accountState
}

// NewLoginProtection creates login protection. Call Close to stop its
// cleanup goroutine.
func NewLoginProtection(cfg LoginProtectionConfig) *LoginProtection {
	cfg = cfg.withDefaults()
	lp := &LoginProtection{
		cfg:      cfg,
		ips:      newLimiterCache(cfg.IPRateLimit, cfg.IPBurst),
		now:      time.Now,
		accounts: make(map[string]*accountState),
	}
	lp.janitor = startJanitor(limiterPruneEvery, lp.prune)
	return lp
}

// Close stops the cleanup goroutine.
func (lp *LoginProtection) Close() {
	lp.janitor.close()
}

// Locked reports whether email is locked out and for how much longer.
func (lp *LoginProtection) Locked(email string) (bool, time.Duration) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[auth.NormalizeEmail(email)]
	if !ok {
		return false, 0
	}
	if left := st.lockedUntil.Sub(lp.now()); left > 0 {
		return true, left
	}
	return false, 0
}

// Fail records a wrong password for email. When this failure locks the
// account it returns true and the lockout length.
func (lp *LoginProtection) Fail(email string) (bool, time.Duration) {
	key := auth.NormalizeEmail(email)
	now := lp.now()

	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[key]
	if !ok {
		st = &accountState{}
		lp.accounts[key] = st
	}
	if st.failures == 0 || now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
		st.failures = 0
		st.windowStart = now
	}
	st.failures++

	if st.failures < lp.cfg.MaxFailedAttempts {
		slog.Debug("failed sign-in recorded", "category", model.EventCategoryAuth, "email", key, "count", st.failures)
		return false, 0
	}

	d := lockoutFor(lp.cfg.LockoutDuration, st.lockouts)
	st.lockedUntil = now.Add(d)
	st.lockouts++
	st.failures = 0
	return true, d
}

// Succeed clears the failure history of email.
func (lp *LoginProtection) Succeed(email string) {
	lp.mu.Lock()
	delete(lp.accounts, auth.NormalizeEmail(email))
	lp.mu.Unlock()
}

// Remaining returns how many wrong passwords email has left before lockout.
func (lp *LoginProtection) Remaining(email string) int {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	st, ok := lp.accounts[auth.NormalizeEmail(email)]
	if !ok || st.failures == 0 || lp.now().Sub(st.windowStart) > lp.cfg.AttemptWindow {
		return lp.cfg.MaxFailedAttempts
	}
	return max(lp.cfg.MaxFailedAttempts-st.failures, 0)
}

// Middleware throttles POST requests per client IP. Other methods pass.
func (lp *LoginProtection) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			ip := ClientIP(r)
			if !lp.ips.allow(ip) {
				slog.Warn("login rate limit exceeded", "category", model.EventCategoryAuth, "ip", ip)
				WriteAPIError(w, http.StatusTooManyRequests, publicRateLimitCode,
					"Too many login attempts. Please wait a moment and try again.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// prune drops idle IP limiters and accounts whose lockout and window
// have both passed.
func (lp *LoginProtection) prune() {
	lp.ips.prune()

	now := lp.now()
	lp.mu.Lock()
	defer lp.mu.Unlock()
	for key, st := range lp.accounts {
		if now.After(st.lockedUntil) && now.Sub(st.windowStart) > lp.cfg.AttemptWindow {
			delete(lp.accounts, key)
		}
	}
}

// lockoutFor doubles base once per earlier lockout, capped at maxLockout.
func lockoutFor(base time.Duration, lockouts int) time.Duration {
	d := base
	for range lockouts {
		d *= 2
		if d >= maxLockout {
			return maxLockout
		}
	}
	return d
}
