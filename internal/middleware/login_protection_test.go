// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLoginProtection(t *testing.T, cfg LoginProtectionConfig) (*LoginProtection, *fakeClock) {
	t.Helper()
	lp := NewLoginProtection(cfg)
	t.Cleanup(lp.Close)
	clock := newFakeClock()
	lp.now = clock.now
	lp.ips.now = clock.now
	return lp, clock
}

func TestLoginProtectionConfigDefaults(t *testing.T) {
	got := LoginProtectionConfig{MaxFailedAttempts: 3}.withDefaults()
	want := DefaultLoginProtectionConfig()
	want.MaxFailedAttempts = 3
	if got != want {
		t.Errorf("withDefaults() = %+v, want %+v", got, want)
	}
}

func TestLoginProtectionLocksAfterMaxFailures(t *testing.T) {
	lp, clock := newTestLoginProtection(t, LoginProtectionConfig{
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
	})
	const email = "editor@aitasol.example"

	for i := range 2 {
		if locked, _ := lp.Fail(email); locked {
			t.Fatalf("failure %d locked the account early", i+1)
		}
	}
	if got := lp.Remaining(email); got != 1 {
		t.Errorf("Remaining() = %d, want 1", got)
	}

	locked, d := lp.Fail(email)
	if !locked || d != time.Minute {
		t.Fatalf("Fail() = (%v, %v), want (true, 1m)", locked, d)
	}
	if locked, left := lp.Locked(email); !locked || left != time.Minute {
		t.Errorf("Locked() = (%v, %v), want (true, 1m)", locked, left)
	}

	clock.advance(time.Minute + time.Second)
	if locked, _ := lp.Locked(email); locked {
		t.Error("lockout should have expired")
	}
	if got := lp.Remaining(email); got != 3 {
		t.Errorf("Remaining() after lockout = %d, want 3", got)
	}
}

func TestLoginProtectionNormalizesEmail(t *testing.T) {
	lp, _ := newTestLoginProtection(t, LoginProtectionConfig{MaxFailedAttempts: 2})

	lp.Fail("Editor@Aitasol.example")
	locked, _ := lp.Fail("  editor@aitasol.EXAMPLE ")
	if !locked {
		t.Fatal("case and spacing variants should share one failure budget")
	}
	if locked, _ := lp.Locked("editor@aitasol.example"); !locked {
		t.Error("normalized email should be locked")
	}

	lp.Succeed("EDITOR@aitasol.example")
	if locked, _ := lp.Locked("editor@aitasol.example"); locked {
		t.Error("Succeed() should clear the normalized account")
	}
}

func TestLoginProtectionBackoffDoubles(t *testing.T) {
	lp, clock := newTestLoginProtection(t, LoginProtectionConfig{
		MaxFailedAttempts: 1,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Hour,
	})
	const email = "admin@aitasol.example"

	for _, want := range []time.Duration{time.Minute, 2 * time.Minute, 4 * time.Minute} {
		locked, d := lp.Fail(email)
		if !locked || d != want {
			t.Fatalf("Fail() = (%v, %v), want (true, %v)", locked, d, want)
		}
		clock.advance(d + time.Second)
	}
}

func TestLockoutForIsCapped(t *testing.T) {
	if got := lockoutFor(time.Hour, 10); got != maxLockout {
		t.Errorf("lockoutFor() = %v, want %v", got, maxLockout)
	}
	if got := lockoutFor(time.Minute, 0); got != time.Minute {
		t.Errorf("lockoutFor() = %v, want 1m", got)
	}
}

func TestLoginProtectionWindowResets(t *testing.T) {
	lp, clock := newTestLoginProtection(t, LoginProtectionConfig{
		MaxFailedAttempts: 2,
		AttemptWindow:     time.Minute,
	})
	const email = "editor@aitasol.example"

	lp.Fail(email)
	clock.advance(2 * time.Minute)
	if locked, _ := lp.Fail(email); locked {
		t.Error("a failure outside the window should start a new count")
	}
}

func TestLoginProtectionPrune(t *testing.T) {
	lp, clock := newTestLoginProtection(t, LoginProtectionConfig{
		MaxFailedAttempts: 5,
		AttemptWindow:     time.Minute,
	})
	lp.Fail("a@aitasol.example")
	lp.ips.allow("203.0.113.7")

	clock.advance(defaultLimiterIdle + time.Second)
	lp.prune()

	if n := len(lp.accounts); n != 0 {
		t.Errorf("accounts = %d, want 0", n)
	}
	if n := lp.ips.len(); n != 0 {
		t.Errorf("ip limiters = %d, want 0", n)
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	lp, _ := newTestLoginProtection(t, LoginProtectionConfig{IPRateLimit: 0.01, IPBurst: 1})
	h := lp.Middleware()(okHandler())

	send := func(method string) int {
		req := httptest.NewRequest(method, "/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send(http.MethodPost); code != http.StatusOK {
		t.Errorf("first POST status = %d, want 200", code)
	}
	if code := send(http.MethodPost); code != http.StatusTooManyRequests {
		t.Errorf("second POST status = %d, want 429", code)
	}
	if code := send(http.MethodGet); code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", code)
	}
}
