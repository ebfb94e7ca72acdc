// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter cache bounds.
const (
	defaultMaxLimiters  = 10000
	defaultLimiterIdle  = 5 * time.Minute
	limiterPruneEvery   = time.Minute
	publicRateLimitCode = "rate_limit_exceeded"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterCache holds one token bucket per key. Entries idle longer than
// idle are pruned, and the cache never holds more than maxEntries.
type limiterCache struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	rate       rate.Limit
	burst      int
	idle       time.Duration
	maxEntries int
	now        func() time.Time
}

func newLimiterCache(rps float64, burst int) *limiterCache {
	return &limiterCache{
		entries:    make(map[string]*limiterEntry),
		rate:       rate.Limit(rps),
		burst:      burst,
		idle:       defaultLimiterIdle,
		maxEntries: defaultMaxLimiters,
		now:        time.Now,
	}
}

// allow reports whether key may make one more request now.
func (lc *limiterCache) allow(key string) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.now()
	entry, ok := lc.entries[key]
	if !ok {
		if len(lc.entries) >= lc.maxEntries {
			lc.pruneLocked(now)
		}
		if len(lc.entries) >= lc.maxEntries {
			slog.Warn("rate limiter cache full, resetting", "entries", len(lc.entries))
			lc.entries = make(map[string]*limiterEntry)
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(lc.rate, lc.burst)}
		lc.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// prune drops idle entries and returns how many were removed.
func (lc *limiterCache) prune() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.pruneLocked(lc.now())
}

func (lc *limiterCache) pruneLocked(now time.Time) int {
	removed := 0
	for key, entry := range lc.entries {
		if now.Sub(entry.lastSeen) > lc.idle {
			delete(lc.entries, key)
			removed++
		}
	}
	return removed
}

func (lc *limiterCache) len() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.entries)
}

// janitor runs fn on a ticker until stopped.
type janitor struct {
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func startJanitor(every time.Duration, fn func()) *janitor {
	j := &janitor{stop: make(chan struct{})}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-j.stop:
				return
			}
		}
	}()
	return j
}

func (j *janitor) close() {
	j.once.Do(func() { close(j.stop) })
	j.wg.Wait()
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	cache   *limiterCache
	janitor *janitor
}

// NewRateLimiter creates a per-IP rate limiter. Call Close to stop its
// cleanup goroutine.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{cache: newLimiterCache(rps, burst)}
	rl.janitor = startJanitor(limiterPruneEvery, func() { rl.cache.prune() })
	return rl
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.janitor.close()
}

// Middleware returns the rate limiting middleware (JSON errors).
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !rl.cache.allow(ip) {
				slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				WriteAPIError(w, http.StatusTooManyRequests, publicRateLimitCode, "Rate limit exceeded. Please slow down.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of r.RemoteAddr. Forwarding headers are
// not read here; chi's RealIP middleware rewrites RemoteAddr at the edge.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
