package ds

import (
	"sync"
	"time"
)

// failureWindow and maxFailures define the sliding brute-force guard:
// 5 failures in 5 minutes locks the source IP for 15 minutes (spec.md
// section 4.4).
const (
	failureWindow = 5 * time.Minute
	maxFailures   = 5
	lockoutPeriod = 15 * time.Minute
)

// LockoutTracker is the in-memory per-IP brute-force guard. It is safe
// for concurrent use by multiple request-handling goroutines.
type LockoutTracker struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	lockedAt map[string]time.Time
	now      func() time.Time
}

// NewLockoutTracker creates an empty tracker.
func NewLockoutTracker() *LockoutTracker {
	return &LockoutTracker{
		failures: make(map[string][]time.Time),
		lockedAt: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Locked reports whether ip is currently within its 15-minute lockout
// period.
func (t *LockoutTracker) Locked(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	lockedAt, ok := t.lockedAt[ip]
	if !ok {
		return false
	}
	if t.now().Sub(lockedAt) >= lockoutPeriod {
		delete(t.lockedAt, ip)
		delete(t.failures, ip)
		return false
	}
	return true
}

// RecordFailure registers a failed auth attempt from ip and locks it
// out if this pushes it to maxFailures within failureWindow. Returns
// true if ip is now locked out (whether freshly or already).
func (t *LockoutTracker) RecordFailure(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lockedAt, ok := t.lockedAt[ip]; ok && t.now().Sub(lockedAt) < lockoutPeriod {
		return true
	}

	now := t.now()
	cutoff := now.Add(-failureWindow)
	kept := t.failures[ip][:0]
	for _, ts := range t.failures[ip] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.failures[ip] = kept

	if len(kept) >= maxFailures {
		t.lockedAt[ip] = now
		return true
	}
	return false
}

// RecordSuccess does NOT clear prior failures: spec.md section 8
// scenario 5 states lockout "persists 15 minutes regardless of
// outcome", so a subsequent successful auth must not reset the clock.
func (t *LockoutTracker) RecordSuccess(ip string) {}
