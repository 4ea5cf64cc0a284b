package auth

import (
	"time"

	"github.com/drivehub/auth-service/internal/repository"
)

// Brute force protection defaults
const (
	DefaultMaxLoginAttempts = 5
	DefaultLockoutDuration  = time.Hour
)

// LockoutPolicy decides whether a user may attempt authentication. An account
// is Locked while locked_until lies in the future; once the wall clock passes
// it the account is evaluated as Active again. Release is lazy: the stored
// lock row is cleared on the next attempt, not by a background timer.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// NewLockoutPolicy creates a LockoutPolicy, substituting defaults for
// non-positive values.
func NewLockoutPolicy(maxAttempts int, lockDuration time.Duration) LockoutPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if lockDuration <= 0 {
		lockDuration = DefaultLockoutDuration
	}
	return LockoutPolicy{MaxAttempts: maxAttempts, LockDuration: lockDuration}
}

// Locked reports whether the user is inside an open lockout window at the
// given instant, and if so how long remains.
func (p LockoutPolicy) Locked(user *repository.User, now time.Time) (bool, time.Duration) {
	if user.LockedUntil == nil {
		return false, 0
	}
	if now.Before(*user.LockedUntil) {
		return true, user.LockedUntil.Sub(now)
	}
	// Window elapsed: treat as Active. The caller clears the counter so the
	// next attempt is evaluated against a fresh budget.
	return false, 0
}

// LockUntil returns the end of the lockout window for a lock tripped at now
func (p LockoutPolicy) LockUntil(now time.Time) time.Time {
	return now.Add(p.LockDuration)
}
