package auth

import (
	"testing"
	"time"

	"github.com/drivehub/auth-service/internal/repository"
)

func TestLockoutPolicy_Defaults(t *testing.T) {
	p := NewLockoutPolicy(0, 0)
	if p.MaxAttempts != DefaultMaxLoginAttempts {
		t.Errorf("MaxAttempts = %d, want %d", p.MaxAttempts, DefaultMaxLoginAttempts)
	}
	if p.LockDuration != DefaultLockoutDuration {
		t.Errorf("LockDuration = %v, want %v", p.LockDuration, DefaultLockoutDuration)
	}
}

func TestLockoutPolicy_Locked(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewLockoutPolicy(5, time.Hour)

	future := now.Add(30 * time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name          string
		lockedUntil   *time.Time
		wantLocked    bool
		wantRemaining time.Duration
	}{
		{
			name:        "never locked",
			lockedUntil: nil,
			wantLocked:  false,
		},
		{
			name:          "inside lockout window",
			lockedUntil:   &future,
			wantLocked:    true,
			wantRemaining: 30 * time.Minute,
		},
		{
			name:        "window elapsed",
			lockedUntil: &past,
			wantLocked:  false,
		},
		{
			name:        "exactly at expiry",
			lockedUntil: &now,
			wantLocked:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &repository.User{LockedUntil: tt.lockedUntil}

			locked, remaining := p.Locked(user, now)
			if locked != tt.wantLocked {
				t.Errorf("Locked() = %v, want %v", locked, tt.wantLocked)
			}
			if remaining != tt.wantRemaining {
				t.Errorf("remaining = %v, want %v", remaining, tt.wantRemaining)
			}
		})
	}
}

func TestLockoutPolicy_LockUntil(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := NewLockoutPolicy(5, time.Hour)

	if got := p.LockUntil(now); !got.Equal(now.Add(time.Hour)) {
		t.Errorf("LockUntil() = %v, want %v", got, now.Add(time.Hour))
	}
}
