package repository

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account in the database
type User struct {
	ID                  uuid.UUID  `db:"id"`
	Username            string     `db:"username"`
	Email               string     `db:"email"`
	PasswordHash        string     `db:"password_hash"`
	Salt                string     `db:"salt"`
	CreatedAt           time.Time  `db:"created_at"`
	LastLogin           *time.Time `db:"last_login"`
	IsActive            bool       `db:"is_active"`
	FailedLoginAttempts int        `db:"failed_login_attempts"`
	LockedUntil         *time.Time `db:"locked_until"`
}

// Session represents an authentication session in the database
type Session struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Token     string    `db:"session_token"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
	IsActive  bool      `db:"is_active"`
}

// LoginAttempt is an audit record of a single login attempt
type LoginAttempt struct {
	ID          int64     `db:"id"`
	Username    string    `db:"username"`
	IPAddress   *string   `db:"ip_address"`
	Outcome     string    `db:"outcome"`
	AttemptedAt time.Time `db:"attempted_at"`
}

// Login attempt outcomes recorded in the audit table
const (
	AttemptOutcomeSuccess     = "success"
	AttemptOutcomeBadPassword = "bad_password"
	AttemptOutcomeUnknownUser = "unknown_user"
	AttemptOutcomeLocked      = "locked"
)
