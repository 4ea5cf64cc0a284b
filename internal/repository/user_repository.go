package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username or email already exists")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// RecordFailedAttempt increments the failure counter and, when the new
	// count reaches maxAttempts, sets locked_until to lockUntil in the same
	// statement. Returns the counter value after the increment.
	RecordFailedAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (int, error)
	// ResetFailures zeroes the failure counter, clears any lockout and
	// stamps last_login, all in one statement.
	ResetFailures(ctx context.Context, id uuid.UUID, lastLogin time.Time) error
	// ClearLock zeroes the failure counter and clears the lockout without
	// touching last_login. Used when an elapsed lockout window is observed,
	// so the next failures count against a fresh budget.
	ClearLock(ctx context.Context, id uuid.UUID) error
}

// userRepository implements UserRepository using PostgreSQL
type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Create inserts a new user. Uniqueness of username and email is enforced by
// the database constraints, so concurrent registrations cannot both succeed.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (username, email, password_hash, salt, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Salt,
		true,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "users_username_key") ||
			strings.Contains(err.Error(), "users_email_key") {
			return ErrDuplicateUser
		}
		return err
	}

	user.IsActive = true
	return nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, salt, created_at,
		       last_login, is_active, failed_login_attempts, locked_until
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername retrieves a user by their username (case-sensitive)
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, password_hash, salt, created_at,
		       last_login, is_active, failed_login_attempts, locked_until
		FROM users
		WHERE username = $1
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, username))
}

// RecordFailedAttempt increments failed_login_attempts and trips the lockout
// in a single UPDATE so two concurrent failures cannot lose an increment or
// race past the threshold without locking.
func (r *userRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, lockUntil time.Time) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END
		WHERE id = $1
		RETURNING failed_login_attempts
	`

	var count int
	err := r.pool.QueryRow(ctx, query, id, maxAttempts, lockUntil).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	return count, nil
}

// ResetFailures clears the failure counter and lockout, and records the login time
func (r *userRepository) ResetFailures(ctx context.Context, id uuid.UUID, lastLogin time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_login = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, lastLogin)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ClearLock clears an elapsed lockout and its failure counter
func (r *userRepository) ClearLock(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// scanUser scans a single user row
func (r *userRepository) scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Salt,
		&user.CreatedAt,
		&user.LastLogin,
		&user.IsActive,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user, nil
}
