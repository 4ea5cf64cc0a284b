package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session repository errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	// Issue deactivates every active session for session.UserID and inserts
	// the new one inside a single transaction, preserving the
	// one-active-session-per-user invariant under concurrent logins.
	Issue(ctx context.Context, session *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	// Deactivate marks the session inactive. It is idempotent: deactivating
	// a missing or already-inactive session is not an error.
	Deactivate(ctx context.Context, token string) error
	// DeleteExpiredBefore removes sessions whose expiry predates the cutoff.
	// Lazy expiry on verify is authoritative; this only prunes dead rows.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// sessionRepository implements SessionRepository using PostgreSQL
type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

// Issue supersedes prior sessions and inserts the new one transactionally
func (r *sessionRepository) Issue(ctx context.Context, session *Session) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE sessions
		SET is_active = false
		WHERE user_id = $1 AND is_active = true
	`, session.UserID)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO sessions (user_id, session_token, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING id
	`, session.UserID, session.Token, session.CreatedAt, session.ExpiresAt).Scan(&session.ID)
	if err != nil {
		return err
	}

	session.IsActive = true
	return tx.Commit(ctx)
}

// GetByToken retrieves an active session by its token
func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT id, user_id, session_token, created_at, expires_at, is_active
		FROM sessions
		WHERE session_token = $1 AND is_active = true
	`

	session := &Session{}
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.IsActive,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

// Deactivate marks a session inactive; no error when nothing matches
func (r *sessionRepository) Deactivate(ctx context.Context, token string) error {
	query := `
		UPDATE sessions
		SET is_active = false
		WHERE session_token = $1 AND is_active = true
	`

	_, err := r.pool.Exec(ctx, query, token)
	return err
}

// DeleteExpiredBefore removes sessions that expired before the cutoff
func (r *sessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
