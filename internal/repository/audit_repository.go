package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// LoginAuditRepository records the outcome of every login attempt. Writes are
// best-effort from the caller's perspective: audit failures never block a login.
type LoginAuditRepository interface {
	Record(ctx context.Context, attempt *LoginAttempt) error
	// DeleteOlderThan prunes audit rows past the retention window
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// loginAuditRepository implements LoginAuditRepository over sqlx
type loginAuditRepository struct {
	db *sqlx.DB
}

// NewLoginAuditRepository creates a new LoginAuditRepository instance
func NewLoginAuditRepository(db *sqlx.DB) LoginAuditRepository {
	return &loginAuditRepository{db: db}
}

// Record inserts an audit row for a login attempt
func (r *loginAuditRepository) Record(ctx context.Context, attempt *LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (username, ip_address, outcome, attempted_at)
		VALUES (:username, :ip_address, :outcome, :attempted_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, attempt)
	return err
}

// DeleteOlderThan prunes audit rows older than the cutoff
func (r *loginAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
