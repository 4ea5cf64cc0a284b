package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/drivehub/auth-service/internal/metrics"
	"github.com/drivehub/auth-service/internal/repository"
	"github.com/google/uuid"
)

// DefaultSessionTTL is the fixed lifetime of a session token. Expiry is set
// at creation and never extended.
const DefaultSessionTTL = 24 * time.Hour

// UserInfo is the read-only view of an authenticated user returned to callers
type UserInfo struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// AuthService orchestrates credential checks, lockout policy and session
// lifecycle. It holds no mutable state of its own; all mutation goes through
// the repositories, so it is safe for concurrent use.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	auditRepo   repository.LoginAuditRepository
	hasher      *PasswordHasher
	lockout     LockoutPolicy
	sessionTTL  time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthService creates a new AuthService instance
func NewAuthService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	hasher *PasswordHasher,
	lockout LockoutPolicy,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		hasher:      hasher,
		lockout:     lockout,
		sessionTTL:  DefaultSessionTTL,
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NewAuthServiceWithAudit creates an AuthService that also records every
// login attempt to the audit repository
func NewAuthServiceWithAudit(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	auditRepo repository.LoginAuditRepository,
	hasher *PasswordHasher,
	lockout LockoutPolicy,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		hasher:      hasher,
		lockout:     lockout,
		sessionTTL:  sessionTTL,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register validates the request, hashes the password and creates the user.
// Validation failures are returned without touching the store.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (uuid.UUID, []ValidationError, error) {
	if validationErrors := ValidateRegisterRequest(req); len(validationErrors) > 0 {
		return uuid.Nil, validationErrors, nil
	}

	salt, err := s.hasher.NewSalt()
	if err != nil {
		return uuid.Nil, nil, err
	}

	user := &repository.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: s.hasher.Hash(req.Password, salt),
		Salt:         salt,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return uuid.Nil, nil, ErrDuplicateUser
		}
		return uuid.Nil, nil, storeErr("create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user.ID, nil, nil
}

// Login authenticates a user and issues a session token. Unknown usernames
// and wrong passwords are indistinguishable to the caller; a locked account
// is rejected before the password is even hashed.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress string) (string, *UserInfo, error) {
	now := s.now()

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.audit(ctx, username, ipAddress, repository.AttemptOutcomeUnknownUser, now)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, storeErr("lookup user", err)
	}

	if !user.IsActive {
		s.audit(ctx, username, ipAddress, repository.AttemptOutcomeUnknownUser, now)
		return "", nil, ErrInvalidCredentials
	}

	if locked, remaining := s.lockout.Locked(user, now); locked {
		s.audit(ctx, username, ipAddress, repository.AttemptOutcomeLocked, now)
		return "", nil, &AccountLockedError{Remaining: remaining}
	}

	// An elapsed lockout window grants a fresh failure budget: clear the lock
	// and counter before evaluating this attempt.
	if user.LockedUntil != nil {
		if err := s.userRepo.ClearLock(ctx, user.ID); err != nil {
			return "", nil, storeErr("clear lockout", err)
		}
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}

	if !s.hasher.Verify(password, user.Salt, user.PasswordHash) {
		count, ferr := s.userRepo.RecordFailedAttempt(ctx, user.ID, s.lockout.MaxAttempts, s.lockout.LockUntil(now))
		if ferr != nil {
			return "", nil, storeErr("record failed attempt", ferr)
		}
		if count >= s.lockout.MaxAttempts {
			metrics.LockoutsTotal.Inc()
			s.logger.Warn("account locked after repeated failures",
				"user_id", user.ID, "failed_attempts", count)
		}
		s.audit(ctx, username, ipAddress, repository.AttemptOutcomeBadPassword, now)
		return "", nil, ErrInvalidCredentials
	}

	if err := s.userRepo.ResetFailures(ctx, user.ID, now); err != nil {
		return "", nil, storeErr("reset failures", err)
	}

	token, err := NewSessionToken()
	if err != nil {
		return "", nil, err
	}

	session := &repository.Session{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessionRepo.Issue(ctx, session); err != nil {
		return "", nil, storeErr("issue session", err)
	}

	s.audit(ctx, username, ipAddress, repository.AttemptOutcomeSuccess, now)
	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)

	lastLogin := now
	return token, &UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		LastLogin: &lastLogin,
	}, nil
}

// VerifySession resolves a session token to its user. Expiry is detected
// lazily here: an expired session is deactivated on first sight and stays
// invalid forever after.
func (s *AuthService) VerifySession(ctx context.Context, token string) (*UserInfo, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeErr("lookup session", err)
	}

	if s.now().After(session.ExpiresAt) {
		if derr := s.sessionRepo.Deactivate(ctx, token); derr != nil {
			s.logger.Warn("failed to deactivate expired session", "error", derr)
		}
		metrics.SessionsExpiredTotal.Inc()
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, storeErr("lookup session user", err)
	}
	if !user.IsActive {
		// Deactivated accounts lose their sessions on next contact.
		if derr := s.sessionRepo.Deactivate(ctx, token); derr != nil {
			s.logger.Warn("failed to deactivate session of inactive user", "error", derr)
		}
		return nil, ErrSessionNotFound
	}

	return &UserInfo{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		LastLogin: user.LastLogin,
	}, nil
}

// Logout invalidates the session. It is idempotent: logging out an unknown,
// expired or already-invalidated token succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.Deactivate(ctx, token); err != nil {
		return storeErr("invalidate session", err)
	}
	return nil
}

// audit records a login attempt outcome; failures are logged, never surfaced
func (s *AuthService) audit(ctx context.Context, username, ipAddress, outcome string, at time.Time) {
	if s.auditRepo == nil {
		return
	}
	attempt := &repository.LoginAttempt{
		Username:    username,
		Outcome:     outcome,
		AttemptedAt: at,
	}
	if ipAddress != "" {
		attempt.IPAddress = &ipAddress
	}
	if err := s.auditRepo.Record(ctx, attempt); err != nil {
		s.logger.Warn("failed to record login attempt", "username", username, "error", err)
	}
}
