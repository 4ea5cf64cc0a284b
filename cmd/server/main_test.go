package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/drivehub/auth-service/internal/repository"
)

// sweepSessionStub records DeleteExpiredBefore calls
type sweepSessionStub struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (s *sweepSessionStub) Issue(ctx context.Context, session *repository.Session) error {
	return errors.New("not implemented")
}

func (s *sweepSessionStub) GetByToken(ctx context.Context, token string) (*repository.Session, error) {
	return nil, repository.ErrSessionNotFound
}

func (s *sweepSessionStub) Deactivate(ctx context.Context, token string) error {
	return nil
}

func (s *sweepSessionStub) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.deleted, s.err
}

func (s *sweepSessionStub) calls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.cutoffs...)
}

// sweepAuditStub records DeleteOlderThan calls
type sweepAuditStub struct {
	mu      sync.Mutex
	cutoffs []time.Time
	pruned  int64
}

func (s *sweepAuditStub) Record(ctx context.Context, attempt *repository.LoginAttempt) error {
	return nil
}

func (s *sweepAuditStub) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.pruned, nil
}

func (s *sweepAuditStub) calls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.cutoffs...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestSweepStaleRows_PrunesSessionsAndAuditRows(t *testing.T) {
	sessions := &sweepSessionStub{deleted: 3}
	audit := &sweepAuditStub{pruned: 7}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sweepStaleRows(ctx, sessions, audit, 10*time.Millisecond, slog.Default())
	}()

	waitFor(t, func() bool {
		return len(sessions.calls()) > 0 && len(audit.calls()) > 0
	})
	before := time.Now().UTC()
	cancel()
	<-done

	sessionCutoff := sessions.calls()[0]
	if sessionCutoff.After(before) {
		t.Errorf("session cutoff %v is in the future", sessionCutoff)
	}

	auditCutoff := audit.calls()[0]
	wantAround := sessionCutoff.Add(-auditRetention)
	if diff := auditCutoff.Sub(wantAround); diff < -time.Minute || diff > time.Minute {
		t.Errorf("audit cutoff %v, want about %v before the sweep time", auditCutoff, auditRetention)
	}
}

func TestSweepStaleRows_SessionErrorDoesNotSkipAuditPrune(t *testing.T) {
	sessions := &sweepSessionStub{err: errors.New("connection refused")}
	audit := &sweepAuditStub{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sweepStaleRows(ctx, sessions, audit, 10*time.Millisecond, slog.Default())
	}()

	waitFor(t, func() bool { return len(audit.calls()) > 0 })
	cancel()
	<-done
}

func TestSweepStaleRows_StopsOnContextCancel(t *testing.T) {
	sessions := &sweepSessionStub{}
	audit := &sweepAuditStub{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sweepStaleRows(ctx, sessions, audit, time.Hour, slog.Default())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not stop after context cancellation")
	}
}
