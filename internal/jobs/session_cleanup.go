package jobs

import (
	"context"
	"time"
)

// SessionPruner deletes sessions that have not been seen within their TTL
type SessionPruner interface {
	CleanupStale(ctx context.Context) error
}

// SessionCleanup periodically drops stale login sessions
type SessionCleanup struct {
	*periodic
	sessions SessionPruner
}

// NewSessionCleanup creates the session cleanup job. A zero interval means daily.
func NewSessionCleanup(sessions SessionPruner, interval time.Duration) *SessionCleanup {
	if interval == 0 {
		interval = 24 * time.Hour
	}
	j := &SessionCleanup{sessions: sessions}
	j.periodic = newPeriodic("session_cleanup", interval, 5*time.Second, 5*time.Minute, j.RunOnce)
	return j
}

// RunOnce deletes stale sessions once
func (j *SessionCleanup) RunOnce(ctx context.Context) error {
	return j.sessions.CleanupStale(ctx)
}
