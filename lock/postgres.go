package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sethvargo/go-retry"
)

// NewPostgresSessionLocker returns a SessionLocker that utilizes PostgreSQL's exclusive
// session-level advisory lock mechanism.
//
// This function creates a SessionLocker that can be used to acquire and release locks for
// synchronization purposes. The lock acquisition is retried until it is successfully acquired or
// until the failure threshold is reached. The default lock duration is set to 5 minutes, and the
// default unlock duration is set to 1 minute.
//
// If you have long running migrations, you may want to increase the lock duration.
//
// See [SessionLockerOption] for options that can be used to configure the SessionLocker.
func NewPostgresSessionLocker(opts ...SessionLockerOption) (SessionLocker, error) {
	cfg := sessionLockerConfig{
		lockID: DefaultLockID,
		lockProbe: probe{
			periodSeconds:    DefaultLockPeriod,
			failureThreshold: DefaultLockAttempts,
		},
		unlockProbe: probe{
			periodSeconds:    DefaultUnlockPeriod,
			failureThreshold: DefaultUnlockAttempts,
		},
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}
	return &postgresSessionLocker{
		lockID:      cfg.lockID,
		lockProbe:   cfg.lockProbe,
		unlockProbe: cfg.unlockProbe,
	}, nil
}

type postgresSessionLocker struct {
	lockID      int64
	lockProbe   probe
	unlockProbe probe
}

var _ SessionLocker = (*postgresSessionLocker)(nil)

func (l *postgresSessionLocker) SessionLock(ctx context.Context, conn *sql.Conn) error {
	return retry.Do(ctx, l.lockProbe.backoff(), func(ctx context.Context) error {
		row := conn.QueryRowContext(ctx, tryAdvisoryLockSession(l.lockID))
		var locked bool
		if err := row.Scan(&locked); err != nil {
			return fmt.Errorf("failed to execute pg_try_advisory_lock: %w", err)
		}
		if locked {
			// A session-level advisory lock was acquired.
			return nil
		}
		// Another session holds the lock. Keep retrying until it is released or the max duration
		// is reached.
		return retry.RetryableError(errors.New("failed to acquire lock"))
	})
}

func (l *postgresSessionLocker) SessionUnlock(ctx context.Context, conn *sql.Conn) error {
	return retry.Do(ctx, l.unlockProbe.backoff(), func(ctx context.Context) error {
		var unlocked bool
		row := conn.QueryRowContext(ctx, advisoryUnlockSession(l.lockID))
		if err := row.Scan(&unlocked); err != nil {
			return fmt.Errorf("failed to execute pg_advisory_unlock: %w", err)
		}
		if unlocked {
			// The session-level advisory lock was released.
			return nil
		}
		// pg_advisory_unlock returns false when this session does not hold the lock. Postgres
		// releases every session lock when the connection ends, so a stuck lock can always be
		// cleared by terminating the backend:
		//
		//	SELECT pid FROM pg_locks WHERE locktype='advisory';
		//	SELECT pg_terminate_backend(<pid>);
		return retry.RetryableError(errors.New("failed to unlock session"))
	})
}

func tryAdvisoryLockSession(id int64) string {
	return fmt.Sprintf("SELECT pg_try_advisory_lock(%d)", id)
}

func advisoryUnlockSession(id int64) string {
	return fmt.Sprintf("SELECT pg_advisory_unlock(%d)", id)
}
