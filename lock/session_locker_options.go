package lock

import (
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultLockID is the id used to lock the database for migrations. It is a crc64 hash of the
	// string "goose".
	//
	// crc64.Checksum([]byte("goose"), crc64.MakeTable(crc64.ECMA))
	DefaultLockID int64 = 5887940537704921958

	// Default values for the lock (time to wait for the lock to be acquired) and unlock (time to
	// wait for the lock to be released) durations.
	DefaultLockPeriod   = 5 * time.Second
	DefaultLockAttempts = 60 // 5 minutes total

	DefaultUnlockPeriod   = 2 * time.Second
	DefaultUnlockAttempts = 30 // 1 minute total
)

// SessionLockerOption is used to configure a SessionLocker.
type SessionLockerOption interface {
	apply(*sessionLockerConfig) error
}

// WithLockID sets the lock ID to use when locking the database.
//
// If WithLockID is not called, the DefaultLockID is used.
func WithLockID(lockID int64) SessionLockerOption {
	return sessionLockerConfigFunc(func(c *sessionLockerConfig) error {
		c.lockID = lockID
		return nil
	})
}

// WithLockTimeout sets the max duration to wait for the lock to be acquired. The total duration
// is period (in seconds) times failureThreshold.
func WithLockTimeout(period, failureThreshold uint64) SessionLockerOption {
	return sessionLockerConfigFunc(func(c *sessionLockerConfig) error {
		if period < 1 {
			return errors.New("period must be greater than 0, minimum is 1")
		}
		if failureThreshold < 1 {
			return errors.New("failure threshold must be greater than 0, minimum is 1")
		}
		c.lockProbe = probe{
			periodSeconds:    time.Duration(period) * time.Second,
			failureThreshold: failureThreshold,
		}
		return nil
	})
}

// WithUnlockTimeout sets the max duration to wait for the lock to be released. The total duration
// is period (in seconds) times failureThreshold.
func WithUnlockTimeout(period, failureThreshold uint64) SessionLockerOption {
	return sessionLockerConfigFunc(func(c *sessionLockerConfig) error {
		if period < 1 {
			return errors.New("period must be greater than 0, minimum is 1")
		}
		if failureThreshold < 1 {
			return errors.New("failure threshold must be greater than 0, minimum is 1")
		}
		c.unlockProbe = probe{
			periodSeconds:    time.Duration(period) * time.Second,
			failureThreshold: failureThreshold,
		}
		return nil
	})
}

type sessionLockerConfig struct {
	lockID      int64
	lockProbe   probe
	unlockProbe probe
}

// probe is used to configure how often and how many times to retry a lock or unlock operation.
type probe struct {
	periodSeconds    time.Duration
	failureThreshold uint64
}

func (p probe) maxDuration() time.Duration {
	return p.periodSeconds * time.Duration(p.failureThreshold)
}

// backoff returns a fresh backoff. The max duration clock starts when it is built, so every lock
// or unlock call needs its own.
func (p probe) backoff() retry.Backoff {
	return retry.WithMaxDuration(p.maxDuration(), retry.NewConstant(p.periodSeconds))
}

var _ SessionLockerOption = (sessionLockerConfigFunc)(nil)

type sessionLockerConfigFunc func(*sessionLockerConfig) error

func (f sessionLockerConfigFunc) apply(cfg *sessionLockerConfig) error {
	return f(cfg)
}
