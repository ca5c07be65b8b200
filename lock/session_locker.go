// Package lock defines the session lock used to keep more than one migration run from touching
// the same database at once.
package lock

import (
	"context"
	"database/sql"
)

// SessionLocker is used to lock the database for the duration of a session.
//
// The provider acquires the lock on a dedicated *sql.Conn before it reads or writes the version
// table, and releases it on the same connection once the operation is done.
type SessionLocker interface {
	SessionLock(ctx context.Context, conn *sql.Conn) error
	SessionUnlock(ctx context.Context, conn *sql.Conn) error
}
