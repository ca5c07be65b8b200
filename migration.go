package goose

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sergiosegrera/ts-goose/database"
	"github.com/sergiosegrera/ts-goose/internal/gooseutil"
)

// TransactionMode represents the possible transaction modes for a Go migration.
type TransactionMode int

const (
	TransactionEnabled TransactionMode = iota + 1
	TransactionDisabled
)

func (m TransactionMode) String() string {
	switch m {
	case TransactionEnabled:
		return "transaction_enabled"
	case TransactionDisabled:
		return "transaction_disabled"
	default:
		return fmt.Sprintf("unknown transaction mode (%d)", m)
	}
}

// GoFunc represents a Go migration function for one direction.
//
// At most one of RunTx or RunDB may be set. When both are nil the migration is a no-op for that
// direction, but it is still versioned.
type GoFunc struct {
	// RunTx runs inside a transaction together with the version table write.
	RunTx func(ctx context.Context, tx *sql.Tx) error
	// RunDB runs outside a transaction, for statements a database refuses to run inside one.
	RunDB func(ctx context.Context, db *sql.DB) error
	// Mode is inferred from the set function when left unset.
	Mode TransactionMode
}

// GoMigration is a migration written in Go and registered with [WithGoMigrations].
type GoMigration struct {
	Version int64
	// Source is the optional path of the file that defines the migration. When empty and a file
	// with a matching version exists in the provider filesystem, its path is used.
	Source   string
	Up, Down *GoFunc
}

// NewGoMigration creates a new Go migration. Either function may be nil.
func NewGoMigration(version int64, up, down *GoFunc) *GoMigration {
	return &GoMigration{Version: version, Up: up, Down: down}
}

func (g *GoMigration) validate() error {
	if g == nil {
		return errors.New("go migration must not be nil")
	}
	if g.Version < 1 {
		return fmt.Errorf("invalid go migration version %d: %w", g.Version, errInvalidVersion)
	}
	if g.Up != nil {
		if err := g.Up.validate(); err != nil {
			return fmt.Errorf("version %d: up: %w", g.Version, err)
		}
	}
	if g.Down != nil {
		if err := g.Down.validate(); err != nil {
			return fmt.Errorf("version %d: down: %w", g.Version, err)
		}
	}
	return nil
}

func (f *GoFunc) validate() error {
	if f.RunTx != nil && f.RunDB != nil {
		return errors.New("must specify exactly one of RunTx or RunDB")
	}
	switch f.Mode {
	case 0:
	case TransactionEnabled:
		if f.RunDB != nil {
			return errors.New("transaction mode enabled, but RunDB is set")
		}
	case TransactionDisabled:
		if f.RunTx != nil {
			return errors.New("transaction mode disabled, but RunTx is set")
		}
	default:
		return fmt.Errorf("invalid mode: %d", f.Mode)
	}
	return nil
}

// mode returns the effective transaction mode. A function with only RunDB never runs in a
// transaction.
func (f *GoFunc) mode() TransactionMode {
	if f == nil {
		return TransactionEnabled
	}
	if f.Mode != 0 {
		return f.Mode
	}
	if f.RunDB != nil {
		return TransactionDisabled
	}
	return TransactionEnabled
}

func (f *GoFunc) isEmpty() bool {
	return f == nil || (f.RunTx == nil && f.RunDB == nil)
}

// migration is either a SQL migration or a Go migration, but never both.
type migration struct {
	Source Source
	Go     *GoMigration
	// SQL is nil until the file has been parsed. Parsing is deferred until the migration is about
	// to run or the provider is validated.
	SQL *sqlMigration
}

type sqlMigration struct {
	UseTx          bool
	UpStatements   []string
	DownStatements []string
}

func (m *migration) goFunc(up bool) *GoFunc {
	if up {
		return m.Go.Up
	}
	return m.Go.Down
}

func (m *migration) useTx(up bool) bool {
	switch m.Source.Type {
	case TypeSQL:
		return m.SQL.UseTx
	case TypeGo:
		return m.goFunc(up).mode() == TransactionEnabled
	}
	// This should never happen.
	return false
}

func (m *migration) isEmpty(up bool) bool {
	switch m.Source.Type {
	case TypeSQL:
		if m.SQL == nil {
			return true
		}
		if up {
			return len(m.SQL.UpStatements) == 0
		}
		return len(m.SQL.DownStatements) == 0
	case TypeGo:
		return m.goFunc(up).isEmpty()
	}
	return true
}

// runTx runs the migration inside the given transaction.
func (m *migration) runTx(ctx context.Context, tx *sql.Tx, up bool, logf logFunc) error {
	switch m.Source.Type {
	case TypeSQL:
		return m.runSQL(ctx, tx, up, logf)
	case TypeGo:
		if fn := m.goFunc(up); fn != nil && fn.RunTx != nil {
			if err := fn.RunTx(ctx, tx); err != nil {
				return fmt.Errorf("failed to run go migration %s: %w", m.Source.filename(), err)
			}
		}
		return nil
	}
	// This should never happen.
	return fmt.Errorf("tx: failed to run migration %s: neither sql or go", m.Source.filename())
}

// runNoTx runs the migration outside a transaction. SQL statements run on the session connection;
// Go functions receive the database pool.
func (m *migration) runNoTx(ctx context.Context, conn *sql.Conn, db *sql.DB, up bool, logf logFunc) error {
	switch m.Source.Type {
	case TypeSQL:
		return m.runSQL(ctx, conn, up, logf)
	case TypeGo:
		if fn := m.goFunc(up); fn != nil && fn.RunDB != nil {
			if err := fn.RunDB(ctx, db); err != nil {
				return fmt.Errorf("failed to run go migration %s: %w", m.Source.filename(), err)
			}
		}
		return nil
	}
	// This should never happen.
	return fmt.Errorf("db: failed to run migration %s: neither sql or go", m.Source.filename())
}

// logFunc receives per-statement output. A nil logFunc disables it.
type logFunc func(format string, args ...any)

func (m *migration) runSQL(ctx context.Context, db database.DBTxConn, up bool, logf logFunc) error {
	if m.SQL == nil {
		return fmt.Errorf("sql migration %s has not been parsed", m.Source.filename())
	}
	statements := m.SQL.DownStatements
	if up {
		statements = m.SQL.UpStatements
	}
	for i, stmt := range statements {
		res, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("failed to run SQL migration %s: statement %d: %w", m.Source.filename(), i+1, err)
		}
		if logf != nil {
			logf("%s: statement %d: %s", m.Source.filename(), i+1, gooseutil.FormatSQLResultInfo(res))
		}
	}
	return nil
}
