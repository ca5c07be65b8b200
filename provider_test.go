package goose_test

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"go.uber.org/goleak"
	_ "modernc.org/sqlite"

	"github.com/sergiosegrera/ts-goose"
	"github.com/sergiosegrera/ts-goose/database"
	"github.com/sergiosegrera/ts-goose/internal/check"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProvider(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	t.Run("empty", func(t *testing.T) {
		_, err := goose.NewProvider(database.DialectSQLite3, db, fstest.MapFS{})
		check.HasError(t, err)
		check.Bool(t, errors.Is(err, goose.ErrNoMigrations), true)
	})
	t.Run("nil_fsys", func(t *testing.T) {
		_, err := goose.NewProvider(database.DialectSQLite3, db, nil)
		check.IsError(t, err, goose.ErrNoMigrations)
		// Registered Go migrations do not need a filesystem.
		p, err := goose.NewProvider(database.DialectSQLite3, db, nil,
			goose.WithGoMigrations(goose.NewGoMigration(1, nil, nil)),
		)
		check.NoError(t, err)
		check.Number(t, len(p.ListSources()), 1)
	})
	mapFS := fstest.MapFS{
		"migrations/001_foo.sql": {Data: []byte(`-- +goose Up`)},
		"migrations/002_bar.sql": {Data: []byte(`-- +goose Up`)},
	}
	fsys, err := fs.Sub(mapFS, "migrations")
	check.NoError(t, err)
	p, err := goose.NewProvider(database.DialectSQLite3, db, fsys)
	check.NoError(t, err)
	sources := p.ListSources()
	check.Equal(t, len(sources), 2)
	check.Equal(t, *sources[0], newSource(goose.TypeSQL, "001_foo.sql", 1))
	check.Equal(t, *sources[1], newSource(goose.TypeSQL, "002_bar.sql", 2))
	// Mutating a returned source must not affect the provider.
	sources[0].Version = 99
	check.Number(t, p.ListSources()[0].Version, 1)
}

func TestNewProvider(t *testing.T) {
	t.Parallel()

	db := newDB(t)
	fsys := newFsys()
	t.Run("invalid", func(t *testing.T) {
		// Empty dialect not allowed
		_, err := goose.NewProvider("", db, fsys)
		check.HasError(t, err)
		// Invalid dialect not allowed
		_, err = goose.NewProvider("unknown-dialect", db, fsys)
		check.IsError(t, err, database.ErrUnknownDialect)
		// Nil db not allowed
		_, err = goose.NewProvider(database.DialectSQLite3, nil, fsys)
		check.HasError(t, err)
		// Duplicate table name not allowed
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithTableName("foo"), goose.WithTableName("bar"))
		check.HasError(t, err)
		check.Equal(t, err.Error(), `table already set to "foo"`)
		// Empty table name not allowed
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithTableName(""))
		check.HasError(t, err)
		check.Equal(t, err.Error(), "table must not be empty")
		// Store and dialect are mutually exclusive
		store, err := database.NewStore(database.DialectSQLite3, "custom")
		check.NoError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithStore(store))
		check.HasError(t, err)
		// Store and table name are mutually exclusive
		_, err = goose.NewProvider("", db, fsys, goose.WithStore(store), goose.WithTableName("foo"))
		check.HasError(t, err)
		// Nil logger, locker and env not allowed
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithLogger(nil))
		check.HasError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithSessionLocker(nil))
		check.HasError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithEnv(nil))
		check.HasError(t, err)
		// Duplicate excludes not allowed
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys,
			goose.WithExcludeNames([]string{"1_foo.sql"}),
			goose.WithExcludeNames([]string{"1_foo.sql"}),
		)
		check.HasError(t, err)
		check.Contains(t, err.Error(), "duplicate exclude file name")
	})
	t.Run("invalid_go_migrations", func(t *testing.T) {
		_, err := goose.NewProvider(database.DialectSQLite3, db, fsys,
			goose.WithGoMigrations(goose.NewGoMigration(0, nil, nil)),
		)
		check.HasError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys,
			goose.WithGoMigrations(goose.NewGoMigration(10, &goose.GoFunc{
				RunTx: func(context.Context, *sql.Tx) error { return nil },
				RunDB: func(context.Context, *sql.DB) error { return nil },
			}, nil)),
		)
		check.HasError(t, err)
		check.Contains(t, err.Error(), "must specify exactly one of RunTx or RunDB")
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys,
			goose.WithGoMigrations(goose.NewGoMigration(10, &goose.GoFunc{
				RunTx: func(context.Context, *sql.Tx) error { return nil },
				Mode:  goose.TransactionDisabled,
			}, nil)),
		)
		check.HasError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys,
			goose.WithGoMigrations(goose.NewGoMigration(10, nil, nil), goose.NewGoMigration(10, nil, nil)),
		)
		check.HasError(t, err)
		check.Contains(t, err.Error(), "already registered")
		// Version collides with 1_foo.sql.
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys,
			goose.WithGoMigrations(goose.NewGoMigration(1, nil, nil)),
		)
		check.HasError(t, err)
		check.Contains(t, err.Error(), "found duplicate migration version 1")
	})
	t.Run("valid", func(t *testing.T) {
		_, err := goose.NewProvider(database.DialectSQLite3, db, fsys)
		check.NoError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithTableName("foo"))
		check.NoError(t, err)
		_, err = goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithVerbose(true))
		check.NoError(t, err)
		store, err := database.NewStore(database.DialectSQLite3, "custom")
		check.NoError(t, err)
		_, err = goose.NewProvider("", db, fsys, goose.WithStore(store))
		check.NoError(t, err)
		_, err = goose.NewProvider(database.DialectCustom, db, fsys, goose.WithStore(store))
		check.NoError(t, err)
		p, err := goose.NewProvider(database.DialectSQLite3, db, fsys, goose.WithExcludeNames([]string{"4_qux.sql"}))
		check.NoError(t, err)
		check.Number(t, len(p.ListSources()), 3)
	})
}

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "sql.db"))
	check.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newSource(t goose.MigrationType, fullpath string, version int64) goose.Source {
	return goose.Source{
		Type:    t,
		Path:    fullpath,
		Version: version,
	}
}

func newFsys() fs.FS {
	return fstest.MapFS{
		"1_foo.sql": {Data: []byte(migration1)},
		"2_bar.sql": {Data: []byte(migration2)},
		"3_baz.sql": {Data: []byte(migration3)},
		"4_qux.sql": {Data: []byte(migration4)},
	}
}

var (
	migration1 = `
-- +goose Up
CREATE TABLE foo (id INTEGER PRIMARY KEY);
-- +goose Down
DROP TABLE foo;
`
	migration2 = `
-- +goose Up
ALTER TABLE foo ADD COLUMN name TEXT;
-- +goose Down
ALTER TABLE foo DROP COLUMN name;
`
	migration3 = `
-- +goose Up
CREATE TABLE bar (
    id INTEGER PRIMARY KEY,
    description TEXT
);
-- +goose Down
DROP TABLE bar;
`
	migration4 = `
-- +goose Up
-- Rename the 'foo' table to 'my_foo'
ALTER TABLE foo RENAME TO my_foo;

-- Add a new column 'created_at' to 'my_foo'
ALTER TABLE my_foo ADD COLUMN created_at TEXT;

-- +goose Down
-- Remove the 'created_at' column from 'my_foo'
ALTER TABLE my_foo DROP COLUMN created_at;

-- Rename the 'my_foo' table back to 'foo'
ALTER TABLE my_foo RENAME TO foo;
`
)
