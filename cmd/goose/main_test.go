package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected string
	}{
		{name: "no values", input: []string{}, expected: ""},
		{name: "all empty values", input: []string{"", "", ""}, expected: ""},
		{name: "single non-empty value in middle", input: []string{"", "value", ""}, expected: "value"},
		{name: "multiple non-empty values", input: []string{"first", "second", "third"}, expected: "first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, firstNonEmpty(tt.input...))
		})
	}
}

func TestRunSQLite(t *testing.T) {
	clearGooseEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "00001_users.sql", `-- +goose Up
CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);
-- +goose Down
DROP TABLE users;
`)
	writeFile(t, dir, "00002_seed.sql", `-- +goose Up
-- +goose StatementBegin
INSERT INTO users (name) VALUES ('alice');
INSERT INTO users (name) VALUES ('bob');
-- +goose StatementEnd
-- +goose Down
DELETE FROM users;
`)
	dbPath := filepath.Join(t.TempDir(), "goose.db")
	base := []string{"-dir", dir, "-env", "none", "sqlite3", dbPath}

	out := runGoose(t, append(base, "status")...)
	require.Contains(t, out, "Pending")
	require.Contains(t, out, "00001_users.sql")

	out = runGoose(t, append(base, "up")...)
	require.Contains(t, out, "OK    up 00001_users.sql")
	require.Contains(t, out, "OK    up 00002_seed.sql")

	out = runGoose(t, append(base, "version")...)
	require.Equal(t, "goose: version 2\n", out)

	out = runGoose(t, append(base, "up")...)
	require.Contains(t, out, "no migrations to run")

	out = runGoose(t, append(base, "redo")...)
	require.Contains(t, out, "OK    down 00002_seed.sql")
	require.Contains(t, out, "OK    up 00002_seed.sql")

	// Flags may follow the command.
	out = runGoose(t, "-env", "none", "sqlite3", dbPath, "down-to", "0", "-dir", dir)
	require.Contains(t, out, "OK    down 00001_users.sql")

	out = runGoose(t, append(base, "up-to", "1")...)
	require.Contains(t, out, "00001_users.sql")
	require.NotContains(t, out, "00002_seed.sql")

	out = runGoose(t, append(base, "reset")...)
	require.Contains(t, out, "OK    down 00001_users.sql")

	err := run(context.Background(), append(base, "up-to", "abc"), new(bytes.Buffer))
	require.ErrorContains(t, err, "version must be a number")
	err = run(context.Background(), append(base, "sideways"), new(bytes.Buffer))
	require.ErrorContains(t, err, `"sideways": unknown command`)
}

func TestRunDotEnv(t *testing.T) {
	clearGooseEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, "00001_env.sql", `-- +goose ENVSUB ON
-- +goose Up
CREATE TABLE ${TABLE_NAME} (id INTEGER);
-- +goose Down
DROP TABLE ${TABLE_NAME};
`)
	dbPath := filepath.Join(t.TempDir(), "goose.db")
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"GOOSE_DRIVER=sqlite3\nGOOSE_DBSTRING="+dbPath+"\nGOOSE_MIGRATION_DIR="+dir+"\nTABLE_NAME=from_dotenv\n",
	), 0o644))

	out := runGoose(t, "-env", envFile, "env")
	require.Contains(t, out, `GOOSE_DRIVER="sqlite3"`)
	require.Contains(t, out, `GOOSE_TABLE="goose_db_version"`)

	out = runGoose(t, "-env", envFile, "up", "-v")
	require.Contains(t, out, "OK    up 00001_env.sql")
	out = runGoose(t, "-env", envFile, "status")
	require.NotContains(t, out, "Pending")

	_ = runGoose(t, "-env", envFile, "down")

	err := run(context.Background(), []string{"-env", filepath.Join(t.TempDir(), "missing.env"), "env"}, new(bytes.Buffer))
	require.Error(t, err)
}

func TestRunCreateFixValidate(t *testing.T) {
	clearGooseEnv(t)
	dir := t.TempDir()

	out := runGoose(t, "-env", "none", "-dir", dir, "-s", "create", "add posts", "go")
	require.Contains(t, out, "00001_add_posts.go")
	out = runGoose(t, "-env", "none", "-dir", dir, "create", "add users")
	require.Contains(t, out, "goose: created new file:")
	out = runGoose(t, "-env", "none", "-dir", dir, "fix")
	require.Contains(t, out, "00002_add_users.sql")

	out = runGoose(t, "-env", "none", "-dir", dir, "validate")
	require.Contains(t, out, "00001_add_posts.go")
	require.Contains(t, out, "00002_add_users.sql")
	require.Contains(t, out, "up:1 down:1 (tx)")
	require.Contains(t, out, "validated 2 migration(s)")

	writeFile(t, dir, "00003_broken.sql", "-- +goose Up\n-- +goose StatementEnd\n")
	err := run(context.Background(), []string{"-env", "none", "-dir", dir, "validate"}, new(bytes.Buffer))
	require.ErrorContains(t, err, "StatementEnd without matching StatementBegin")

	err = run(context.Background(), []string{"-env", "none", "-dir", dir, "create"}, new(bytes.Buffer))
	require.Error(t, err)
}

func TestRunUsage(t *testing.T) {
	clearGooseEnv(t)
	var buf bytes.Buffer
	err := run(context.Background(), []string{"-env", "none"}, &buf)
	require.True(t, errors.Is(err, flag.ErrHelp))
	require.Contains(t, buf.String(), "Usage: goose [OPTIONS] DRIVER DBSTRING COMMAND")
	err = run(context.Background(), []string{"-env", "none", "sqlite3", "status"}, new(bytes.Buffer))
	require.ErrorContains(t, err, "driver, dbstring and command are required")
	err = run(context.Background(), []string{"-env", "none", "oracle", "dsn", "status"}, new(bytes.Buffer))
	require.ErrorContains(t, err, "unknown dialect")
	err = run(context.Background(), []string{"-env", "none", "-lock", "sqlite3", "x.db", "status"}, new(bytes.Buffer))
	require.ErrorContains(t, err, "-lock is not supported")
}

func TestResolveDriver(t *testing.T) {
	name, dsn, err := resolveDriver("mysql", "mysql", "user:password@/dbname", "")
	require.NoError(t, err)
	require.Equal(t, "mysql", name)
	require.Contains(t, dsn, "parseTime=true")

	name, dsn, err = resolveDriver("mymysql", "mysql", "tcp:localhost:3306*db/user/pass", "")
	require.NoError(t, err)
	require.Equal(t, "mymysql", name)
	require.Equal(t, "tcp:localhost:3306*db/user/pass", dsn)

	name, _, err = resolveDriver("postgres", "postgres", "postgres://localhost/db", "")
	require.NoError(t, err)
	require.Equal(t, "pgx", name)

	name, dsn, err = resolveDriver("ydb", "ydb", "grpc://localhost:2136/local?go_query_mode=data", "")
	require.NoError(t, err)
	require.Equal(t, "ydb", name)
	require.Contains(t, dsn, "go_query_mode=data")
	require.Contains(t, dsn, "go_fake_tx=scripting")

	_, _, err = resolveDriver("custom", "custom", "x", "")
	require.Error(t, err)
}

func runGoose(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	err := run(context.Background(), args, &buf)
	require.NoError(t, err, "goose %s:\n%s", strings.Join(args, " "), buf.String())
	return buf.String()
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// clearGooseEnv blanks the variables the CLI reads. Empty values are treated as unset.
func clearGooseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOOSE_DRIVER", "GOOSE_DBSTRING", "GOOSE_MIGRATION_DIR", "GOOSE_TABLE", "NO_COLOR"} {
		t.Setenv(key, "")
	}
}
