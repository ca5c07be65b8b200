package goose

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
	"time"

	"go.uber.org/multierr"
)

const (
	timestampFormat  = "20060102150405"
	seqVersionFormat = "%05v"
)

// CreateMigration writes a new migration file into dir and returns its path. The migration type is
// "sql" or "go". With sequential set, the version is one greater than the highest version found in
// dir; otherwise it is now formatted as a UTC timestamp.
func CreateMigration(dir, name string, typ MigrationType, sequential bool, now time.Time) (string, error) {
	if name == "" {
		return "", errors.New("migration name must not be empty")
	}
	var tmpl *template.Template
	switch typ {
	case TypeSQL:
		tmpl = sqlMigrationTemplate
	case TypeGo:
		tmpl = goMigrationTemplate
	default:
		return "", fmt.Errorf("invalid migration type %q: must be %q or %q", typ, TypeSQL, TypeGo)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create migration directory: %w", err)
	}
	var (
		version string
		n       int64
	)
	if sequential {
		sources, err := collectFilesystemSources(os.DirFS(dir), false, nil)
		if err != nil {
			return "", err
		}
		var last int64
		for _, s := range append(sources.sqlSources, sources.goSources...) {
			last = max(last, s.Version)
		}
		n = last + 1
		version = fmt.Sprintf(seqVersionFormat, n)
	} else {
		version = now.UTC().Format(timestampFormat)
		n, _ = strconv.ParseInt(version, 10, 64)
	}
	filename := fmt.Sprintf("%s_%s.%s", version, snakeCase(name), typ)
	path := filepath.Join(dir, filename)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("failed to create migration file: %s already exists", path)
	}
	vars := struct {
		Version   int64
		CamelName string
	}{
		Version:   n,
		CamelName: camelCase(name),
	}
	if err := writeMigration(path, tmpl, vars); err != nil {
		return "", err
	}
	return path, nil
}

// writeMigration creates path exclusively and renders tmpl into it. On any failure, including the
// final close, the partial file is removed.
func writeMigration(path string, tmpl *template.Template, vars any) (retErr error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create migration file: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, f.Close())
		if retErr != nil {
			retErr = multierr.Append(retErr, os.Remove(path))
		}
	}()
	if err := tmpl.Execute(f, vars); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

var sqlMigrationTemplate = template.Must(template.New("goose.sql-migration").Parse(`-- +goose Up
-- +goose StatementBegin
SELECT 'up SQL query';
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
SELECT 'down SQL query';
-- +goose StatementEnd
`))

var goMigrationTemplate = template.Must(template.New("goose.go-migration").Parse(`package migrations

import (
	"context"
	"database/sql"

	"github.com/sergiosegrera/ts-goose"
)

// Register with goose.WithGoMigrations(Migration{{.CamelName}}).
var Migration{{.CamelName}} = goose.NewGoMigration(
	{{.Version}},
	&goose.GoFunc{RunTx: up{{.CamelName}}},
	&goose.GoFunc{RunTx: down{{.CamelName}}},
)

func up{{.CamelName}}(ctx context.Context, tx *sql.Tx) error {
	// This code is executed when the migration is applied.
	return nil
}

func down{{.CamelName}}(ctx context.Context, tx *sql.Tx) error {
	// This code is executed when the migration is rolled back.
	return nil
}
`))
