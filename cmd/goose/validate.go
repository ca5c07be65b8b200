package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/mfridman/interpolate"

	"github.com/sergiosegrera/ts-goose"
	"github.com/sergiosegrera/ts-goose/internal/migrationstats"
)

// runValidate parses every SQL and Go migration in dir without a database connection.
func runValidate(ctx context.Context, dir string, env interpolate.Env, stdout io.Writer) error {
	fsys := os.DirFS(dir)
	var migrations []string
	for _, pattern := range []string{"*.sql", "*.go"} {
		files, err := fs.Glob(fsys, pattern)
		if err != nil {
			return err
		}
		for _, name := range files {
			if strings.HasSuffix(name, "_test.go") {
				continue
			}
			if _, err := goose.NumericComponent(name); err == nil {
				migrations = append(migrations, name)
			}
		}
	}
	if len(migrations) == 0 {
		return fmt.Errorf("%s: %w", dir, goose.ErrNoMigrations)
	}
	stats, err := migrationstats.GatherStats(ctx, fsys, migrations, env)
	if err != nil {
		return err
	}
	slices.SortFunc(stats, func(a, b *migrationstats.Stats) int {
		return cmp.Compare(a.Version, b.Version)
	})
	for _, s := range stats {
		tx := "tx"
		if !s.Tx {
			tx = "no tx"
		}
		fmt.Fprintf(stdout, "%-40s up:%d down:%d (%s)\n", s.FileName, s.UpCount, s.DownCount, tx)
	}
	fmt.Fprintf(stdout, "goose: validated %d migration(s)\n", len(stats))
	return nil
}
