// Package migrationstats reports what each migration file would do without touching a database.
package migrationstats

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"runtime"

	"github.com/mfridman/interpolate"
	"golang.org/x/sync/errgroup"

	"github.com/sergiosegrera/ts-goose"
)

// Stats contains the stats for a migration file.
type Stats struct {
	// FileName is the name of the file.
	FileName string
	// Version is the version of the migration.
	Version int64
	// Tx is false if the .sql migration file has a +goose NO TRANSACTION annotation or a direction
	// of the .go migration runs with RunDB.
	Tx bool
	// UpCount is the number of statements in the Up migration. Go migrations count 1 per
	// registered function.
	UpCount int
	// DownCount is the number of statements in the Down migration.
	DownCount int
}

// GatherStats parses every named file in fsys concurrently and returns the stats in the same order
// as filenames. Names without a .sql or .go extension are skipped. env is the ENVSUB lookup for SQL
// files and may be nil.
func GatherStats(ctx context.Context, fsys fs.FS, filenames []string, env interpolate.Env) ([]*Stats, error) {
	stats := make([]*Stats, len(filenames))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, filename := range filenames {
		ext := path.Ext(filename)
		if ext != ".sql" && ext != ".go" {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			version, err := goose.NumericComponent(filename)
			if err != nil {
				return fmt.Errorf("failed to get version from file %q: %w", filename, err)
			}
			s := &Stats{FileName: filename, Version: version}
			switch ext {
			case ".sql":
				m, err := parseSQLFile(fsys, filename, env)
				if err != nil {
					return err
				}
				s.UpCount, s.DownCount, s.Tx = m.upCount, m.downCount, m.useTx
			case ".go":
				f, err := fsys.Open(filename)
				if err != nil {
					return err
				}
				m, err := parseGoFile(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("failed to parse file %q: %w", filename, err)
				}
				s.UpCount, s.DownCount = m.up.count(), m.down.count()
				s.Tx = m.up.useTx() && m.down.useTx()
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := stats[:0]
	for _, s := range stats {
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}
