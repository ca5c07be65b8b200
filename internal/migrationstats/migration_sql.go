package migrationstats

import (
	"io/fs"

	"github.com/mfridman/interpolate"

	"github.com/sergiosegrera/ts-goose/internal/sqlparser"
)

type sqlMigration struct {
	useTx              bool
	upCount, downCount int
}

func parseSQLFile(fsys fs.FS, filename string, env interpolate.Env) (*sqlMigration, error) {
	parsed, err := sqlparser.ParseAllFromFSWithEnv(fsys, filename, env, false)
	if err != nil {
		return nil, err
	}
	return &sqlMigration{
		useTx:     parsed.UseTx,
		upCount:   len(parsed.Up),
		downCount: len(parsed.Down),
	}, nil
}
