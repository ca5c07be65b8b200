package goose

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sync"

	"github.com/sergiosegrera/ts-goose/database"
)

// Provider is a goose migration provider.
type Provider struct {
	// mu protects all accesses to the provider and must be held when calling operations on the
	// database.
	mu sync.Mutex

	db    *sql.DB
	store *database.StoreController
	fsys  fs.FS
	cfg   config

	// migrations are ordered by version in ascending order.
	migrations []*migration
}

// NewProvider returns a new goose provider.
//
// The caller is responsible for matching the database dialect with the database/sql driver. For
// example, if the database dialect is "postgres", the database/sql driver could be
// github.com/jackc/pgx/v5/stdlib.
//
// fsys is the filesystem used to read migration files, but may be nil. Most users will want to
// use [os.DirFS], os.DirFS("path/to/migrations"), to read migrations from the local filesystem.
// However, it is possible to use a different "filesystem", such as [embed.FS] or filter out
// migrations using [fs.Sub].
//
// See [ProviderOption] for more information on configuring the provider.
//
// Unless otherwise specified, all methods on Provider are safe for concurrent use.
func NewProvider(dialect database.Dialect, db *sql.DB, fsys fs.FS, opts ...ProviderOption) (*Provider, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if fsys == nil {
		fsys = noopFS{}
	}
	cfg := config{
		registered:   make(map[int64]*GoMigration),
		excludeNames: make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}
	// Set defaults after applying user-supplied options so option funcs can check for empty values.
	if cfg.logger == nil {
		cfg.logger = &stdLogger{}
	}
	var store database.Store
	if dialect != "" && dialect != database.DialectCustom {
		if cfg.store != nil {
			return nil, errors.New("dialect must be empty or custom when using a custom store implementation")
		}
		tableName := cfg.tableName
		if tableName == "" {
			tableName = DefaultTablename
		}
		var err error
		store, err = database.NewStore(dialect, tableName)
		if err != nil {
			return nil, err
		}
	} else {
		if cfg.store == nil {
			return nil, errors.New("dialect must not be empty")
		}
		if cfg.tableName != "" {
			return nil, errors.New("WithTableName cannot be used together with WithStore")
		}
		store = cfg.store
	}
	// Collect migrations from the filesystem and merge with registered migrations. SQL migrations
	// are not parsed here, that happens lazily before they run or eagerly with Validate.
	sources, err := collectFilesystemSources(fsys, false, cfg.excludeNames)
	if err != nil {
		return nil, err
	}
	migrations, err := merge(sources, cfg.registered)
	if err != nil {
		return nil, err
	}
	if len(migrations) == 0 {
		return nil, ErrNoMigrations
	}
	return &Provider{
		db:         db,
		store:      database.NewStoreController(store),
		fsys:       fsys,
		cfg:        cfg,
		migrations: migrations,
	}, nil
}

// Status returns the status of all migrations, merging the list of migrations from the database and
// filesystem. The returned items are ordered by version, in ascending order.
func (p *Provider) Status(ctx context.Context) ([]*MigrationStatus, error) {
	return p.status(ctx)
}

// HasPending returns true if there are pending migrations to apply, otherwise, it returns false. If
// out-of-order migrations are disabled, yet some are detected, this method returns an error.
//
// Note, this method will not use a SessionLocker or Advisory Lock if one is configured. This
// allows callers to check for pending migrations without blocking or being blocked by other
// operations.
func (p *Provider) HasPending(ctx context.Context) (bool, error) {
	return p.hasPending(ctx)
}

// GetDBVersion returns the highest version recorded in the database, regardless of the order in
// which migrations were applied. For example, if migrations 1,4,2,3 were applied, this method
// returns 4. If no migrations have been applied, it returns 0.
func (p *Provider) GetDBVersion(ctx context.Context) (int64, error) {
	if p.cfg.disableVersioning {
		return -1, errors.New("getting database version not supported when versioning is disabled")
	}
	return p.getDBMaxVersion(ctx, nil)
}

// ListSources returns a list of all migration sources known to the provider, sorted in ascending
// order by version. The path field may be empty for manually registered migrations, such as Go
// migrations registered without a file.
func (p *Provider) ListSources() []*Source {
	sources := make([]*Source, 0, len(p.migrations))
	for _, m := range p.migrations {
		s := m.Source
		sources = append(sources, &s)
	}
	return sources
}

// Ping attempts to ping the database to verify a connection is available.
func (p *Provider) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection initially supplied to the provider.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Validate parses every SQL migration in both directions without touching the database. Files are
// parsed concurrently and the first error is returned. On success the parsed statements are kept
// so later runs do not parse again.
func (p *Provider) Validate(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.parseSQL(ctx, p.migrations)
}

// ApplyVersion applies exactly one migration for the specified version. If there is no migration
// available for the specified version, this method returns [ErrVersionNotFound]. If the migration
// has already been applied, this method returns [ErrAlreadyApplied].
//
// The direction parameter determines the migration direction: true for up migration and false for
// down migration.
func (p *Provider) ApplyVersion(ctx context.Context, version int64, direction bool) (*MigrationResult, error) {
	res, err := p.apply(ctx, version, direction)
	if err != nil {
		return nil, err
	}
	// This should never happen, we must return exactly one result.
	if len(res) != 1 {
		versions := make([]int64, 0, len(res))
		for _, r := range res {
			versions = append(versions, r.Source.Version)
		}
		return nil, fmt.Errorf(
			"unexpected number of migrations applied running apply, expecting exactly one result: %v",
			versions,
		)
	}
	return res[0], nil
}

// Up applies all pending migrations. If there are no new migrations to apply, this method returns
// empty list and nil error.
func (p *Provider) Up(ctx context.Context) ([]*MigrationResult, error) {
	return p.up(ctx, false, math.MaxInt64)
}

// UpByOne applies the next pending migration. If there is no next migration to apply, this method
// returns [ErrNoNextVersion].
func (p *Provider) UpByOne(ctx context.Context) (*MigrationResult, error) {
	res, err := p.up(ctx, true, math.MaxInt64)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrNoNextVersion
	}
	return res[0], nil
}

// UpTo applies all pending migrations up to, and including, the specified version. If there are
// no migrations to apply, this method returns empty list and nil error.
//
// For example, if there are three new migrations (9,10,11) and the current database version is 8
// with a requested version of 10, only versions 9,10 will be applied.
func (p *Provider) UpTo(ctx context.Context, version int64) ([]*MigrationResult, error) {
	return p.up(ctx, false, version)
}

// Down rolls back the most recently applied migration. If there are no migrations to rollback,
// this method returns [ErrNoNextVersion].
//
// Note, migrations are rolled back in the order they were applied. And not in the reverse order
// of the migration version. This only applies in scenarios where migrations are allowed to be
// applied out of order.
func (p *Provider) Down(ctx context.Context) (*MigrationResult, error) {
	res, err := p.down(ctx, true, 0)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, ErrNoNextVersion
	}
	return res[0], nil
}

// DownTo rolls back all migrations down to, but not including, the specified version.
//
// For example, if the current database version is 11,10,9... and the requested version is 9, only
// migrations 11, 10 will be rolled back.
//
// Note, migrations are rolled back in the order they were applied. And not in the reverse order
// of the migration version. This only applies in scenarios where migrations are allowed to be
// applied out of order.
func (p *Provider) DownTo(ctx context.Context, version int64) ([]*MigrationResult, error) {
	if version < 0 {
		return nil, fmt.Errorf("invalid version: must be a valid number or zero: %d", version)
	}
	return p.down(ctx, false, version)
}

// Redo rolls back the most recently applied migration and applies it again. The two results are
// returned in execution order.
func (p *Provider) Redo(ctx context.Context) ([]*MigrationResult, error) {
	return p.redo(ctx)
}

// Reset rolls back every applied migration. It is equivalent to DownTo(0).
func (p *Provider) Reset(ctx context.Context) ([]*MigrationResult, error) {
	return p.down(ctx, false, 0)
}
