package goose

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sergiosegrera/ts-goose/database"
	"github.com/sergiosegrera/ts-goose/internal/sqlparser"
)

// runMigrations runs migrations sequentially in the given direction. If the migrations slice is
// empty, this function returns nil with no error.
func (p *Provider) runMigrations(
	ctx context.Context,
	conn *sql.Conn,
	migrations []*migration,
	direction sqlparser.Direction,
	byOne bool,
) ([]*MigrationResult, error) {
	if len(migrations) == 0 {
		return nil, nil
	}
	apply := migrations
	if byOne {
		apply = migrations[:1]
	}
	// Parse SQL migrations in both directions before running anything, so a broken file fails fast
	// and leaves the database untouched.
	if err := p.parseSQL(ctx, apply); err != nil {
		return nil, err
	}
	up := direction.ToBool()
	var results []*MigrationResult
	for _, m := range apply {
		src := m.Source
		current := &MigrationResult{
			Source:    &src,
			Direction: direction.String(),
			Empty:     m.isEmpty(up),
		}
		start := time.Now()
		if err := p.runIndividually(ctx, conn, m, up); err != nil {
			current.Error = err
			current.Duration = time.Since(start)
			return nil, &PartialError{
				Applied: results,
				Failed:  current,
				Err:     err,
			}
		}
		current.Duration = time.Since(start)
		if p.cfg.verbose {
			p.cfg.logger.Printf("%s", current)
		}
		results = append(results, current)
	}
	return results, nil
}

// runIndividually runs an individual migration, opening a new transaction if the migration is safe
// to run in a transaction. Otherwise, it runs the migration outside of a transaction with the
// supplied connection.
func (p *Provider) runIndividually(ctx context.Context, conn *sql.Conn, m *migration, up bool) error {
	if m.useTx(up) {
		return p.beginTx(ctx, conn, func(tx *sql.Tx) error {
			if err := m.runTx(ctx, tx, up, p.statementLogf()); err != nil {
				return err
			}
			return p.recordVersion(ctx, tx, m.Source.Version, up)
		})
	}
	// Go functions without a transaction receive *sql.DB. Callers limiting the pool to a single
	// connection will deadlock while the session connection is held.
	if err := m.runNoTx(ctx, conn, p.db, up, p.statementLogf()); err != nil {
		return err
	}
	return p.recordVersion(ctx, conn, m.Source.Version, up)
}

func (p *Provider) statementLogf() logFunc {
	if !p.cfg.verbose {
		return nil
	}
	return p.cfg.logger.Printf
}

func (p *Provider) recordVersion(ctx context.Context, db database.DBTxConn, version int64, up bool) error {
	if p.cfg.disableVersioning {
		return nil
	}
	if up {
		if err := p.store.Insert(ctx, db, database.InsertRequest{Version: version}); err != nil {
			return fmt.Errorf("failed to insert version %d: %w", version, err)
		}
		return nil
	}
	if err := p.store.Delete(ctx, db, version); err != nil {
		return fmt.Errorf("failed to delete version %d: %w", version, err)
	}
	return nil
}

// beginTx begins a transaction and runs the given function. If the function returns an error, the
// transaction is rolled back. Otherwise, the transaction is committed.
func (p *Provider) beginTx(ctx context.Context, conn *sql.Conn, fn func(tx *sql.Tx) error) (retErr error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			retErr = multierr.Append(retErr, tx.Rollback())
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// initialize takes the provider mutex, acquires a dedicated connection and, when useSessionLocker is
// true and a locker is configured, the session lock. The returned cleanup releases all of them and
// must always be called.
func (p *Provider) initialize(ctx context.Context, useSessionLocker bool) (*sql.Conn, func() error, error) {
	p.mu.Lock()
	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.mu.Unlock()
		return nil, nil, err
	}
	cleanup := func() error {
		defer p.mu.Unlock()
		return conn.Close()
	}
	if l := p.cfg.sessionLocker; l != nil && useSessionLocker {
		if err := l.SessionLock(ctx, conn); err != nil {
			return nil, nil, multierr.Append(err, cleanup())
		}
		cleanup = func() error {
			defer p.mu.Unlock()
			// The caller context may already be canceled, the lock must be released regardless.
			return multierr.Append(l.SessionUnlock(context.WithoutCancel(ctx), conn), conn.Close())
		}
	}
	// Ad-hoc migrations without versioning never touch the version table.
	if !p.cfg.disableVersioning {
		if err := p.ensureVersionTable(ctx, conn); err != nil {
			return nil, nil, multierr.Append(err, cleanup())
		}
	}
	return conn, cleanup, nil
}

// parseSQL parses all SQL migrations in both directions. Files are parsed concurrently; already
// parsed migrations are skipped. Results are stored only when every file parsed.
//
// The caller must hold p.mu.
func (p *Provider) parseSQL(ctx context.Context, migrations []*migration) error {
	parsed := make([]*sqlMigration, len(migrations))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, m := range migrations {
		if m.Source.Type != TypeSQL || m.SQL != nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := sqlparser.ParseAllFromFSWithEnv(p.fsys, m.Source.Path, p.cfg.env, false)
			if err != nil {
				return err
			}
			parsed[i] = &sqlMigration{
				UseTx:          res.UseTx,
				UpStatements:   res.Up,
				DownStatements: res.Down,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, sm := range parsed {
		if sm != nil {
			migrations[i].SQL = sm
		}
	}
	return nil
}

func (p *Provider) ensureVersionTable(ctx context.Context, conn *sql.Conn) error {
	exists, err := p.store.TableExists(ctx, conn)
	switch {
	case err == nil:
		if exists {
			return nil
		}
	case errors.Is(err, database.ErrNotSupported):
		// Fall back to probing for the initial version. Any error here, including a missing table,
		// means the table must be created.
		if res, err := p.store.GetMigration(ctx, conn, 0); err == nil && res != nil {
			return nil
		}
	default:
		return fmt.Errorf("failed to check if version table exists: %w", err)
	}
	return p.beginTx(ctx, conn, func(tx *sql.Tx) error {
		if err := p.store.CreateVersionTable(ctx, tx); err != nil {
			return err
		}
		return p.store.Insert(ctx, tx, database.InsertRequest{Version: 0})
	})
}

type missingMigration struct {
	versionID int64
	filename  string
}

// findMissingMigrations returns migrations that are absent from the database yet have a version
// lower than the max version in the database.
func findMissingMigrations(dbMigrations []*database.ListMigrationsResult, fsMigrations []*migration) []missingMigration {
	existing := make(map[int64]bool)
	var dbMaxVersion int64
	for _, m := range dbMigrations {
		existing[m.Version] = true
		dbMaxVersion = max(dbMaxVersion, m.Version)
	}
	var missing []missingMigration
	for _, m := range fsMigrations {
		version := m.Source.Version
		if !existing[version] && version < dbMaxVersion {
			missing = append(missing, missingMigration{
				versionID: version,
				filename:  m.Source.filename(),
			})
		}
	}
	slices.SortFunc(missing, func(a, b missingMigration) int {
		return cmp.Compare(a.versionID, b.versionID)
	})
	return missing
}

// getMigration returns the migration for the given version, or [ErrVersionNotFound].
func (p *Provider) getMigration(version int64) (*migration, error) {
	for _, m := range p.migrations {
		if m.Source.Version == version {
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrVersionNotFound, version)
}

func (p *Provider) up(ctx context.Context, byOne bool, version int64) (_ []*MigrationResult, retErr error) {
	if version < 1 {
		return nil, errInvalidVersion
	}
	conn, cleanup, err := p.initialize(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, cleanup())
	}()

	var apply []*migration
	if p.cfg.disableVersioning {
		for _, m := range p.migrations {
			if m.Source.Version <= version {
				apply = append(apply, m)
			}
		}
	} else {
		// Listing every applied version is only needed for out-of-order detection, but keeps a single
		// code path for both modes.
		dbMigrations, err := p.store.ListMigrations(ctx, conn)
		if err != nil {
			return nil, err
		}
		if len(dbMigrations) == 0 {
			return nil, errMissingZeroVersion
		}
		apply, err = p.resolveUpMigrations(dbMigrations, version)
		if err != nil {
			return nil, err
		}
	}
	return p.runMigrations(ctx, conn, apply, sqlparser.DirectionUp, byOne)
}

func (p *Provider) resolveUpMigrations(dbVersions []*database.ListMigrationsResult, version int64) ([]*migration, error) {
	var apply []*migration
	var dbMaxVersion int64
	applied := make(map[int64]bool, len(dbVersions))
	for _, m := range dbVersions {
		applied[m.Version] = true
		dbMaxVersion = max(dbMaxVersion, m.Version)
	}
	missing := findMissingMigrations(dbVersions, p.migrations)
	if len(missing) > 0 && !p.cfg.allowMissing {
		collected := make([]string, 0, len(missing))
		for _, v := range missing {
			collected = append(collected, v.filename)
		}
		msg := "migration"
		if len(collected) > 1 {
			msg += "s"
		}
		return nil, fmt.Errorf("found %d missing (out-of-order) %s lower than current max (%d): [%s]",
			len(missing), msg, dbMaxVersion, strings.Join(collected, ","),
		)
	}
	// Out-of-order migrations run first, in version order, followed by new ones.
	for _, v := range missing {
		if v.versionID > version {
			continue
		}
		m, err := p.getMigration(v.versionID)
		if err != nil {
			return nil, err
		}
		apply = append(apply, m)
	}
	for _, m := range p.migrations {
		if applied[m.Source.Version] {
			continue
		}
		if m.Source.Version > dbMaxVersion && m.Source.Version <= version {
			apply = append(apply, m)
		}
	}
	return apply, nil
}

func (p *Provider) down(ctx context.Context, byOne bool, version int64) (_ []*MigrationResult, retErr error) {
	conn, cleanup, err := p.initialize(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, cleanup())
	}()

	if p.cfg.disableVersioning {
		var rollback []*migration
		for _, m := range slices.Backward(p.migrations) {
			if m.Source.Version > version {
				rollback = append(rollback, m)
			}
		}
		return p.runMigrations(ctx, conn, rollback, sqlparser.DirectionDown, byOne)
	}
	dbMigrations, err := p.store.ListMigrations(ctx, conn)
	if err != nil {
		return nil, err
	}
	if len(dbMigrations) == 0 {
		return nil, errMissingZeroVersion
	}
	// Applied versions come back newest first, so rollback follows the order migrations were
	// applied in, not the version order.
	var rollback []*migration
	for _, dbMigration := range dbMigrations {
		if dbMigration.Version <= version {
			break
		}
		m, err := p.getMigration(dbMigration.Version)
		if err != nil {
			return nil, err
		}
		rollback = append(rollback, m)
	}
	return p.runMigrations(ctx, conn, rollback, sqlparser.DirectionDown, byOne)
}

func (p *Provider) apply(ctx context.Context, version int64, up bool) (_ []*MigrationResult, retErr error) {
	if version < 1 {
		return nil, errInvalidVersion
	}
	m, err := p.getMigration(version)
	if err != nil {
		return nil, err
	}
	conn, cleanup, err := p.initialize(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, cleanup())
	}()

	d := sqlparser.FromBool(up)
	if p.cfg.disableVersioning {
		return p.runMigrations(ctx, conn, []*migration{m}, d, true)
	}
	result, err := p.store.GetMigration(ctx, conn, version)
	if err != nil && !errors.Is(err, database.ErrVersionNotFound) {
		return nil, err
	}
	applied := result != nil && result.IsApplied
	if applied && up {
		return nil, fmt.Errorf("version %d: %w", version, ErrAlreadyApplied)
	}
	if !applied && !up {
		return nil, fmt.Errorf("version %d: %w", version, ErrNotApplied)
	}
	return p.runMigrations(ctx, conn, []*migration{m}, d, true)
}

// redo rolls back the latest applied migration and reapplies it while holding a single lock.
func (p *Provider) redo(ctx context.Context) (_ []*MigrationResult, retErr error) {
	if p.cfg.disableVersioning {
		return nil, errors.New("redo not supported when versioning is disabled")
	}
	conn, cleanup, err := p.initialize(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, cleanup())
	}()

	latest, err := p.getDBMaxVersion(ctx, conn)
	if err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, ErrNoNextVersion
	}
	m, err := p.getMigration(latest)
	if err != nil {
		return nil, err
	}
	down, err := p.runMigrations(ctx, conn, []*migration{m}, sqlparser.DirectionDown, true)
	if err != nil {
		return nil, err
	}
	up, err := p.runMigrations(ctx, conn, []*migration{m}, sqlparser.DirectionUp, true)
	if err != nil {
		var partialErr *PartialError
		if errors.As(err, &partialErr) {
			partialErr.Applied = append(down, partialErr.Applied...)
		}
		return nil, err
	}
	return append(down, up...), nil
}

func (p *Provider) status(ctx context.Context) (_ []*MigrationStatus, retErr error) {
	if p.cfg.disableVersioning {
		return nil, errors.New("getting status not supported when versioning is disabled")
	}
	conn, cleanup, err := p.initialize(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, cleanup())
	}()

	status := make([]*MigrationStatus, 0, len(p.migrations))
	for _, m := range p.migrations {
		src := m.Source
		ms := &MigrationStatus{
			Source: &src,
			State:  StatePending,
		}
		res, err := p.store.GetMigration(ctx, conn, m.Source.Version)
		if err != nil && !errors.Is(err, database.ErrVersionNotFound) {
			return nil, err
		}
		if res != nil && res.IsApplied {
			ms.State = StateApplied
			ms.AppliedAt = res.Timestamp
		}
		status = append(status, ms)
	}
	return status, nil
}

// getDBMaxVersion returns the highest applied version. A nil conn acquires one without the session
// lock.
func (p *Provider) getDBMaxVersion(ctx context.Context, conn *sql.Conn) (_ int64, retErr error) {
	if conn == nil {
		var cleanup func() error
		var err error
		conn, cleanup, err = p.initialize(ctx, false)
		if err != nil {
			return -1, fmt.Errorf("failed to initialize: %w", err)
		}
		defer func() {
			retErr = multierr.Append(retErr, cleanup())
		}()
	}
	latest, err := p.store.GetLatestVersion(ctx, conn)
	if err != nil {
		if errors.Is(err, database.ErrVersionNotFound) {
			return -1, errMissingZeroVersion
		}
		return -1, err
	}
	return latest, nil
}

func (p *Provider) hasPending(ctx context.Context) (_ bool, retErr error) {
	conn, cleanup, err := p.initialize(ctx, false)
	if err != nil {
		return false, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		retErr = multierr.Append(retErr, cleanup())
	}()

	// Without versioning there is no record of what ran, so everything is pending.
	if p.cfg.disableVersioning {
		return true, nil
	}
	dbMigrations, err := p.store.ListMigrations(ctx, conn)
	if err != nil {
		return false, err
	}
	if len(dbMigrations) == 0 {
		return false, errMissingZeroVersion
	}
	apply, err := p.resolveUpMigrations(dbMigrations, p.migrations[len(p.migrations)-1].Source.Version)
	if err != nil {
		return false, err
	}
	return len(apply) > 0, nil
}
