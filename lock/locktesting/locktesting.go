// Package locktesting provides reusable tests for SessionLocker implementations.
package locktesting

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sergiosegrera/ts-goose"
	"github.com/sergiosegrera/ts-goose/lock"
)

// TestProviderLocking runs several providers sharing one database and lock concurrently and
// verifies that exactly one of them applies every migration.
//
// newProvider must return providers configured with lockers that compete for the same lock.
func TestProviderLocking(
	t *testing.T,
	newProvider func(*testing.T) *goose.Provider,
) {
	t.Helper()

	const count = 5

	providers := make([]*goose.Provider, count)
	for i := range count {
		providers[i] = newProvider(t)
	}
	sources := providers[0].ListSources()
	require.NotEmpty(t, sources, "no migration sources found - check provider fsys")
	maxVersion := sources[len(sources)-1].Version
	for _, p := range providers {
		require.Equal(t, sources, p.ListSources(), "providers have different migration sources")
	}

	var g errgroup.Group
	results := make([]int, count)
	for i := range count {
		g.Go(func() error {
			ctx := context.Background()
			migrationResults, err := providers[i].Up(ctx)
			if err != nil {
				return fmt.Errorf("provider %d: %w", i, err)
			}
			results[i] = len(migrationResults)
			currentVersion, err := providers[i].GetDBVersion(ctx)
			if err != nil {
				return fmt.Errorf("provider %d: %w", i, err)
			}
			if currentVersion != maxVersion {
				return fmt.Errorf("provider %d: expected version %d, got %d", i, maxVersion, currentVersion)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var (
		providersWithWork   = 0
		providerWithAllWork = -1
	)
	for i, res := range results {
		if res > 0 {
			providersWithWork++
			if res == len(sources) {
				providerWithAllWork = i
			}
		}
	}
	require.Equal(t, 1, providersWithWork, "exactly one provider should apply migrations")
	require.NotEqual(t, -1, providerWithAllWork, "one provider should have applied all migrations")
	for i, res := range results {
		if i != providerWithAllWork {
			require.Equal(t, 0, res, "provider %d should have applied 0 migrations", i)
		}
	}
}

// TestConcurrentLocking starts several lockers at once, each on its own connection, and verifies
// that exactly one acquires the lock while the others give up after lockTimeout.
//
// newLocker must return lockers that compete for the same lock ID.
func TestConcurrentLocking(
	t *testing.T,
	newConn func(*testing.T) *sql.Conn,
	newLocker func(*testing.T) lock.SessionLocker,
	lockTimeout time.Duration,
) {
	t.Helper()

	const count = 5

	lockers := make([]lock.SessionLocker, count)
	conns := make([]*sql.Conn, count)
	for i := range count {
		lockers[i] = newLocker(t)
		conns[i] = newConn(t)
	}

	successCh := make(chan int, count)
	var wg sync.WaitGroup
	for i := range count {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
			defer cancel()
			if err := lockers[i].SessionLock(ctx, conns[i]); err != nil {
				return
			}
			successCh <- i
			// Hold the lock until every other locker has run out of time.
			time.Sleep(lockTimeout * 2)
			if err := lockers[i].SessionUnlock(context.Background(), conns[i]); err != nil {
				t.Errorf("locker %d failed to release lock: %v", i, err)
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(lockTimeout*2 + 5*time.Second):
		t.Fatal("lockers took too long")
	}

	close(successCh)
	var successful []int
	for id := range successCh {
		successful = append(successful, id)
	}
	require.Len(t, successful, 1, "exactly one locker should acquire the lock")
}
