package goose

import (
	"fmt"
	"path/filepath"
	"time"
)

// MigrationType is the type of migration.
type MigrationType string

const (
	TypeGo  MigrationType = "go"
	TypeSQL MigrationType = "sql"
)

func (t MigrationType) String() string {
	// This should never happen.
	if t == "" {
		return "unknown migration type"
	}
	return string(t)
}

// Source represents a single migration source.
//
// The Path field may be empty if the migration was registered manually. This is typically the
// case for Go migrations registered without a file on disk.
type Source struct {
	Type    MigrationType
	Path    string
	Version int64
}

func (s Source) filename() string {
	if s.Path == "" {
		return fmt.Sprintf("%d (registered go migration)", s.Version)
	}
	return filepath.Base(s.Path)
}

// MigrationResult is the result of a single migration operation.
type MigrationResult struct {
	Source    *Source
	Duration  time.Duration
	Direction string
	// Empty indicates no action was taken during the migration, but it was still versioned. For
	// SQL, it means no statements; for Go, it means no function was registered for the direction.
	Empty bool
	// Error is only set if the migration failed.
	Error error
}

// String returns a string representation of the migration result.
//
// Example down:
//
//	EMPTY down 00006_posts_view-copy.sql (607.83µs)
//	OK    down 00005_posts_view.sql (646.25µs)
//
// Example up:
//
//	OK    up 00005_posts_view.sql (727.5µs)
//	EMPTY up 00006_posts_view-copy.sql (378.33µs)
func (m *MigrationResult) String() string {
	var format string
	if m.Direction == "up" {
		format = "%-5s %-2s %s (%s)"
	} else {
		format = "%-5s %-4s %s (%s)"
	}
	var state string
	if m.Empty {
		state = "EMPTY"
	} else {
		state = "OK"
	}
	return fmt.Sprintf(format,
		state,
		m.Direction,
		m.Source.filename(),
		truncateDuration(m.Duration),
	)
}

// State represents the state of a migration.
type State string

const (
	// StatePending is a migration that exists on the filesystem, but not in the database.
	StatePending State = "pending"
	// StateApplied is a migration that has been applied to the database and exists on the
	// filesystem.
	StateApplied State = "applied"
)

// MigrationStatus represents the status of a single migration.
type MigrationStatus struct {
	Source    *Source
	State     State
	AppliedAt time.Time
}

func truncateDuration(d time.Duration) time.Duration {
	for _, v := range []time.Duration{
		time.Second,
		time.Millisecond,
		time.Microsecond,
	} {
		if d > v {
			return d.Round(v / time.Duration(100))
		}
	}
	return d
}
