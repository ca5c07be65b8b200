package goose

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// fileSources represents a collection of migration files on the filesystem.
type fileSources struct {
	sqlSources []Source
	goSources  []Source
}

func (s *fileSources) lookupGo(version int64) *Source {
	for i := range s.goSources {
		if s.goSources[i].Version == version {
			return &s.goSources[i]
		}
	}
	return nil
}

// collectFilesystemSources scans the root of fsys for migration files that have a numeric prefix
// (greater than zero) followed by an underscore and a file extension of either .go or .sql.
//
// If strict is true, then any error parsing the numeric component of the filename will result in an
// error. The file is skipped otherwise.
//
// This function DOES NOT parse SQL migrations or merge registered Go migrations.
func collectFilesystemSources(fsys fs.FS, strict bool, excludes map[string]bool) (*fileSources, error) {
	sources := new(fileSources)
	versionToBaseLookup := make(map[int64]string) // map[version]filepath.Base(fullpath)
	for _, pattern := range []string{
		"*.sql",
		"*.go",
	} {
		files, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %q: %w", pattern, err)
		}
		for _, fullpath := range files {
			base := filepath.Base(fullpath)
			// Skip explicit excludes or Go test files.
			if excludes[base] || strings.HasSuffix(base, "_test.go") {
				continue
			}
			// Files without a NUMBER_ prefix are not migrations. This lets helper files, such as
			// a helpers.go with shared functions, live next to the migrations.
			version, err := NumericComponent(base)
			if err != nil {
				if strict {
					return nil, fmt.Errorf("failed to parse numeric component from %q: %w", base, err)
				}
				continue
			}
			if existing, ok := versionToBaseLookup[version]; ok {
				return nil, fmt.Errorf("found duplicate migration version %d:\n\texisting:%v\n\tcurrent:%v",
					version,
					existing,
					base,
				)
			}
			switch filepath.Ext(base) {
			case ".sql":
				sources.sqlSources = append(sources.sqlSources, Source{
					Type:    TypeSQL,
					Path:    fullpath,
					Version: version,
				})
			case ".go":
				sources.goSources = append(sources.goSources, Source{
					Type:    TypeGo,
					Path:    fullpath,
					Version: version,
				})
			default:
				// Should never happen since we already filtered out all other file types.
				return nil, fmt.Errorf("unknown migration type: %s", base)
			}
			versionToBaseLookup[version] = base
		}
	}
	return sources, nil
}

// merge combines filesystem sources with registered Go migrations and returns them sorted by
// version in ascending order.
func merge(sources *fileSources, registered map[int64]*GoMigration) ([]*migration, error) {
	var migrations []*migration
	migrationLookup := make(map[int64]*migration)
	for _, source := range sources.sqlSources {
		m := &migration{Source: source}
		migrations = append(migrations, m)
		migrationLookup[source.Version] = m
	}
	// A versioned .go file on disk without a registered function is almost always a user error:
	// the file was created but never compiled into the binary.
	var unregistered []string
	for _, s := range sources.goSources {
		if _, ok := registered[s.Version]; !ok {
			unregistered = append(unregistered, s.Path)
		}
	}
	if len(unregistered) > 0 {
		return nil, unregisteredError(unregistered)
	}
	for version, r := range registered {
		fullpath := r.Source
		if fullpath == "" {
			if s := sources.lookupGo(version); s != nil {
				fullpath = s.Path
			}
		}
		if existing, ok := migrationLookup[version]; ok {
			current := fullpath
			if current == "" {
				current = "manually registered (no source)"
			}
			return nil, fmt.Errorf("found duplicate migration version %d:\n\texisting:%v\n\tcurrent:%v",
				version,
				existing.Source.Path,
				current,
			)
		}
		m := &migration{
			Source: Source{
				Type:    TypeGo,
				Path:    fullpath,
				Version: version,
			},
			Go: r,
		}
		migrations = append(migrations, m)
		migrationLookup[version] = m
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Source.Version < migrations[j].Source.Version
	})
	return migrations, nil
}

// NumericComponent parses the version from the migration file name.
//
// XXX_descriptivename.ext where XXX specifies the version number and ext specifies the type of
// migration, either .sql or .go.
func NumericComponent(filename string) (int64, error) {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != ".go" && ext != ".sql" {
		return 0, errors.New("migration file does not have .sql or .go file extension")
	}
	idx := strings.Index(base, "_")
	if idx < 0 {
		return 0, errors.New("no filename separator '_' found")
	}
	n, err := strconv.ParseInt(base[:idx], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse version from migration file: %s: %w", base, err)
	}
	if n < 1 {
		return 0, errors.New("migration version must be greater than zero")
	}
	return n, nil
}

type noopFS struct{}

var _ fs.FS = noopFS{}

func (f noopFS) Open(name string) (fs.File, error) {
	return nil, os.ErrNotExist
}
