package goose

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FixResult records one file renamed by [Fix].
type FixResult struct {
	OldPath string
	NewPath string
}

// Fix renames timestamped migrations in dir to sequential versions, continuing after the highest
// sequential version already present. Files are renamed in timestamp order.
func Fix(dir string) ([]FixResult, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	sources, err := collectFilesystemSources(os.DirFS(dir), false, nil)
	if err != nil {
		return nil, err
	}
	all := append(sources.sqlSources, sources.goSources...)
	slices.SortFunc(all, func(a, b Source) int {
		return cmp.Compare(a.Version, b.Version)
	})
	var (
		timestamped []Source
		version     int64 = 1
	)
	for _, s := range all {
		if isTimestamp(s.Version) {
			timestamped = append(timestamped, s)
			continue
		}
		version = max(version, s.Version+1)
	}
	results := make([]FixResult, 0, len(timestamped))
	for _, s := range timestamped {
		oldPath := filepath.Join(dir, filepath.FromSlash(s.Path))
		base := filepath.Base(oldPath)
		newBase := strings.Replace(base, strconv.FormatInt(s.Version, 10), fmt.Sprintf(seqVersionFormat, version), 1)
		newPath := filepath.Join(filepath.Dir(oldPath), newBase)
		if err := os.Rename(oldPath, newPath); err != nil {
			return results, err
		}
		results = append(results, FixResult{
			OldPath: oldPath,
			NewPath: newPath,
		})
		version++
	}
	return results, nil
}

// isTimestamp reports whether version reads as a timestamp after the Unix epoch.
func isTimestamp(version int64) bool {
	t, err := time.Parse(timestampFormat, strconv.FormatInt(version, 10))
	if err != nil {
		return false
	}
	return t.After(time.Unix(0, 0))
}
