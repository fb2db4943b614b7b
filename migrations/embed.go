// Package migrations embeds the PostgreSQL schema of the primary warehouse
// tables and validates the migration set.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed *.sql
var files embed.FS

// FS returns the embedded migration files.
func FS() fs.FS {
	return files
}

var (
	// ErrNoMigrations is returned when the file system holds no migration files.
	ErrNoMigrations = errors.New("no migration files found")
	// ErrInvalidFilename is returned for a .sql file outside the naming standard.
	ErrInvalidFilename = errors.New("invalid migration filename")
	// ErrUnpaired is returned when an up migration lacks its down file or vice versa.
	ErrUnpaired = errors.New("unpaired migration")
	// ErrSequenceGap is returned when sequence numbers do not run 001, 002, ...
	ErrSequenceGap = errors.New("gap in migration sequence")
)

// Migration filename regex: 001_migration_name.up.sql or 001_migration_name.down.sql.
var filenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// Info describes one migration file.
type Info struct {
	Sequence  int
	Name      string
	Direction string
	Filename  string
}

// Parse splits a migration filename into its parts.
func Parse(filename string) (Info, error) {
	m := filenameRegex.FindStringSubmatch(filename)
	if m == nil {
		return Info{}, fmt.Errorf("%w: %s (expected 001_name.up.sql or 001_name.down.sql)", ErrInvalidFilename, filename)
	}

	seq, err := strconv.Atoi(m[1])
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %w", ErrInvalidFilename, filename, err)
	}

	return Info{Sequence: seq, Name: m[2], Direction: m[3], Filename: filename}, nil
}

// List returns the migration files of fsys in apply order.
func List(fsys fs.FS) ([]Info, error) {
	names, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	infos := make([]Info, 0, len(names))

	for _, name := range names {
		info, err := Parse(name)
		if err != nil {
			return nil, err
		}

		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })

	return infos, nil
}

// Validate checks naming, up/down pairing and that sequences start at 001
// without gaps.
func Validate(fsys fs.FS) error {
	infos, err := List(fsys)
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		return ErrNoMigrations
	}

	pairs := make(map[string]map[string]bool)
	sequences := make(map[int]bool)

	for _, info := range infos {
		key := fmt.Sprintf("%03d_%s", info.Sequence, info.Name)
		if pairs[key] == nil {
			pairs[key] = make(map[string]bool)
		}

		pairs[key][info.Direction] = true
		sequences[info.Sequence] = true
	}

	for key, dirs := range pairs {
		if !dirs["up"] {
			return fmt.Errorf("%w: missing up migration for %s", ErrUnpaired, key)
		}

		if !dirs["down"] {
			return fmt.Errorf("%w: missing down migration for %s", ErrUnpaired, key)
		}
	}

	for seq := 1; seq <= len(sequences); seq++ {
		if !sequences[seq] {
			return fmt.Errorf("%w: expected %03d", ErrSequenceGap, seq)
		}
	}

	return nil
}
