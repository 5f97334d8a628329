package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// Migration is one numbered pair of up/down SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations = mustLoadMigrations(migrationFS)

func mustLoadMigrations(fsys fs.FS) []Migration {
	loaded, err := LoadMigrations(fsys)
	if err != nil {
		panic(fmt.Sprintf("failed to register embedded migrations: %v", err))
	}
	return loaded
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from the
// migrations directory of fsys, ordered by version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var loaded []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		prefix, label, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected NNNNNN_name.up.sql", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: invalid version: %w", name, err)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %d used by both %s and %s", version, other, name)
		}
		seen[version] = name

		up, err := fs.ReadFile(fsys, path.Join("migrations", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read up migration %s: %w", name, err)
		}
		down, err := fs.ReadFile(fsys, path.Join("migrations", base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("failed to read down migration %s.down.sql: %w", base, err)
		}

		loaded = append(loaded, Migration{
			Version:    version,
			Name:       label,
			UpScript:   string(up),
			DownScript: string(down),
		})
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Version < loaded[j].Version
	})
	return loaded, nil
}

// GetMigrations returns the embedded migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the embedded migration with version, or nil.
func GetMigrationByVersion(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			return &migrations[i]
		}
	}
	return nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
