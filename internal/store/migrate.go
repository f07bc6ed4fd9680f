package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Migration is one versioned schema change: a pair of NNNN_name.up.sql and
// NNNN_name.down.sql files.
type Migration struct {
	Version   string     `json:"version"`
	AppliedAt *time.Time `json:"appliedAt,omitempty"`

	up   string
	down string
}

var ErrNothingToRollback = errors.New("no applied migrations")

// ListMigrations reads the migration files in dir, ordered by version.
func ListMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	byVersion := map[string]*Migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		var version string
		var up bool
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			version, up = strings.TrimSuffix(name, ".up.sql"), true
		case strings.HasSuffix(name, ".down.sql"):
			version = strings.TrimSuffix(name, ".down.sql")
		default:
			continue
		}
		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if up {
			m.up = filepath.Join(dir, name)
		} else {
			m.down = filepath.Join(dir, name)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.up == "" {
			return nil, fmt.Errorf("migration %s has no up file", m.Version)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func ApplyMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	migrations, err := MigrationStatus(ctx, db, migrationsDir)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.AppliedAt != nil {
			continue
		}
		err := runMigration(ctx, db, m.Version, m.up, `INSERT INTO schema_migrations(version) VALUES($1)`)
		if err != nil {
			return err
		}
	}
	return nil
}

// MigrationStatus lists every migration in migrationsDir with the time it
// was applied, if it was.
func MigrationStatus(ctx context.Context, db *sql.DB, migrationsDir string) ([]Migration, error) {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, err
	}
	migrations, err := ListMigrations(migrationsDir)
	if err != nil {
		return nil, err
	}
	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, err
	}
	for i := range migrations {
		if at, ok := applied[migrations[i].Version]; ok {
			at := at
			migrations[i].AppliedAt = &at
		}
	}
	return migrations, nil
}

// RollbackLast runs the down file of the most recently versioned applied
// migration and returns its version.
func RollbackLast(ctx context.Context, db *sql.DB, migrationsDir string) (string, error) {
	migrations, err := MigrationStatus(ctx, db, migrationsDir)
	if err != nil {
		return "", err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.AppliedAt == nil {
			continue
		}
		if m.down == "" {
			return "", fmt.Errorf("migration %s has no down file", m.Version)
		}
		if err := runMigration(ctx, db, m.Version, m.down, `DELETE FROM schema_migrations WHERE version=$1`); err != nil {
			return "", err
		}
		return m.Version, nil
	}
	return "", ErrNothingToRollback
}

// runMigration executes one SQL file and its bookkeeping statement in a
// single transaction.
func runMigration(ctx context.Context, db *sql.DB, version, path, bookkeeping string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx %s: %w", version, err)
	}
	if text := strings.TrimSpace(string(contents)); text != "" {
		if _, err := tx.ExecContext(ctx, text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", version, err)
	}
	return nil
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func appliedMigrations(ctx context.Context, db *sql.DB) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()
	applied := map[string]time.Time{}
	for rows.Next() {
		var version string
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}
