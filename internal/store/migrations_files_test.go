package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var migrationsDir = filepath.Join("..", "..", "db", "migrations")

func TestListMigrationsPairsUpAndDown(t *testing.T) {
	migrations, err := ListMigrations(migrationsDir)
	if err != nil {
		t.Fatalf("ListMigrations() error = %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no migrations discovered")
	}
	for i, m := range migrations {
		if m.up == "" || m.down == "" {
			t.Fatalf("version %s must include both up and down files", m.Version)
		}
		if i > 0 && migrations[i-1].Version >= m.Version {
			t.Fatalf("migrations out of order: %s before %s", migrations[i-1].Version, m.Version)
		}
	}
}

func TestListMigrationsRejectsOrphanDown(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("0001_a.up.sql", "SELECT 1;")
	write("0001_a.down.sql", "SELECT 1;")
	write("0002_b.down.sql", "SELECT 1;")
	write("README.md", "ignored")

	_, err := ListMigrations(dir)
	if err == nil || !strings.Contains(err.Error(), "0002_b") {
		t.Fatalf("expected orphan down error, got %v", err)
	}
}
