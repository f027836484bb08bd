package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyMigrationsRunsInOrderOnce(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_column.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
ALTER TABLE teams ADD COLUMN city TEXT;
-- +migrate Down
`)},
		"001_init.sql": &fstest.MapFile{Data: []byte(`-- +migrate Up
CREATE TABLE teams (id TEXT PRIMARY KEY, name TEXT NOT NULL);
-- +migrate Down
DROP TABLE teams;
`)},
	}

	sqlDB := openTestDB(t)
	if err := ApplyMigrations(sqlDB, fsys, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	// Re-running must be a no-op.
	if err := ApplyMigrations(sqlDB, fsys, ""); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec(`INSERT INTO teams (id, name, city) VALUES ('NYA', 'Yankees', 'New York')`); err != nil {
		t.Fatalf("expected both migrations applied: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count applied: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", applied)
	}
}

func TestExtractUpMigration(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"no markers", "CREATE TABLE x (id TEXT);", "CREATE TABLE x (id TEXT);"},
		{"up only", "-- +migrate Up\nCREATE TABLE y (id TEXT);", "\nCREATE TABLE y (id TEXT);"},
		{"up and down", "-- +migrate Up\nSELECT 1;\n-- +migrate Down\nSELECT 2;", "\nSELECT 1;\n"},
	}
	for _, tc := range cases {
		if got := ExtractUpMigration(tc.content); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	sqlDB := openTestDB(t)
	if _, err := sqlDB.Exec(`CREATE TABLE dup (id TEXT)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := sqlDB.Exec(`CREATE TABLE dup (id TEXT)`)
	if err == nil {
		t.Fatal("expected duplicate table error")
	}
	if !IsAlreadyExistsError(err) {
		t.Fatalf("expected already-exists classification, got %v", err)
	}
	if IsAlreadyExistsError(nil) {
		t.Fatal("nil error must not classify as already-exists")
	}
}
