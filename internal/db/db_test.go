package db

import (
	"path/filepath"
	"testing"
)

func TestMigrateIdempotent(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "ataa.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	for i := range 2 {
		if err := Migrate(database); err != nil {
			t.Fatalf("Migrate run %d: %v", i+1, err)
		}
	}

	var mode string
	if err := database.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("reading journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected wal journal mode, got %q", mode)
	}

	for _, table := range []string{"users", "beneficiaries", "items", "item_images", "distributions", "distribution_lines", "settings", "revoked_tokens"} {
		var name string
		err := database.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	database := NewTestDB(t)

	var on int
	if err := database.QueryRow(`PRAGMA foreign_keys`).Scan(&on); err != nil {
		t.Fatalf("reading foreign_keys: %v", err)
	}
	if on != 1 {
		t.Errorf("expected foreign keys on, got %d", on)
	}
}

func TestDSN(t *testing.T) {
	got := dsn("data.db")
	want := "data.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	if got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
	if got := dsn("file:x.db?mode=rwc"); got[:len("file:x.db?mode=rwc&")] != "file:x.db?mode=rwc&" {
		t.Errorf("expected existing query to be extended, got %q", got)
	}
}
