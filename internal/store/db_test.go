package store

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
	if db.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want %q", db.Driver, DriverSQLite)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/nested/mnemo.db"
	db, err := Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestSchemaVersion(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("SchemaVersion = %d, want %d", v, len(migrations))
	}
}

func TestTablesExist(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	tables := []string{
		"schema_versions", "users", "labels", "user_groups", "group_memberships",
		"notes", "note_labels", "note_groups", "exercises", "exercise_labels",
		"experiences", "exercise_filters",
	}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMembershipRoleConstraint(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO users (id, email, name, password_hash, created_at, updated_at)
		VALUES ('u1', 'a@example.com', 'A', 'x', 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	_, err = db.Exec(`
		INSERT INTO user_groups (id, name, created_at, updated_at) VALUES ('g1', 'G', 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("insert group: %v", err)
	}

	// Invalid role
	_, err = db.Exec(`
		INSERT INTO group_memberships (group_id, user_id, role, created_at)
		VALUES ('g1', 'u1', 'superuser', 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid role, got nil")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`
		INSERT INTO notes (id, creator_id, title, content, created_at, updated_at)
		VALUES ('n1', 'nobody', 'T', 'C', 1000, 1000)
	`)
	if err == nil {
		t.Error("expected foreign key error for unknown creator, got nil")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_versions").Scan(&count); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("schema_versions rows = %d, want %d", count, len(migrations))
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{Driver: DriverPostgres}
	got := pg.rebind("SELECT * FROM t WHERE a = ? AND b IN (?, ?)")
	want := "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"
	if got != want {
		t.Errorf("rebind = %q, want %q", got, want)
	}

	lite := &DB{Driver: DriverSQLite}
	if q := lite.rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite rebind changed query: %q", q)
	}
}

func TestPlaceholders(t *testing.T) {
	cases := map[int]string{0: "", 1: "?", 3: "?, ?, ?"}
	for n, want := range cases {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestRedactDSN(t *testing.T) {
	got := redactDSN("postgres://mnemo:secret@db:5432/mnemo?sslmode=disable")
	want := "postgres://***@db:5432/mnemo?sslmode=disable"
	if got != want {
		t.Errorf("redactDSN = %q, want %q", got, want)
	}
	if got := redactDSN("host=db user=mnemo"); got != "host=db user=mnemo" {
		t.Errorf("redactDSN changed keyword DSN: %q", got)
	}
}
