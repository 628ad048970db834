package database

import (
	"testing"
	"testing/fstest"
)

func TestSplitSQLStatements(t *testing.T) {
	sqlText := `-- customers
CREATE TABLE a (id INT);

  -- indented comment
CREATE INDEX a_id ON a (id);
;
`
	got := splitSQLStatements(sqlText)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INT)" {
		t.Fatalf("unexpected first statement: %q", got[0])
	}
}

func TestPendingSkipsAppliedAndNonMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_orders.up.sql": {Data: []byte("SELECT 2")},
		"m/0001_init.up.sql":   {Data: []byte("SELECT 1")},
		"m/0001_init.down.sql": {Data: []byte("SELECT 0")},
		"m/README.md":          {Data: []byte("notes")},
	}

	all, err := Pending(fsys, "m", nil)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(all) != 2 || all[0] != "0001_init.up.sql" || all[1] != "0002_orders.up.sql" {
		t.Fatalf("unexpected pending list: %v", all)
	}

	rest, err := Pending(fsys, "m", map[string]bool{"0001_init": true})
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(rest) != 1 || rest[0] != "0002_orders.up.sql" {
		t.Fatalf("unexpected pending list: %v", rest)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := Pending(MigrationsFS(), MigrationsDir, nil)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("expected embedded migrations")
	}
}
