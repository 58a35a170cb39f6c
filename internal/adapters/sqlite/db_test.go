package sqlite

import (
	"context"
	"strings"
	"testing"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 1 {
		t.Fatalf("schema version: want 1, got %d", v)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	var n int
	if err := db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("migrations recorded twice: %d", n)
	}
}

func TestUpSection(t *testing.T) {
	text := "-- +migrate Up\nCREATE TABLE a (id INTEGER);\n\n-- +migrate Down\nDROP TABLE a;\n"
	up := upSection(text)
	if !strings.Contains(up, "CREATE TABLE a") || strings.Contains(up, "DROP TABLE") {
		t.Fatalf("unexpected up section: %q", up)
	}
	if got := upSection("-- no markers\nSELECT 1;"); got != "" {
		t.Fatalf("expected empty up section, got %q", got)
	}
}
