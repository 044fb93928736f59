package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/eventhub-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestCartsMigrationGuardsStockAndOpenCarts(t *testing.T) {
	carts := readMigration(t, "create_carts_tables")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"CREATE TABLE IF NOT EXISTS cart_items",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_open_per_user",
		"WHERE status IN ('active', 'pending_payment')",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_cart_merchandise",
		"CHECK (quantity > 0)",
	} {
		if !strings.Contains(carts, sub) {
			t.Errorf("carts migration missing %q", sub)
		}
	}

	merch := readMigration(t, "create_merchandise_table")
	if !strings.Contains(merch, "CHECK (stock >= 0)") {
		t.Errorf("merchandise migration must forbid negative stock")
	}
}

func TestEventsMigrationChecksWindow(t *testing.T) {
	events := readMigration(t, "create_events_table")
	if !strings.Contains(events, "ends_at IS NULL OR ends_at >= starts_at") {
		t.Errorf("events migration missing window check")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Event Capacity!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_event_capacity.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}
