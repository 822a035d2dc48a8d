package migrations

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	err := MigrateUp(db)
	if err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Verify tables were created
	tables := []string{"baskets", "basket_snapshots", "config_objects", "operations", "schema_migrations"}
	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s was not created: %v", table, err)
		}
	}
}

func TestCheckDBMigrationStatus_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Fresh database should need migration
	err := CheckDBMigrationStatus(db)
	if err == nil {
		t.Error("CheckDBMigrationStatus() expected error for fresh database, got nil")
	}

	// Error should mention needing migration
	if err.Error() != "database has no schema version (needs migration)" {
		t.Errorf("CheckDBMigrationStatus() error = %q, want error about needing migration", err.Error())
	}
}

func TestCheckDBMigrationStatus_AfterMigration(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate up
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Status should be OK now
	err := CheckDBMigrationStatus(db)
	if err != nil {
		t.Errorf("CheckDBMigrationStatus() after migration returned error: %v", err)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Run migration twice
	if err := MigrateUp(db); err != nil {
		t.Fatalf("First MigrateUp() failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Errorf("Second MigrateUp() failed: %v (should be idempotent)", err)
	}

	// Status should still be OK
	if err := CheckDBMigrationStatus(db); err != nil {
		t.Errorf("CheckDBMigrationStatus() after double migration returned error: %v", err)
	}
}

func TestForeignKeyConstraints(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	// Migrate
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Try to insert a snapshot of a non-existent basket (should fail due to FK constraint)
	_, err := db.Exec(`
		INSERT INTO basket_snapshots (id, basket_id, content_checksum, content, ts_create)
		VALUES ('snap-1', 'non-existent-basket', x'00', '{}', 0)
	`)

	if err == nil {
		t.Error("Expected foreign key constraint violation, but insert succeeded")
	}
}

func TestSchema_SnapshotsCascadeWithBasket(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec(`INSERT INTO baskets (id, basket_name, owner_type, owner_value, objects, created_at)
		VALUES ('b-1', 'web', 'user', 'admin', '{}', datetime('now'))`)
	if err != nil {
		t.Fatalf("Failed to insert basket: %v", err)
	}
	_, err = db.Exec(`INSERT INTO basket_snapshots (id, basket_id, content_checksum, content, ts_create)
		VALUES ('snap-1', 'b-1', x'00', '{}', 0)`)
	if err != nil {
		t.Fatalf("Failed to insert snapshot: %v", err)
	}

	if _, err := db.Exec("DELETE FROM baskets WHERE id = 'b-1'"); err != nil {
		t.Fatalf("Failed to delete basket: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM basket_snapshots").Scan(&count); err != nil {
		t.Fatalf("Failed to count snapshots: %v", err)
	}
	if count != 0 {
		t.Errorf("snapshot count after basket delete = %d, want 0", count)
	}
}

func TestSchema_BasketNameUnique(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	// Insert first basket
	_, err := db.Exec(`INSERT INTO baskets (id, basket_name, owner_type, owner_value, objects, created_at)
		VALUES ('b-1', 'web', 'user', 'admin', '{}', datetime('now'))`)
	if err != nil {
		t.Fatalf("Failed to insert first basket: %v", err)
	}

	// Try to insert duplicate name (should fail due to UNIQUE constraint)
	_, err = db.Exec(`INSERT INTO baskets (id, basket_name, owner_type, owner_value, objects, created_at)
		VALUES ('b-2', 'web', 'user', 'admin', '{}', datetime('now'))`)
	if err == nil {
		t.Error("Expected unique constraint violation for duplicate basket name, but insert succeeded")
	}
}

func TestSchema_OperationsDefaults(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	_, err := db.Exec("INSERT INTO operations (started_at, operation) VALUES (datetime('now'), 'restore')")
	if err != nil {
		t.Fatalf("Failed to insert operation: %v", err)
	}

	var status, parameters string
	if err := db.QueryRow("SELECT status, parameters FROM operations").Scan(&status, &parameters); err != nil {
		t.Fatalf("Failed to read operation: %v", err)
	}
	if status != "running" {
		t.Errorf("status = %q, want running", status)
	}
	if parameters != "" {
		t.Errorf("parameters = %q, want empty", parameters)
	}
}

// openTestDB opens an in-memory SQLite database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	return db
}

func TestLatestVersion(t *testing.T) {
	latest, err := LatestVersion()
	if err != nil {
		t.Fatalf("LatestVersion() error = %v", err)
	}
	if latest != 2 {
		t.Errorf("LatestVersion() = %d, want 2", latest)
	}
}

func TestInspect(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()

	st, err := Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() on fresh database error = %v", err)
	}
	if st.Current != 0 || st.UpToDate() {
		t.Errorf("Inspect() on fresh database = %+v", st)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	st, err = Inspect(db)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if !st.UpToDate() || st.Current != st.Latest {
		t.Errorf("Inspect() after migration = %+v", st)
	}
}
