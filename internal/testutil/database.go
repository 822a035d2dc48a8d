package testutil

import (
	"encoding/json"
	"testing"

	"basket-go/internal/basket"
	"basket-go/internal/database"
)

// NewTestDatabase creates a new in-memory SQLite database with schema applied.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	sqlDB, err := database.OpenConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	if _, err := sqlDB.Exec(database.Schema); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to apply schema: %v", err)
	}

	db := database.NewSQLiteDatabaseFromDB(sqlDB, FixedClock())

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SeedObjects stores live objects of the given type, keyed by name. Payloads
// are JSON object literals.
func SeedObjects(t *testing.T, repo basket.Repository, typ string, objects map[string]string) {
	t.Helper()

	target, err := basket.TargetForType(typ)
	if err != nil {
		t.Fatalf("seeding %s: %v", typ, err)
	}
	for name, payload := range objects {
		if err := repo.UpsertObject(target, name, json.RawMessage(payload)); err != nil {
			t.Fatalf("seeding %s %q: %v", typ, name, err)
		}
	}
}

// ObjectNames returns the live object names of the given type.
func ObjectNames(t *testing.T, repo basket.Repository, typ string) []string {
	t.Helper()

	target, err := basket.TargetForType(typ)
	if err != nil {
		t.Fatalf("listing %s: %v", typ, err)
	}
	names, err := repo.ListObjectNames(target)
	if err != nil {
		t.Fatalf("listing %s: %v", typ, err)
	}
	return names
}
