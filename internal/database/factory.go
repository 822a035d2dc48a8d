package database

import (
	"fmt"
	"path/filepath"

	"basket-go/internal/basket"
	"basket-go/internal/config"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
// In-memory databases are migrated on open; file databases are checked by the caller.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, clock basket.Clock) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		dbPath := filepath.Join(cfg.DataDir, hostID+".db")
		return NewSQLiteDatabase(dbPath, clock)
	case "memory":
		db, err := NewSQLiteDatabase(":memory:", clock)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
