package database

import (
	"path/filepath"
	"testing"

	"basket-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	dataDir := t.TempDir()

	tests := []struct {
		name     string
		cfg      config.DatabaseConfig
		wantErr  bool
		wantPath string
		migrated bool
	}{
		{name: "memory", cfg: config.DatabaseConfig{Type: "memory"}, wantPath: ":memory:", migrated: true},
		{name: "sqlite file named after host", cfg: config.DatabaseConfig{Type: "sqlite", DataDir: dataDir}, wantPath: filepath.Join(dataDir, "host-1.db")},
		{name: "sqlite without data_dir", cfg: config.DatabaseConfig{Type: "sqlite"}, wantErr: true},
		{name: "unknown type", cfg: config.DatabaseConfig{Type: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDatabaseFromConfig(tt.cfg, "host-1", nil)
			if tt.wantErr {
				if err == nil {
					got.Close()
					t.Fatal("NewDatabaseFromConfig() expected error, got nil")
				}
				if got != nil {
					t.Error("NewDatabaseFromConfig() should return nil on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDatabaseFromConfig() error = %v", err)
			}
			defer got.Close()

			if got.Path() != tt.wantPath {
				t.Errorf("Path() = %q, want %q", got.Path(), tt.wantPath)
			}

			migErr := got.CheckMigrations()
			if tt.migrated && migErr != nil {
				t.Errorf("CheckMigrations() error = %v", migErr)
			}
			if !tt.migrated && migErr == nil {
				t.Error("file database should need migration before first use")
			}
		})
	}
}
