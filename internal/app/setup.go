package app

import (
	"fmt"
	"os"
	"path/filepath"

	"basket-go/internal/config"
	"basket-go/internal/database"
	"basket-go/internal/encryption"
)

// DefaultConfig returns the config written by `basket config init`: a sqlite
// database and a filesystem vault under the base directory, age encryption.
func DefaultConfig(hostID string, defaults *Defaults) *config.Config {
	cfg := config.NewConfig(hostID, defaults.BaseDir)
	cfg.LogDir = defaults.LogDir
	cfg.Database = config.DatabaseConfig{
		Type:    "sqlite",
		DataDir: defaults.DataDir,
	}
	cfg.Vaults = []config.VaultConfig{{
		Type:        "filesystem",
		Name:        "local",
		FSVaultRoot: filepath.Join(defaults.BaseDir, "vault"),
	}}
	return cfg
}

// Initialize writes cfg to configPath, creates and migrates the database and,
// for age encryption, generates the key pair. passphrase is only called when
// keys are generated.
func Initialize(configPath string, cfg *config.Config, passphrase func() (string, error)) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.Init(configPath, cfg); err != nil {
		return err
	}

	if err := Migrate(cfg); err != nil {
		return err
	}

	if cfg.Encryption.Type != "age" {
		return nil
	}
	enc := encryption.NewAgeEncryptor(cfg.Encryption)
	if enc.IsConfigured() {
		return nil
	}
	pass, err := passphrase()
	if err != nil {
		return fmt.Errorf("reading passphrase: %w", err)
	}
	if err := enc.Setup(pass); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	return nil
}

// Migrate brings the configured database schema up to date, creating the
// database when it does not exist yet.
func Migrate(cfg *config.Config) error {
	if cfg.Database.Type == "sqlite" && cfg.Database.DataDir != "" {
		if err := os.MkdirAll(cfg.Database.DataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, nil)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}
