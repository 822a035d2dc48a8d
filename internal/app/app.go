package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"basket-go/internal/basket"
	"basket-go/internal/config"
	"basket-go/internal/database"
	"basket-go/internal/encryption"
	"basket-go/internal/vault"
)

// metadataName is the vault metadata item holding the database copy.
const metadataName = "db"

// BasketApp is the application layer between the CLI and basket.Service.
// It constructs all dependencies from config, records mutating operations and
// manages the DB lifecycle on Close.
type BasketApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vault     basket.Vault
	encryptor basket.Encryptor
	service   *basket.Service
	op        *Operation
	logFile   *os.File
}

// Options tune a BasketApp beyond what the config file says.
type Options struct {
	// Verbose enables debug logging.
	Verbose bool
}

// NewBasketApp creates a fully wired BasketApp from the given config.
// operation identifies the CLI command being run (e.g. "snapshot take", "restore").
// The caller must call Close when done.
func NewBasketApp(cfg *config.Config, operation string, opts Options) (*BasketApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Snapshots are archived to the first vault; without one they live in the
	// database only.
	var v basket.Vault
	if len(cfg.Vaults) > 0 {
		var err error
		v, err = vault.NewVaultFromConfig(cfg.Vaults[0])
		if err != nil {
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.HostID, nil)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date (run `basket db migrate`): %w", err)
	}

	if err := checkMetadataVersion(db, v, cfg.HostID); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	svc := basket.NewService(db, v, enc, &slogAdapter{l: logger}, basket.RealClock{}, basket.UUIDGenerator{})
	svc.SetBootstrapOwner(cfg.Basket.OwnerType, cfg.Basket.OwnerValue)

	return &BasketApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		encryptor: enc,
		service:   svc,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// checkMetadataVersion refuses to work on a local database that is older than
// the copy another run already uploaded to the vault.
func checkMetadataVersion(db *database.SQLiteDatabase, v basket.Vault, hostID string) error {
	if v == nil {
		return nil
	}
	remoteVersion, err := v.GetMetadataVersion(hostID, metadataName)
	if err != nil {
		return fmt.Errorf("checking remote metadata version: %w", err)
	}
	localMax, err := db.MaxOperationID()
	if err != nil {
		return fmt.Errorf("checking local metadata version: %w", err)
	}
	if remoteVersion > localMax {
		return fmt.Errorf("local database is behind remote (local=%d, remote=%d): restore it from the vault or re-initialize", localMax, remoteVersion)
	}
	return nil
}

// persistOperation saves the operation to the database, giving it an auto-increment ID.
// Only DB-mutating commands call it.
func (a *BasketApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	rec, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = rec.ID
	return nil
}

// ListBaskets returns all basket names.
func (a *BasketApp) ListBaskets() ([]string, error) {
	return a.service.ListBasketNames()
}

// Dump returns the canonical export of a basket without storing it.
func (a *BasketApp) Dump(name string) (string, error) {
	return a.service.Dump(name)
}

// TakeSnapshot exports the basket and stores the result as a new snapshot.
func (a *BasketApp) TakeSnapshot(name string) (*basket.Snapshot, error) {
	if err := a.persistOperation(name); err != nil {
		return nil, err
	}
	snapshot, err := a.service.TakeSnapshot(name)
	return snapshot, a.op.Track(err)
}

// ListSnapshots returns the basket's snapshots, newest first.
func (a *BasketApp) ListSnapshots(name string) ([]*basket.Snapshot, error) {
	return a.service.ListSnapshots(name)
}

// ShowSnapshot returns the latest snapshot of a basket, or the one matching checksumPrefix.
func (a *BasketApp) ShowSnapshot(name, checksumPrefix string) (*basket.Snapshot, error) {
	return a.service.ShowSnapshot(name, checksumPrefix)
}

// Restore applies a document and optionally purges the given types.
func (a *BasketApp) Restore(raw []byte, purgeTypes []string, force bool) (*basket.RestoreResult, error) {
	params := "purge=" + strings.Join(purgeTypes, ",")
	if force {
		params += " force"
	}
	if err := a.persistOperation(params); err != nil {
		return nil, err
	}
	result, err := a.service.Restore(raw, purgeTypes, force)
	return result, a.op.Track(err)
}

// Upload stores a document as a new snapshot of the named basket.
func (a *BasketApp) Upload(name string, raw []byte) (*basket.UploadResult, error) {
	if err := a.persistOperation(name); err != nil {
		return nil, err
	}
	result, err := a.service.Upload(name, raw)
	return result, a.op.Track(err)
}

// FetchSnapshot reads an archived snapshot back from the vault. passphrase is
// only called when the archived copy is encrypted.
func (a *BasketApp) FetchSnapshot(checksumPrefix string, passphrase func() (string, error)) (*basket.Snapshot, []byte, error) {
	snapshot, err := a.service.FindArchivedSnapshot(checksumPrefix)
	if err != nil {
		return nil, nil, err
	}

	var decryptCtx basket.DecryptionContext
	if snapshot.Encrypted {
		if a.encryptor == nil {
			return nil, nil, errors.New("snapshot is encrypted but no encryption is configured")
		}
		pass, err := passphrase()
		if err != nil {
			return nil, nil, fmt.Errorf("reading passphrase: %w", err)
		}
		decryptCtx, err = a.encryptor.Unlock(pass)
		if err != nil {
			return nil, nil, fmt.Errorf("unlocking private key: %w", err)
		}
	}

	content, err := a.service.FetchArchived(snapshot, decryptCtx)
	if err != nil {
		return nil, nil, err
	}
	return snapshot, content, nil
}

// GetHistory returns the most recent operations.
func (a *BasketApp) GetHistory(limit int) ([]*basket.OperationRecord, error) {
	return a.service.GetHistory(limit)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, backs up the DB, and uploads to vault.
// For non-persisted operations: just closes the database.
func (a *BasketApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
		if a.vault != nil {
			if err := a.uploadDatabase(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}

// uploadDatabase copies the database to a temp file and uploads it to the
// vault as metadata, versioned by the operation ID.
func (a *BasketApp) uploadDatabase() error {
	tmpFile, err := os.CreateTemp("", "basket-db-backup-*.db")
	if err != nil {
		return fmt.Errorf("creating temp file for db backup: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	if err := a.db.BackupTo(tmpPath); err != nil {
		return err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("opening db backup for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat db backup: %w", err)
	}

	if err := a.vault.PutMetadata(a.cfg.HostID, metadataName, f, info.Size(), a.op.ID); err != nil {
		return fmt.Errorf("uploading metadata to vault: %w", err)
	}
	return nil
}
