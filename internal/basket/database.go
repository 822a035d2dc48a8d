package basket

import (
	"encoding/json"
	"time"
)

// Repository is the seam to the live configuration objects. Objects are addressed
// by a Target (class plus optional object_type filter) and a name; payloads are
// JSON objects.
type Repository interface {
	// ListObjectNames returns the names of all objects matching target, sorted.
	ListObjectNames(target Target) ([]string, error)

	// GetObject returns the payload of an object. Wraps ErrNotFound if absent.
	GetObject(target Target, name string) (json.RawMessage, error)

	// UpsertObject creates or replaces an object. Wraps ErrValidation if the
	// payload is rejected.
	UpsertObject(target Target, name string, state json.RawMessage) error

	// DeleteObject removes an object. Wraps ErrNotFound if absent.
	DeleteObject(target Target, name string) error
}

// Database provides basket, snapshot and operation storage plus access to the
// configuration objects through the Repository seam.
type Database interface {
	Repository

	// Basket operations

	// FindBasketByName returns the basket with the given name, or nil if none exists.
	FindBasketByName(name string) (*Basket, error)

	// CreateBasket inserts a new basket. Wraps ErrValidation if the name is taken.
	CreateBasket(basket *Basket) error

	// UpdateBasket stores the owner and coverage of an existing basket.
	UpdateBasket(basket *Basket) error

	// DeleteBasket removes a basket and its snapshots.
	DeleteBasket(basket *Basket) error

	// ListBasketNames returns all basket names in lexicographic order.
	ListBasketNames() ([]string, error)

	// Snapshot operations

	// CreateSnapshot appends a snapshot record. Existing records are never touched.
	CreateSnapshot(snapshot *Snapshot) error

	// FindSnapshotsForBasket returns a basket's snapshots, oldest first.
	FindSnapshotsForBasket(basket *Basket) ([]*Snapshot, error)

	// FindSnapshotsByChecksumPrefix returns snapshots of any basket whose hex
	// checksum starts with prefix, oldest first.
	FindSnapshotsByChecksumPrefix(prefix string) ([]*Snapshot, error)

	// Operation tracking

	// CreateOperation records the start of a mutating CLI operation.
	CreateOperation(operation string, parameters string) (*OperationRecord, error)

	// FinishOperation records the end state of an operation.
	FinishOperation(id int64, status string) error

	// ListOperations returns the most recent operations, newest first.
	ListOperations(limit int) ([]*OperationRecord, error)

	// MaxOperationID returns the highest operation id, 0 if none.
	MaxOperationID() (int64, error)

	// WithTx runs fn against a transaction-scoped Database. The transaction commits
	// when fn returns nil and rolls back otherwise. Nested calls join the outer
	// transaction.
	WithTx(fn func(tx Database) error) error

	// CheckMigrations verifies the schema is current.
	CheckMigrations() error

	// BackupTo writes a consistent copy of the database to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}

// OperationRecord is a persisted CLI operation.
type OperationRecord struct {
	ID         int64
	Operation  string
	Parameters string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
}
