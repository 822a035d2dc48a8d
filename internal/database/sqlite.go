package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"basket-go/internal/basket"
	"basket-go/internal/database/migrations"
	"basket-go/internal/database/sqlc"
)

// SQLiteDatabase implements the basket.Database interface using SQLite.
type SQLiteDatabase struct {
	db      *sql.DB
	tx      *sql.Tx // set on transaction-scoped copies
	queries *sqlc.Queries
	clock   basket.Clock
	path    string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
// A nil clock uses the wall clock.
func NewSQLiteDatabase(path string, clock basket.Clock) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	s := NewSQLiteDatabaseFromDB(db, clock)
	s.path = path
	return s, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB, clock basket.Clock) *SQLiteDatabase {
	if clock == nil {
		clock = basket.RealClock{}
	}
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
	}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database lives and dies with its connection,
	// and PRAGMAs are per connection.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// WithTx runs fn inside a transaction. Nested calls reuse the open transaction.
func (s *SQLiteDatabase) WithTx(fn func(tx basket.Database) error) error {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	scoped := &SQLiteDatabase{
		db:      s.db,
		tx:      tx,
		queries: s.queries.WithTx(tx),
		clock:   s.clock,
		path:    s.path,
	}
	if err := fn(scoped); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Configuration objects

func (s *SQLiteDatabase) ListObjectNames(target basket.Target) ([]string, error) {
	ctx := context.Background()

	var names []string
	var err error
	if target.ObjectType == "" {
		names, err = s.queries.ListConfigObjectNames(ctx, target.Class)
	} else {
		names, err = s.queries.ListConfigObjectNamesByType(ctx, sqlc.ListConfigObjectNamesByTypeParams{
			Class:      target.Class,
			ObjectType: target.ObjectType,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", target, err)
	}
	return names, nil
}

func (s *SQLiteDatabase) GetObject(target basket.Target, name string) (json.RawMessage, error) {
	obj, err := s.findObject(target, name)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(obj.State), nil
}

// findObject loads an object and applies the target's object_type filter.
func (s *SQLiteDatabase) findObject(target basket.Target, name string) (*sqlc.ConfigObject, error) {
	obj, err := s.queries.GetConfigObject(context.Background(), sqlc.GetConfigObjectParams{
		Class:      target.Class,
		ObjectName: name,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s %q", basket.ErrNotFound, target, name)
		}
		return nil, fmt.Errorf("loading %s %q: %w", target, name, err)
	}
	if target.ObjectType != "" && obj.ObjectType != target.ObjectType {
		return nil, fmt.Errorf("%w: %s %q", basket.ErrNotFound, target, name)
	}
	return &obj, nil
}

func (s *SQLiteDatabase) UpsertObject(target basket.Target, name string, state json.RawMessage) error {
	if name == "" {
		return fmt.Errorf("%w: %s object without a name", basket.ErrValidation, target)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(state, &fields); err != nil || fields == nil {
		return fmt.Errorf("%w: %s %q: payload must be a JSON object", basket.ErrValidation, target, name)
	}

	objectType := target.ObjectType
	if objectType == "" {
		// Unfiltered classes keep whatever object_type the payload carries.
		if raw, ok := fields["object_type"]; ok {
			if err := json.Unmarshal(raw, &objectType); err != nil {
				return fmt.Errorf("%w: %s %q: object_type must be a string", basket.ErrValidation, target, name)
			}
		}
	} else if err := s.checkObjectType(target, name); err != nil {
		return err
	}

	err := s.queries.UpsertConfigObject(context.Background(), sqlc.UpsertConfigObjectParams{
		Class:      target.Class,
		ObjectName: name,
		ObjectType: objectType,
		State:      string(state),
		UpdatedAt:  s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("storing %s %q: %w", target, name, err)
	}
	return nil
}

// checkObjectType refuses to overwrite a same-named object of another type
// sharing target's class.
func (s *SQLiteDatabase) checkObjectType(target basket.Target, name string) error {
	existing, err := s.queries.GetConfigObject(context.Background(), sqlc.GetConfigObjectParams{
		Class:      target.Class,
		ObjectName: name,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s %q: %w", target, name, err)
	}
	if existing.ObjectType != target.ObjectType {
		return fmt.Errorf("%w: %s %q: name is taken by a %s object of type %q",
			basket.ErrValidation, target, name, target.Class, existing.ObjectType)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteObject(target basket.Target, name string) error {
	if _, err := s.findObject(target, name); err != nil {
		return err
	}

	n, err := s.queries.DeleteConfigObject(context.Background(), sqlc.DeleteConfigObjectParams{
		Class:      target.Class,
		ObjectName: name,
	})
	if err != nil {
		return fmt.Errorf("deleting %s %q: %w", target, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %q", basket.ErrNotFound, target, name)
	}
	return nil
}

// Basket operations

func (s *SQLiteDatabase) FindBasketByName(name string) (*basket.Basket, error) {
	row, err := s.queries.GetBasketByName(context.Background(), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding basket by name: %w", err)
	}
	return toBasket(row)
}

func (s *SQLiteDatabase) CreateBasket(b *basket.Basket) error {
	objects, err := encodeCoverage(b.Objects)
	if err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.clock.Now()
	}

	_, err = s.queries.InsertBasket(context.Background(), sqlc.InsertBasketParams{
		ID:         b.ID,
		BasketName: b.Name,
		OwnerType:  b.OwnerType,
		OwnerValue: b.OwnerValue,
		Objects:    objects,
		CreatedAt:  b.CreatedAt,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: basket %q already exists", basket.ErrValidation, b.Name)
		}
		return fmt.Errorf("inserting basket: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) UpdateBasket(b *basket.Basket) error {
	objects, err := encodeCoverage(b.Objects)
	if err != nil {
		return err
	}
	err = s.queries.UpdateBasket(context.Background(), sqlc.UpdateBasketParams{
		OwnerType:  b.OwnerType,
		OwnerValue: b.OwnerValue,
		Objects:    objects,
		ID:         b.ID,
	})
	if err != nil {
		return fmt.Errorf("updating basket: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteBasket(b *basket.Basket) error {
	if err := s.queries.DeleteBasketByID(context.Background(), b.ID); err != nil {
		return fmt.Errorf("deleting basket: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListBasketNames() ([]string, error) {
	names, err := s.queries.ListBasketNames(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing basket names: %w", err)
	}
	return names, nil
}

func toBasket(row sqlc.Basket) (*basket.Basket, error) {
	objects := basket.Coverage{}
	if row.Objects != "" {
		if err := json.Unmarshal([]byte(row.Objects), &objects); err != nil {
			return nil, fmt.Errorf("decoding coverage of basket %q: %w", row.BasketName, err)
		}
	}
	return &basket.Basket{
		ID:         row.ID,
		Name:       row.BasketName,
		OwnerType:  row.OwnerType,
		OwnerValue: row.OwnerValue,
		Objects:    objects,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func encodeCoverage(c basket.Coverage) (string, error) {
	if c == nil {
		c = basket.Coverage{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding basket coverage: %w", err)
	}
	return string(data), nil
}

// Snapshot operations

func (s *SQLiteDatabase) CreateSnapshot(snapshot *basket.Snapshot) error {
	err := s.queries.InsertBasketSnapshot(context.Background(), sqlc.InsertBasketSnapshotParams{
		ID:              snapshot.ID,
		BasketID:        snapshot.BasketID,
		ContentChecksum: snapshot.Checksum[:],
		Content:         string(snapshot.Content),
		TsCreate:        snapshot.CreatedAt.UnixMilli(),
		Encrypted:       snapshot.Encrypted,
	})
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindSnapshotsForBasket(b *basket.Basket) ([]*basket.Snapshot, error) {
	rows, err := s.queries.GetBasketSnapshotsByBasketID(context.Background(), b.ID)
	if err != nil {
		return nil, fmt.Errorf("finding snapshots for basket: %w", err)
	}

	result := make([]*basket.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := toSnapshot(sqlc.GetBasketSnapshotsByChecksumPrefixRow(row))
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, nil
}

func (s *SQLiteDatabase) FindSnapshotsByChecksumPrefix(prefix string) ([]*basket.Snapshot, error) {
	prefix = strings.ToLower(prefix)
	if prefix == "" || strings.Trim(prefix, "0123456789abcdef") != "" {
		return nil, fmt.Errorf("%w: %q is not a hex checksum prefix", basket.ErrValidation, prefix)
	}

	rows, err := s.queries.GetBasketSnapshotsByChecksumPrefix(context.Background(), prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("finding snapshots by checksum: %w", err)
	}

	result := make([]*basket.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := toSnapshot(row)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, nil
}

func toSnapshot(row sqlc.GetBasketSnapshotsByChecksumPrefixRow) (*basket.Snapshot, error) {
	var checksum basket.Checksum
	if len(row.ContentChecksum) != len(checksum) {
		return nil, fmt.Errorf("snapshot %s has a %d byte checksum", row.ID, len(row.ContentChecksum))
	}
	copy(checksum[:], row.ContentChecksum)

	return &basket.Snapshot{
		ID:         row.ID,
		BasketID:   row.BasketID,
		BasketName: row.BasketName,
		Checksum:   checksum,
		Content:    []byte(row.Content),
		CreatedAt:  time.UnixMilli(row.TsCreate).UTC(),
		Encrypted:  row.Encrypted,
	}, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*basket.OperationRecord, error) {
	op, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		StartedAt:  s.clock.Now(),
		Operation:  operation,
		Parameters: parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return toOperationRecord(op), nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	err := s.queries.UpdateOperationFinished(context.Background(), sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: s.clock.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*basket.OperationRecord, error) {
	ops, err := s.queries.GetOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*basket.OperationRecord, len(ops))
	for i := range ops {
		result[i] = toOperationRecord(ops[i])
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	id, err := s.queries.GetMaxOperationID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

func toOperationRecord(op sqlc.Operation) *basket.OperationRecord {
	rec := &basket.OperationRecord{
		ID:         op.ID,
		Operation:  op.Operation,
		Parameters: op.Parameters,
		StartedAt:  op.StartedAt,
		Status:     op.Status,
	}
	if op.FinishedAt.Valid {
		finished := op.FinishedAt.Time
		rec.FinishedAt = &finished
	}
	return rec
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// Migrate applies pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection. Transaction-scoped copies do not own it.
func (s *SQLiteDatabase) Close() error {
	if s.tx != nil {
		return nil
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// Compile-time check that SQLiteDatabase implements basket.Database interface
var _ basket.Database = (*SQLiteDatabase)(nil)
