package basket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	defaultOwnerType  = "user"
	defaultOwnerValue = "basket"
)

// Service is the orchestration layer behind the CLI: listing, dumping,
// snapshotting, restoring and uploading baskets.
type Service struct {
	database   Database
	vault      Vault
	encryptor  Encryptor
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	ownerType  string
	ownerValue string
}

// NewService creates a Service. vault and encryptor may be nil: snapshots are then
// not archived, or archived in plaintext.
func NewService(database Database, vault Vault, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &Service{
		database:   database,
		vault:      vault,
		encryptor:  encryptor,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		ownerType:  defaultOwnerType,
		ownerValue: defaultOwnerValue,
	}
}

// SetBootstrapOwner sets the owner given to baskets created implicitly by Upload.
func (s *Service) SetBootstrapOwner(ownerType, ownerValue string) {
	if ownerType != "" {
		s.ownerType = ownerType
	}
	if ownerValue != "" {
		s.ownerValue = ownerValue
	}
}

// engines bundles the components bound to one (possibly transaction-scoped) database.
type engines struct {
	registry *Registry
	repo     Repository
	snapshot *SnapshotEngine
	restore  *RestoreEngine
	purge    *PurgeEngine
}

func (s *Service) bind(db Database) *engines {
	registry := NewRegistry(db, s.clock, s.idgen)
	repo := NewObjectRepository(db, registry)
	return &engines{
		registry: registry,
		repo:     repo,
		snapshot: &SnapshotEngine{
			database:  db,
			repo:      repo,
			registry:  registry,
			vault:     s.vault,
			encryptor: s.encryptor,
			logger:    s.logger,
			clock:     s.clock,
			idgen:     s.idgen,
		},
		restore: NewRestoreEngine(repo, s.logger),
		purge:   NewPurgeEngine(repo, s.logger),
	}
}

// ListBasketNames returns all basket names in lexicographic order.
func (s *Service) ListBasketNames() ([]string, error) {
	return s.bind(s.database).registry.ListAll()
}

// Dump exports the basket's live objects as canonical JSON without storing anything.
func (s *Service) Dump(name string) (string, error) {
	e := s.bind(s.database)
	b, err := e.registry.Load(name)
	if err != nil {
		return "", err
	}
	snapshot, err := e.snapshot.CreateForBasket(b)
	if err != nil {
		return "", err
	}
	return string(snapshot.Content), nil
}

// TakeSnapshot exports the basket's live objects and stores the result.
func (s *Service) TakeSnapshot(name string) (*Snapshot, error) {
	var snapshot *Snapshot
	err := s.database.WithTx(func(tx Database) error {
		e := s.bind(tx)
		b, err := e.registry.Load(name)
		if err != nil {
			return err
		}
		snapshot, err = e.snapshot.CreateForBasket(b)
		if err != nil {
			return err
		}
		return e.snapshot.Store(snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RestoreResult summarizes a restore.
type RestoreResult struct {
	Restored int
	Purged   map[string][]string
}

// Restore applies a document to the live objects and then, when purgeTypes is
// non-empty, purges objects of those types that the document does not ship.
// Purge types are checked before the document is even parsed. Restore and purge
// share one transaction.
func (s *Service) Restore(raw []byte, purgeTypes []string, force bool) (*RestoreResult, error) {
	if len(purgeTypes) > 0 {
		if err := AssertEligibleForPurge(purgeTypes); err != nil {
			return nil, err
		}
	}

	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	err = s.database.WithTx(func(tx Database) error {
		e := s.bind(tx)
		n, err := e.restore.Restore(doc)
		if err != nil {
			return err
		}
		result.Restored = n

		if len(purgeTypes) == 0 {
			return nil
		}
		purged, err := e.purge.PurgeTypes(doc, purgeTypes, force)
		if err != nil {
			return err
		}
		result.Purged = purged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UploadResult reports what Upload did.
type UploadResult struct {
	Created  bool
	Snapshot *Snapshot
}

// Upload stores a document as a new snapshot of the named basket, creating the
// basket first when it does not exist. The basket definition is taken from the
// document's own Basket entry for that name when present, otherwise every type is
// covered. Trailing whitespace is ignored. A new snapshot is always stored, even
// when an identical one exists.
func (s *Service) Upload(name string, raw []byte) (*UploadResult, error) {
	raw = bytes.TrimRight(raw, " \t\r\n")
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	if err := validateDocumentTypes(doc); err != nil {
		return nil, err
	}

	definition, err := s.definitionFor(name, doc)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{}
	err = s.database.WithTx(func(tx Database) error {
		e := s.bind(tx)
		created, err := e.ensureBasketExists(name, definition)
		if err != nil {
			return err
		}
		result.Created = created
		if created {
			s.logger.Info("basket created", "basket", name)
		}

		b, err := e.registry.Load(name)
		if err != nil {
			return err
		}
		snapshot, err := e.snapshot.ForBasketFromDocument(b, doc)
		if err != nil {
			return err
		}
		if err := e.snapshot.Store(snapshot); err != nil {
			return err
		}
		result.Snapshot = snapshot
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EnsureBasketExists creates the named basket with the fallback coverage when it
// does not exist yet. It reports whether the basket was created.
func (s *Service) EnsureBasketExists(name string, fallback Coverage) (bool, error) {
	definition, err := s.bootstrapPayload(name, fallback)
	if err != nil {
		return false, err
	}
	var created bool
	err = s.database.WithTx(func(tx Database) error {
		var err error
		created, err = s.bind(tx).ensureBasketExists(name, definition)
		return err
	})
	return created, err
}

// ensureBasketExists restores a basket-defining document when name is unknown.
func (e *engines) ensureBasketExists(name string, definition json.RawMessage) (bool, error) {
	_, err := e.registry.Load(name)
	if err == nil {
		return false, nil
	}
	if !isNotFound(err) {
		return false, err
	}

	doc := Document{BasketType: {name: definition}}
	if _, err := e.restore.Restore(doc); err != nil {
		return false, fmt.Errorf("creating basket %q: %w", name, err)
	}
	return true, nil
}

// definitionFor picks the basket definition an upload bootstraps from.
func (s *Service) definitionFor(name string, doc Document) (json.RawMessage, error) {
	if payload, ok := doc[BasketType][name]; ok {
		var p basketPayload
		if err := json.Unmarshal(payload, &p); err == nil && p.BasketName != "" {
			return payload, nil
		}
	}
	fallback := make(Coverage)
	for _, typ := range DefaultCoverageTypes() {
		fallback[typ] = AllObjects()
	}
	return s.bootstrapPayload(name, fallback)
}

func (s *Service) bootstrapPayload(name string, objects Coverage) (json.RawMessage, error) {
	if objects == nil {
		objects = Coverage{}
	}
	payload, err := json.Marshal(basketPayload{
		BasketName: name,
		OwnerType:  s.ownerType,
		OwnerValue: s.ownerValue,
		Objects:    objects,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding basket definition: %w", err)
	}
	return payload, nil
}

// ListSnapshots returns the basket's snapshots, newest first.
func (s *Service) ListSnapshots(name string) ([]*Snapshot, error) {
	b, err := s.bind(s.database).registry.Load(name)
	if err != nil {
		return nil, err
	}
	snapshots, err := s.database.FindSnapshotsForBasket(b)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	// Reverse to newest first
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}
	return snapshots, nil
}

// ShowSnapshot returns the basket's latest snapshot, or the one whose checksum
// starts with checksumPrefix.
func (s *Service) ShowSnapshot(name string, checksumPrefix string) (*Snapshot, error) {
	snapshots, err := s.ListSnapshots(name)
	if err != nil {
		return nil, err
	}
	if checksumPrefix == "" {
		if len(snapshots) == 0 {
			return nil, fmt.Errorf("%w: basket %q has no snapshots", ErrNotFound, name)
		}
		return snapshots[0], nil
	}

	prefix := strings.ToLower(checksumPrefix)
	var matches []*Snapshot
	for _, snap := range snapshots {
		if strings.HasPrefix(snap.Checksum.String(), prefix) {
			matches = append(matches, snap)
		}
	}
	return pickOne(matches, checksumPrefix)
}

// FindArchivedSnapshot looks up a snapshot of any basket by checksum prefix.
func (s *Service) FindArchivedSnapshot(checksumPrefix string) (*Snapshot, error) {
	if checksumPrefix == "" {
		return nil, fmt.Errorf("%w: checksum is required", ErrValidation)
	}
	matches, err := s.database.FindSnapshotsByChecksumPrefix(strings.ToLower(checksumPrefix))
	if err != nil {
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	return pickOne(matches, checksumPrefix)
}

// FetchArchived reads a snapshot's content back from the vault and verifies it
// against the recorded checksum. decryptCtx is required for encrypted copies.
func (s *Service) FetchArchived(snapshot *Snapshot, decryptCtx DecryptionContext) ([]byte, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("%w: no vault configured", ErrValidation)
	}

	var archived bytes.Buffer
	if err := s.vault.GetContent(snapshot.Checksum.String(), &archived); err != nil {
		return nil, fmt.Errorf("fetching snapshot %s: %w", snapshot.Checksum.Short(), err)
	}

	content := archived.Bytes()
	if snapshot.Encrypted {
		if decryptCtx == nil {
			return nil, fmt.Errorf("snapshot %s is encrypted: decryption context required", snapshot.Checksum.Short())
		}
		var plain bytes.Buffer
		if err := decryptCtx.Decrypt(bytes.NewReader(content), &plain); err != nil {
			return nil, fmt.Errorf("decrypting snapshot %s: %w", snapshot.Checksum.Short(), err)
		}
		content = plain.Bytes()
	}

	if got := ComputeChecksum(content); got != snapshot.Checksum {
		return nil, fmt.Errorf("archived snapshot %s is corrupt: checksum %s", snapshot.Checksum.Short(), got.Short())
	}
	return content, nil
}

// GetHistory returns the most recent operations, newest first.
func (s *Service) GetHistory(limit int) ([]*OperationRecord, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

// pickOne resolves a checksum prefix to a single checksum. Several snapshots may
// share a checksum; the first match is returned.
func pickOne(matches []*Snapshot, prefix string) (*Snapshot, error) {
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no snapshot with checksum %q", ErrNotFound, prefix)
	}
	first := matches[0]
	for _, m := range matches[1:] {
		if m.Checksum != first.Checksum {
			return nil, fmt.Errorf("%w: checksum prefix %q is ambiguous", ErrValidation, prefix)
		}
	}
	return first, nil
}
