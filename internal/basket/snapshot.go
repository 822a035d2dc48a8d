package basket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// SnapshotEngine builds snapshot documents from live objects and persists them.
type SnapshotEngine struct {
	database  Database
	repo      Repository
	registry  *Registry
	vault     Vault
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// CreateForBasket exports every live object covered by the basket into a new,
// unsaved snapshot. Every covered type appears in the document, even when it
// yields no objects. Read-only against the repository.
func (e *SnapshotEngine) CreateForBasket(b *Basket) (*Snapshot, error) {
	doc := make(Document)
	for _, typ := range b.Objects.Types() {
		target, err := TargetForType(typ)
		if err != nil {
			return nil, err
		}
		objects, err := e.collect(typ, target, b.Objects[typ])
		if err != nil {
			return nil, err
		}
		doc[typ] = objects
	}

	if err := e.addDatafields(doc); err != nil {
		return nil, err
	}

	return e.newSnapshot(b, doc)
}

// collect loads the objects selected by sel. Explicitly listed names that no
// longer exist are skipped.
func (e *SnapshotEngine) collect(typ string, target Target, sel Selection) (map[string]json.RawMessage, error) {
	names := sel.Names
	if sel.All {
		var err error
		names, err = e.repo.ListObjectNames(target)
		if err != nil {
			return nil, fmt.Errorf("listing %s objects: %w", typ, err)
		}
	}

	objects := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		state, err := e.repo.GetObject(target, name)
		if isNotFound(err) {
			e.logger.Debug("covered object missing", "type", typ, "name", name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading %s %q: %w", typ, name, err)
		}
		objects[name] = state
	}
	return objects, nil
}

// fieldRefs is the part of an object payload that references datafields.
type fieldRefs struct {
	Fields []struct {
		DatafieldID json.RawMessage `json:"datafield_id"`
	} `json:"fields"`
}

// addDatafields adds the datafields referenced by exported objects under the
// Datafield key. The key is omitted when nothing is referenced.
func (e *SnapshotEngine) addDatafields(doc Document) error {
	ids := make(map[string]struct{})
	for typ, objects := range doc {
		if typ == DatafieldType {
			continue
		}
		for _, payload := range objects {
			var refs fieldRefs
			if err := json.Unmarshal(payload, &refs); err != nil {
				continue
			}
			for _, f := range refs.Fields {
				id := strings.Trim(string(bytes.TrimSpace(f.DatafieldID)), `"`)
				if id != "" && id != "null" {
					ids[id] = struct{}{}
				}
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	target, err := TargetForType(DatafieldType)
	if err != nil {
		return err
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	fields, err := e.collect(DatafieldType, target, NamedObjects(sorted...))
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		doc[DatafieldType] = fields
	}
	return nil
}

// ForBasketFromJSON builds a snapshot from an uploaded document. Every object name
// in the document (Datafield excepted) is registered into the basket's coverage
// first, so the basket keeps describing what was captured.
func (e *SnapshotEngine) ForBasketFromJSON(b *Basket, raw []byte) (*Snapshot, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return e.ForBasketFromDocument(b, doc)
}

// ForBasketFromDocument is ForBasketFromJSON for an already parsed document.
func (e *SnapshotEngine) ForBasketFromDocument(b *Basket, doc Document) (*Snapshot, error) {
	if err := validateDocumentTypes(doc); err != nil {
		return nil, err
	}
	for _, typ := range doc.Types() {
		if typ == DatafieldType {
			continue
		}
		if err := e.registry.AddObjectNames(b, typ, doc.Names(typ)); err != nil {
			return nil, err
		}
	}
	return e.newSnapshot(b, doc)
}

func (e *SnapshotEngine) newSnapshot(b *Basket, doc Document) (*Snapshot, error) {
	content, err := doc.Canonical()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		BasketID:   b.ID,
		BasketName: b.Name,
		Checksum:   ComputeChecksum(content),
		Content:    content,
		Document:   doc,
	}, nil
}

// Store persists snapshot as a new immutable record: it computes the checksum,
// stamps the creation time, archives the content in the vault and appends the
// database row. It never deduplicates against existing snapshots.
func (e *SnapshotEngine) Store(snapshot *Snapshot) error {
	if snapshot.Content == nil {
		content, err := snapshot.Document.Canonical()
		if err != nil {
			return err
		}
		snapshot.Content = content
	}
	snapshot.Checksum = ComputeChecksum(snapshot.Content)
	snapshot.CreatedAt = e.clock.Now().UTC().Truncate(time.Millisecond)
	if snapshot.ID == "" {
		snapshot.ID = e.idgen.New()
	}

	if err := e.archive(snapshot); err != nil {
		return err
	}

	if err := e.database.CreateSnapshot(snapshot); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}

	e.logger.Info("snapshot stored", "basket", snapshot.BasketName, "checksum", snapshot.Checksum.String())
	return nil
}

// archive uploads the content to the vault, encrypted when an encryptor is set.
// Uploading is idempotent by checksum; an orphaned upload after a failed insert
// is harmless.
func (e *SnapshotEngine) archive(snapshot *Snapshot) error {
	if e.vault == nil {
		return nil
	}

	data := snapshot.Content
	if e.encryptor != nil {
		var buf bytes.Buffer
		if err := e.encryptor.Encrypt(bytes.NewReader(snapshot.Content), &buf); err != nil {
			return fmt.Errorf("encrypting snapshot: %w", err)
		}
		data = buf.Bytes()
		snapshot.Encrypted = true
	}

	if err := e.vault.PutContent(snapshot.Checksum.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("archiving snapshot: %w", err)
	}
	return nil
}

// validateDocumentTypes rejects documents naming a type outside the type table.
func validateDocumentTypes(doc Document) error {
	for typ := range doc {
		if _, ok := LookupType(typ); !ok {
			return fmt.Errorf("%w: unknown object type %q", ErrValidation, typ)
		}
	}
	return nil
}
