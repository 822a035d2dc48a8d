package basket

import (
	"encoding/json"
	"fmt"
)

// RestoreEngine applies documents to the object repository.
type RestoreEngine struct {
	repo   Repository
	logger Logger
}

// NewRestoreEngine creates a RestoreEngine writing to repo.
func NewRestoreEngine(repo Repository, logger Logger) *RestoreEngine {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &RestoreEngine{repo: repo, logger: logger}
}

// RestoreJSON parses raw and applies it. The parsed document is returned so
// callers can derive purge keep-sets from it.
func (e *RestoreEngine) RestoreJSON(raw []byte) (Document, int, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, 0, err
	}
	n, err := e.Restore(doc)
	if err != nil {
		return nil, n, err
	}
	return doc, n, nil
}

// Restore upserts every entry of doc and returns the number of objects applied.
// Unknown types are rejected before anything is written. Types are applied in
// type table order (Datafield first, then baskets), names in lexicographic order.
// The first failing upsert aborts the restore; atomicity is the caller's
// transaction.
func (e *RestoreEngine) Restore(doc Document) (int, error) {
	if err := validateDocumentTypes(doc); err != nil {
		return 0, err
	}

	count := 0
	for _, typ := range doc.Types() {
		target, err := TargetForType(typ)
		if err != nil {
			return count, err
		}
		for _, name := range doc.Names(typ) {
			payload, err := preparePayload(typ, name, doc[typ][name])
			if err != nil {
				return count, err
			}
			if err := e.repo.UpsertObject(target, name, payload); err != nil {
				return count, fmt.Errorf("restoring %s %q: %w", typ, name, err)
			}
			count++
		}
		e.logger.Debug("type restored", "type", typ, "count", len(doc[typ]))
	}

	e.logger.Info("document restored", "objects", count)
	return count, nil
}

// datafieldPayload holds the fields a Datafield entry must carry.
type datafieldPayload struct {
	Varname string `json:"varname"`
}

// preparePayload canonicalizes a payload and applies type-specific checks.
func preparePayload(typ, name string, payload json.RawMessage) (json.RawMessage, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", typ, name, err)
	}
	if typ == DatafieldType {
		var df datafieldPayload
		if err := json.Unmarshal(canonical, &df); err != nil || df.Varname == "" {
			return nil, fmt.Errorf("%w: datafield %q needs a varname", ErrValidation, name)
		}
	}
	return canonical, nil
}
