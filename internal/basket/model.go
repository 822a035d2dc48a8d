package basket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"
)

// Basket is a named, owned selection of configuration objects.
type Basket struct {
	ID         string // UUID
	Name       string
	OwnerType  string
	OwnerValue string
	Objects    Coverage
	CreatedAt  time.Time
}

// Selection is the coverage rule for one object type: either every object of the
// type, or an explicit list of names.
type Selection struct {
	All   bool
	Names []string
}

// AllObjects selects every object of a type.
func AllObjects() Selection {
	return Selection{All: true}
}

// NamedObjects selects the given names, deduplicated and sorted.
func NamedObjects(names ...string) Selection {
	return Selection{Names: unionNames(nil, names)}
}

// MarshalJSON encodes the rule as `true` or a list of names.
func (s Selection) MarshalJSON() ([]byte, error) {
	if s.All {
		return []byte("true"), nil
	}
	names := s.Names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON accepts `true` or a list of names.
func (s *Selection) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("true")) {
		*s = AllObjects()
		return nil
	}
	var names []string
	if err := json.Unmarshal(trimmed, &names); err != nil {
		return fmt.Errorf("coverage must be true or a list of object names: %w", err)
	}
	*s = NamedObjects(names...)
	return nil
}

// Coverage maps object type names to their selection rule.
type Coverage map[string]Selection

// Validate rejects unknown object types. The reserved Datafield key is tolerated.
func (c Coverage) Validate() error {
	for typ := range c {
		if typ == DatafieldType {
			continue
		}
		if _, ok := LookupType(typ); !ok {
			return fmt.Errorf("%w: unknown object type %q in basket coverage", ErrValidation, typ)
		}
	}
	return nil
}

// Types returns the covered types in restore order, without Datafield.
func (c Coverage) Types() []string {
	types := make([]string, 0, len(c))
	for typ := range c {
		if typ != DatafieldType {
			types = append(types, typ)
		}
	}
	sortTypes(types)
	return types
}

// AddNames extends the coverage of typ with names. It never removes a name and is a
// no-op when typ already covers every object. It reports whether anything changed.
func (c Coverage) AddNames(typ string, names []string) bool {
	sel, ok := c[typ]
	if ok && sel.All {
		return false
	}
	merged := unionNames(sel.Names, names)
	if ok && slices.Equal(merged, sel.Names) {
		return false
	}
	c[typ] = Selection{Names: merged}
	return true
}

// Clone returns a deep copy.
func (c Coverage) Clone() Coverage {
	out := make(Coverage, len(c))
	for typ, sel := range c {
		out[typ] = Selection{All: sel.All, Names: slices.Clone(sel.Names)}
	}
	return out
}

func unionNames(existing, extra []string) []string {
	set := make(map[string]struct{}, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, list := range [][]string{existing, extra} {
		for _, name := range list {
			if _, dup := set[name]; dup {
				continue
			}
			set[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot is an immutable, checksummed capture of a basket's content.
type Snapshot struct {
	ID         string // UUID
	BasketID   string
	BasketName string
	Checksum   Checksum
	Content    []byte    // canonical JSON document
	CreatedAt  time.Time // millisecond precision
	Encrypted  bool      // archived vault copy is encrypted

	// Document is the parsed content. It is set on snapshots built in memory and
	// is nil on snapshots loaded from the database.
	Document Document
}

// Document is the wire format: object type -> object name -> payload.
type Document map[string]map[string]json.RawMessage

// ParseDocument decodes raw JSON into a Document. Anything that is not an object
// of objects of objects is an ErrMalformedDocument.
func ParseDocument(raw []byte) (Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: top level must be an object", ErrMalformedDocument)
	}

	doc := make(Document, len(top))
	for typ, rawObjects := range top {
		var objects map[string]json.RawMessage
		if err := json.Unmarshal(rawObjects, &objects); err != nil {
			return nil, fmt.Errorf("%w: %s must map object names to payloads: %v", ErrMalformedDocument, typ, err)
		}
		if objects == nil {
			objects = map[string]json.RawMessage{}
		}
		for name, payload := range objects {
			trimmed := bytes.TrimSpace(payload)
			if len(trimmed) == 0 || trimmed[0] != '{' {
				return nil, fmt.Errorf("%w: payload of %s %q must be an object", ErrMalformedDocument, typ, name)
			}
		}
		doc[typ] = objects
	}
	return doc, nil
}

// Types returns the document's type keys in restore order.
func (d Document) Types() []string {
	types := make([]string, 0, len(d))
	for typ := range d {
		types = append(types, typ)
	}
	sortTypes(types)
	return types
}

// Names returns the sorted object names of typ.
func (d Document) Names(typ string) []string {
	names := make([]string, 0, len(d[typ]))
	for name := range d[typ] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Canonical encodes the document with sorted keys at every depth.
func (d Document) Canonical() ([]byte, error) {
	tree := make(map[string]map[string]any, len(d))
	for typ, objects := range d {
		decoded := make(map[string]any, len(objects))
		for name, payload := range objects {
			v, err := decodeJSON(payload)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", typ, name, err)
			}
			decoded[name] = v
		}
		tree[typ] = decoded
	}
	return encodeCanonical(tree)
}

// sortTypes orders type names by the type table, unknown names last alphabetically.
func sortTypes(types []string) {
	sort.Slice(types, func(i, j int) bool {
		oi, oj := typeOrder(types[i]), typeOrder(types[j])
		if oi != oj {
			return oi < oj
		}
		return types[i] < types[j]
	})
}
