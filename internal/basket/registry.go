package basket

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Registry defines and looks up baskets. Loading or creating a basket never
// touches snapshots.
type Registry struct {
	database Database
	clock    Clock
	idgen    IDGenerator
}

// NewRegistry creates a Registry on top of database.
func NewRegistry(database Database, clock Clock, idgen IDGenerator) *Registry {
	return &Registry{database: database, clock: clock, idgen: idgen}
}

// Load returns the basket with the given name. Wraps ErrNotFound if it does not exist.
func (r *Registry) Load(name string) (*Basket, error) {
	b, err := r.database.FindBasketByName(name)
	if err != nil {
		return nil, fmt.Errorf("loading basket: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: basket %q", ErrNotFound, name)
	}
	return b, nil
}

// Create defines a new basket. Wraps ErrValidation if the name is taken, the owner
// is incomplete or the coverage names an unknown type.
func (r *Registry) Create(name, ownerType, ownerValue string, objects Coverage) (*Basket, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: basket name is required", ErrValidation)
	}
	if ownerType == "" || ownerValue == "" {
		return nil, fmt.Errorf("%w: basket %q needs an owner type and value", ErrValidation, name)
	}
	if objects == nil {
		objects = Coverage{}
	}
	if err := objects.Validate(); err != nil {
		return nil, err
	}

	existing, err := r.database.FindBasketByName(name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing basket: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: basket %q already exists", ErrValidation, name)
	}

	b := &Basket{
		ID:         r.idgen.New(),
		Name:       name,
		OwnerType:  ownerType,
		OwnerValue: ownerValue,
		Objects:    objects.Clone(),
		CreatedAt:  r.clock.Now(),
	}
	if err := r.database.CreateBasket(b); err != nil {
		return nil, fmt.Errorf("creating basket: %w", err)
	}
	return b, nil
}

// AddObjectNames extends the basket's coverage of typ with names and persists the
// change. Previously covered names are kept; a type covering every object is left
// alone. Datafield is ignored.
func (r *Registry) AddObjectNames(b *Basket, typ string, names []string) error {
	if typ == DatafieldType {
		return nil
	}
	if _, ok := LookupType(typ); !ok {
		return fmt.Errorf("%w: unknown object type %q", ErrValidation, typ)
	}
	if b.Objects == nil {
		b.Objects = Coverage{}
	}
	if !b.Objects.AddNames(typ, names) {
		return nil
	}
	if err := r.database.UpdateBasket(b); err != nil {
		return fmt.Errorf("updating basket coverage: %w", err)
	}
	return nil
}

// ListAll returns every basket name in lexicographic order.
func (r *Registry) ListAll() ([]string, error) {
	names, err := r.database.ListBasketNames()
	if err != nil {
		return nil, fmt.Errorf("listing baskets: %w", err)
	}
	return names, nil
}

// basketPayload is the document form of a basket definition.
type basketPayload struct {
	BasketName string   `json:"basket_name"`
	OwnerType  string   `json:"owner_type"`
	OwnerValue string   `json:"owner_value"`
	Objects    Coverage `json:"objects"`
}

// basketObjects exposes baskets through the Repository seam so that documents can
// export, restore and purge basket definitions like any other object type.
type basketObjects struct {
	registry *Registry
}

func (o *basketObjects) ListObjectNames(Target) ([]string, error) {
	return o.registry.ListAll()
}

func (o *basketObjects) GetObject(_ Target, name string) (json.RawMessage, error) {
	b, err := o.registry.Load(name)
	if err != nil {
		return nil, err
	}
	objects := b.Objects
	if objects == nil {
		objects = Coverage{}
	}
	payload, err := json.Marshal(basketPayload{
		BasketName: b.Name,
		OwnerType:  b.OwnerType,
		OwnerValue: b.OwnerValue,
		Objects:    objects,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding basket %q: %w", name, err)
	}
	return payload, nil
}

func (o *basketObjects) UpsertObject(_ Target, name string, state json.RawMessage) error {
	var p basketPayload
	if err := json.Unmarshal(state, &p); err != nil {
		return fmt.Errorf("%w: basket %q: %v", ErrValidation, name, err)
	}
	if p.BasketName != "" && p.BasketName != name {
		return fmt.Errorf("%w: basket entry %q carries basket_name %q", ErrValidation, name, p.BasketName)
	}
	if p.Objects == nil {
		p.Objects = Coverage{}
	}

	existing, err := o.registry.database.FindBasketByName(name)
	if err != nil {
		return fmt.Errorf("checking for existing basket: %w", err)
	}
	if existing == nil {
		_, err := o.registry.Create(name, p.OwnerType, p.OwnerValue, p.Objects)
		return err
	}

	if err := p.Objects.Validate(); err != nil {
		return err
	}
	if p.OwnerType != "" {
		existing.OwnerType = p.OwnerType
	}
	if p.OwnerValue != "" {
		existing.OwnerValue = p.OwnerValue
	}
	existing.Objects = p.Objects.Clone()
	if err := o.registry.database.UpdateBasket(existing); err != nil {
		return fmt.Errorf("updating basket %q: %w", name, err)
	}
	return nil
}

func (o *basketObjects) DeleteObject(_ Target, name string) error {
	b, err := o.registry.Load(name)
	if err != nil {
		return err
	}
	if err := o.registry.database.DeleteBasket(b); err != nil {
		return fmt.Errorf("deleting basket %q: %w", name, err)
	}
	return nil
}

// objectRouter is the repository used by the engines: basket definitions are served
// by the registry, every other class by the database.
type objectRouter struct {
	objects Repository
	baskets Repository
}

// NewObjectRepository returns the Repository the snapshot, restore and purge engines
// work against.
func NewObjectRepository(database Database, registry *Registry) Repository {
	return &objectRouter{objects: database, baskets: &basketObjects{registry: registry}}
}

func (r *objectRouter) pick(target Target) Repository {
	if spec, ok := LookupType(BasketType); ok && spec.Target == target {
		return r.baskets
	}
	return r.objects
}

func (r *objectRouter) ListObjectNames(target Target) ([]string, error) {
	return r.pick(target).ListObjectNames(target)
}

func (r *objectRouter) GetObject(target Target, name string) (json.RawMessage, error) {
	return r.pick(target).GetObject(target, name)
}

func (r *objectRouter) UpsertObject(target Target, name string, state json.RawMessage) error {
	return r.pick(target).UpsertObject(target, name, state)
}

func (r *objectRouter) DeleteObject(target Target, name string) error {
	return r.pick(target).DeleteObject(target, name)
}

// isNotFound is a small readability helper for idempotent deletes and lookups.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
