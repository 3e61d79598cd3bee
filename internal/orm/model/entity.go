package model

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"go.uber.org/zap"
)

// State is the materialization state of an entity
type State int

const (
	// StateLoaded entities hold their attributes in memory
	StateLoaded State = iota
	// StateUnloaded entities are bound to a Loader index and fetch on first access
	StateUnloaded
	// StateNotFound entities had no record at their index. The state is terminal.
	StateNotFound
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateUnloaded:
		return "unloaded"
	case StateNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Entity is one instance of an entity type. Entities produced by a
// Collection are scoped: they start unloaded and materialize from their
// Loader on first attribute access.
type Entity struct {
	mapper    *Mapper
	et        *schema.EntityType
	id        string
	values    map[string]Attribute
	arbitrary map[string]any
	persisted bool

	state  State
	loader *Loader
	index  int
}

func newEntity(m *Mapper, et *schema.EntityType) *Entity {
	e := &Entity{
		mapper:    m,
		et:        et,
		values:    make(map[string]Attribute, len(et.Attributes())),
		arbitrary: make(map[string]any),
		state:     StateLoaded,
	}
	for _, attr := range et.Attributes() {
		e.values[attr.Name] = newAttribute(e, attr)
	}
	return e
}

// scope binds the entity to a loader index
func (e *Entity) scope(l *Loader, index int) *Entity {
	e.loader = l
	e.index = index
	e.state = StateUnloaded
	return e
}

// EntityType returns the entity's type
func (e *Entity) EntityType() *schema.EntityType { return e.et }

// State returns the materialization state
func (e *Entity) State() State { return e.state }

// ID returns the identifier known without a fetch: the assigned id, the id
// pinned by the scope's query, or the id of an already fetched record.
// Empty for new entities. Safe on a nil receiver.
func (e *Entity) ID() string {
	if e == nil {
		return ""
	}
	if e.id != "" {
		return e.id
	}
	if e.loader != nil {
		if id := e.loader.HasID(); id != "" {
			return id
		}
		return e.loader.peekID(e.index)
	}
	return ""
}

// IsNew reports whether the entity has not been stored yet. Scoped
// entities always come from a store.
func (e *Entity) IsNew() bool {
	return !e.persisted && e.loader == nil
}

// Equal compares entities by identifier. Entities without one are only
// equal to themselves.
func (e *Entity) Equal(other *Entity) bool {
	if e == other {
		return true
	}
	if e == nil || other == nil {
		return false
	}
	id := e.ID()
	return id != "" && id == other.ID() && e.et == other.et
}

// Load materializes a scoped entity. Loading an entity that has no record
// returns ErrEntityNotFound.
func (e *Entity) Load(ctx context.Context) error {
	switch e.state {
	case StateLoaded:
		return nil
	case StateNotFound:
		return e.notFound()
	}

	e.state = StateLoaded
	if _, err := e.loader.Update(ctx, e.index, e); err != nil {
		e.state = StateUnloaded
		return err
	}
	if e.state == StateNotFound {
		return e.notFound()
	}
	return nil
}

func (e *Entity) markNotFound() {
	e.state = StateNotFound
	e.mapper.logger.Debug("entity not found",
		zap.String(logging.FieldType, e.et.Name),
		zap.Int(logging.FieldIndex, e.index))
}

func (e *Entity) notFound() error {
	return errors.Wrapf(ormerrors.ErrEntityNotFound, "%s at index %d", e.et.Name, e.index)
}

// Exists materializes the entity and reports whether its record exists
func (e *Entity) Exists(ctx context.Context) (bool, error) {
	err := e.Load(ctx)
	if ormerrors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Attribute returns the value holder of a declared attribute, by name or
// predicate IRI
func (e *Entity) Attribute(ctx context.Context, name string) (Attribute, error) {
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	attr := e.et.Has(name)
	if attr == nil {
		return nil, ormerrors.Configurationf("%s has no attribute %s", e.et.Name, name)
	}
	return e.values[attr.Name], nil
}

// BelongsTo returns the handle of a belongs_to association
func (e *Entity) BelongsTo(ctx context.Context, name string) (*BelongsTo, error) {
	holder, err := e.Attribute(ctx, name)
	if err != nil {
		return nil, err
	}
	bt, ok := holder.(*BelongsTo)
	if !ok {
		return nil, ormerrors.Configurationf("%s.%s is not a belongs_to association", e.et.Name, name)
	}
	return bt, nil
}

// HasMany returns the handle of a has_many association
func (e *Entity) HasMany(ctx context.Context, name string) (*HasMany, error) {
	holder, err := e.Attribute(ctx, name)
	if err != nil {
		return nil, err
	}
	hm, ok := holder.(*HasMany)
	if !ok {
		return nil, ormerrors.Configurationf("%s.%s is not a has_many association", e.et.Name, name)
	}
	return hm, nil
}

// Get returns an attribute value by name or predicate IRI: scalars for
// properties, *Entity for belongs_to, []*Entity for has_many. Arbitrary
// attributes are returned without materializing the entity.
func (e *Entity) Get(ctx context.Context, name string) (any, error) {
	if v, ok := e.arbitrary[name]; ok && v != nil {
		return v, nil
	}
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	if name == schema.IDAttribute {
		return e.ID(), nil
	}
	attr := e.et.Has(name)
	if attr == nil {
		return e.arbitrary[name], nil
	}
	return e.values[attr.Name].Unwrap(ctx)
}

// Attr implements query.Record. Unresolved belongs_to associations report
// their key so that matching does not trigger a lookup.
func (e *Entity) Attr(ctx context.Context, name string) (any, error) {
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	if name == schema.IDAttribute {
		return e.ID(), nil
	}
	attr := e.et.Has(name)
	if attr == nil {
		return e.arbitrary[name], nil
	}
	switch holder := e.values[attr.Name].(type) {
	case *BelongsTo:
		if holder.value != nil {
			return holder.value, nil
		}
		if holder.key == "" {
			return nil, nil
		}
		return holder.key, nil
	default:
		return holder.Unwrap(ctx)
	}
}

// Set assigns an attribute by name or predicate IRI, materializing a scoped
// entity first. The identifier cannot be set this way.
func (e *Entity) Set(ctx context.Context, name string, value any) error {
	if name == schema.IDAttribute {
		return nil
	}
	if err := e.Load(ctx); err != nil {
		return err
	}
	return e.set(ctx, name, value)
}

func (e *Entity) set(ctx context.Context, name string, value any) error {
	attr := e.et.Has(name)
	if attr == nil {
		e.arbitrary[name] = value
		return nil
	}

	switch holder := e.values[attr.Name].(type) {
	case *Property:
		return holder.Replace(value)
	case *BelongsTo:
		return holder.Replace(ctx, value)
	case *HasMany:
		members, err := toEntities(ctx, value)
		if err != nil {
			return errors.Wrapf(err, "%s.%s", e.et.Name, attr.Name)
		}
		return holder.Replace(ctx, members)
	default:
		_, err := holder.Unwrap(ctx)
		return err
	}
}

// assign copies a stored record onto the entity, leaving skipped names untouched
func (e *Entity) assign(ctx context.Context, rec store.Attributes, skip func(string) bool) error {
	if id := rec.ID(); id != "" {
		e.id = id
	}
	for _, name := range rec.Keys() {
		if name == schema.IDAttribute || (skip != nil && skip(name)) {
			continue
		}
		if err := e.set(ctx, name, rec[name]); err != nil {
			return err
		}
	}
	return nil
}

// Attributes returns the in-memory values without triggering a load:
// properties, belongs_to keys and arbitrary attributes
func (e *Entity) Attributes() store.Attributes {
	out := make(store.Attributes, len(e.values)+len(e.arbitrary))
	for name, v := range e.arbitrary {
		out[name] = v
	}
	for _, attr := range e.et.Attributes() {
		switch holder := e.values[attr.Name].(type) {
		case *Property:
			out[attr.Name] = holder.Value()
		case *BelongsTo:
			if key := holder.Key(); key != "" {
				out[attr.Name] = key
			} else {
				out[attr.Name] = nil
			}
		}
	}
	return out
}

// Save writes the entity through its adapter: new entities are created,
// persisted ones updated. Stored values are assigned back.
func (e *Entity) Save(ctx context.Context) error {
	if err := e.Load(ctx); err != nil {
		return err
	}
	adapter, err := e.mapper.adapterFor(e.et)
	if err != nil {
		return err
	}

	rec, err := adapter.Save(ctx, e)
	if err != nil {
		return ormerrors.AdapterFailure(err, "save")
	}
	e.mapper.logger.Debug("saved entity",
		zap.String(logging.FieldType, e.et.Name),
		zap.String(logging.FieldID, rec.ID()))
	e.persisted = true
	return e.assign(ctx, rec, nil)
}

// Reload replaces the attributes with the stored record
func (e *Entity) Reload(ctx context.Context) error {
	if e.state == StateNotFound {
		return e.notFound()
	}
	if e.ID() == "" {
		return errors.Wrapf(ormerrors.ErrMissingID, "reload %s", e.et.Name)
	}
	adapter, err := e.mapper.adapterFor(e.et)
	if err != nil {
		return err
	}

	rec, err := adapter.Reload(ctx, e)
	if err != nil {
		return ormerrors.AdapterFailure(err, "reload")
	}
	if e.id == "" {
		e.id = e.ID()
	}
	e.state = StateLoaded
	e.persisted = true
	return e.assign(ctx, rec, nil)
}

// Statements describes the entity as graph statements: its type, every
// set property and belongs_to link, and the links of populated has_many
// associations
func (e *Entity) Statements(ctx context.Context) ([]query.Statement, error) {
	if err := e.Load(ctx); err != nil {
		return nil, err
	}
	id := e.ID()
	if id == "" {
		return nil, errors.Wrapf(ormerrors.ErrMissingID, "statements of %s", e.et.Name)
	}

	subject := query.IRI(id)
	statements := []query.Statement{{
		Subject:   subject,
		Predicate: query.IRI(schema.RDFType),
		Object:    query.IRI(e.et.Type()),
	}}

	for _, attr := range e.et.Attributes() {
		predicate := query.IRI(attr.Predicate())
		switch holder := e.values[attr.Name].(type) {
		case *Property:
			if v := holder.Value(); v != nil {
				statements = append(statements, query.Statement{Subject: subject, Predicate: predicate, Object: query.Literal{Value: v}})
			}
		case *BelongsTo:
			if key := holder.Key(); key != "" {
				statements = append(statements, query.Statement{Subject: subject, Predicate: predicate, Object: query.IRI(key)})
			}
		case *HasMany:
			if !holder.populated {
				continue
			}
			for _, member := range holder.members {
				if mid := member.ID(); mid != "" {
					statements = append(statements, query.Statement{Subject: subject, Predicate: predicate, Object: query.IRI(mid)})
				}
			}
		}
	}
	return statements, nil
}

// String returns a short description without triggering a load
func (e *Entity) String() string {
	if e == nil {
		return "<nil>"
	}
	if id := e.ID(); id != "" {
		return fmt.Sprintf("%s(%s)", e.et.Name, id)
	}
	return fmt.Sprintf("%s(new, %s)", e.et.Name, e.state)
}

func toEntities(ctx context.Context, value any) ([]*Entity, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *Entity:
		return []*Entity{v}, nil
	case []*Entity:
		return v, nil
	case *Collection:
		return v.All(ctx)
	case []any:
		out := make([]*Entity, 0, len(v))
		for _, item := range v {
			if e, ok := item.(*Entity); ok {
				out = append(out, e)
			}
		}
		return out, nil
	default:
		return nil, errors.Newf("cannot assign %T to a has_many association", value)
	}
}
