// Package model provides the runtime side of the mapper: entities bound to
// backing stores, lazily materialized result collections and association
// handles.
//
// A Mapper owns the schema registry and the adapter bindings. Queries run
// through a Loader, which calls its adapter at most once, and are exposed as a
// Collection of scoped entities that materialize on first attribute access.
package model

import (
	"context"

	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"go.uber.org/zap"
)

// Option configures a Mapper
type Option func(*Mapper)

// WithAdapter binds an adapter to one entity type
func WithAdapter(typeName string, adapter store.Adapter) Option {
	return func(m *Mapper) {
		m.adapters[typeName] = adapter
	}
}

// WithDefaultAdapter binds the adapter used by types without their own binding
func WithDefaultAdapter(adapter store.Adapter) Option {
	return func(m *Mapper) {
		m.fallback = adapter
	}
}

// WithResolver replaces the association resolver
func WithResolver(r query.Resolver) Option {
	return func(m *Mapper) {
		m.resolver = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Mapper) {
		m.logger = logger
	}
}

// Mapper is the session binding entity types to adapters
type Mapper struct {
	registry *schema.Registry
	adapters map[string]store.Adapter
	fallback store.Adapter
	resolver query.Resolver
	logger   *zap.Logger
}

// NewMapper creates a mapper over a resolved registry
func NewMapper(registry *schema.Registry, opts ...Option) *Mapper {
	m := &Mapper{
		registry: registry,
		adapters: make(map[string]store.Adapter),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger).With(zap.String(logging.FieldComponent, "mapper"))
	if m.resolver == nil {
		m.resolver = &resolver{mapper: m}
	}
	return m
}

// Registry returns the schema registry
func (m *Mapper) Registry() *schema.Registry { return m.registry }

// Resolver returns the resolver used for association lookups
func (m *Mapper) Resolver() query.Resolver { return m.resolver }

// Logger returns the mapper's logger
func (m *Mapper) Logger() *zap.Logger { return m.logger }

// Bind sets the adapter for one entity type
func (m *Mapper) Bind(typeName string, adapter store.Adapter) {
	m.adapters[typeName] = adapter
}

// Type looks up a registered entity type by name
func (m *Mapper) Type(name string) (*schema.EntityType, error) {
	return m.registry.MustLookup(name)
}

// AdapterFor returns the adapter bound to et, or nil
func (m *Mapper) AdapterFor(et *schema.EntityType) store.Adapter {
	if a, ok := m.adapters[et.Name]; ok {
		return a
	}
	return m.fallback
}

func (m *Mapper) adapterFor(et *schema.EntityType) (store.Adapter, error) {
	a := m.AdapterFor(et)
	if a == nil {
		return nil, ormerrors.Configurationf("no adapter specified for %s", et.Name)
	}
	return a, nil
}

// Query builds a query bound to this mapper's resolver and logger
func (m *Mapper) Query(et *schema.EntityType, opts ...query.Option) (*query.Query, error) {
	base := []query.Option{query.WithResolver(m.resolver), query.WithLogger(m.logger)}
	return query.New(et, append(base, opts...)...)
}

// New constructs an unsaved entity. Keys may be attribute names or predicate
// IRIs; an "id" key sets the identifier and unknown keys are kept as
// arbitrary attributes.
func (m *Mapper) New(ctx context.Context, et *schema.EntityType, attrs map[string]any) (*Entity, error) {
	e := newEntity(m, et)
	if id, ok := attrs[schema.IDAttribute]; ok {
		e.id = query.IDOf(id)
	}
	for _, name := range store.Attributes(attrs).Keys() {
		if name == schema.IDAttribute {
			continue
		}
		if err := e.Set(ctx, name, attrs[name]); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// instantiate builds a loaded entity from a stored record
func (m *Mapper) instantiate(ctx context.Context, et *schema.EntityType, rec store.Attributes) (*Entity, error) {
	e := newEntity(m, et)
	e.persisted = true
	if err := e.assign(ctx, rec, nil); err != nil {
		return nil, err
	}
	return e, nil
}

// All returns a lazy collection over every record matching the options
func (m *Mapper) All(et *schema.EntityType, opts ...query.Option) (*Collection, error) {
	q, err := m.Query(et, opts...)
	if err != nil {
		return nil, err
	}
	return NewCollection(m, q), nil
}

// First returns the first matching entity, unloaded
func (m *Mapper) First(et *schema.EntityType, opts ...query.Option) (*Entity, error) {
	c, err := m.All(et, append(opts, query.WithLimit(1))...)
	if err != nil {
		return nil, err
	}
	return c.First(), nil
}

// Last returns the last matching entity. The whole result set is fetched.
func (m *Mapper) Last(ctx context.Context, et *schema.EntityType, opts ...query.Option) (*Entity, error) {
	c, err := m.All(et, opts...)
	if err != nil {
		return nil, err
	}
	return c.Last(ctx)
}

// Find returns the entity with the given id, unloaded. Its identifier is
// known without a fetch; existence is only checked on first access.
func (m *Mapper) Find(et *schema.EntityType, id string, opts ...query.Option) (*Entity, error) {
	c, err := m.FindAll(et, []string{id}, opts...)
	if err != nil {
		return nil, err
	}
	return c.First(), nil
}

// FindAll returns a collection over the entities with the given ids
func (m *Mapper) FindAll(et *schema.EntityType, ids []string, opts ...query.Option) (*Collection, error) {
	q, err := m.Query(et, opts...)
	if err != nil {
		return nil, err
	}

	switch len(ids) {
	case 0:
		c := NewCollection(m, q)
		c.loader.preload(nil)
		return c, nil
	case 1:
		err = q.Where(schema.IDAttribute, query.OpEqual, ids[0])
	default:
		err = q.Where(schema.IDAttribute, query.OpIn, ids)
	}
	if err != nil {
		return nil, err
	}
	return NewCollection(m, q), nil
}

// Create builds an entity and saves it through its adapter
func (m *Mapper) Create(ctx context.Context, et *schema.EntityType, attrs map[string]any) (*Entity, error) {
	e, err := m.New(ctx, et, attrs)
	if err != nil {
		return nil, err
	}
	if err := e.Save(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// FindOrCreate returns the entity with attrs["id"] when it exists, otherwise
// creates one from attrs
func (m *Mapper) FindOrCreate(ctx context.Context, et *schema.EntityType, attrs map[string]any) (*Entity, error) {
	if id := query.IDOf(attrs[schema.IDAttribute]); id != "" {
		e, err := m.Find(et, id)
		if err != nil {
			return nil, err
		}
		exists, err := e.Exists(ctx)
		if err != nil {
			return nil, err
		}
		if exists {
			return e, nil
		}
	}
	return m.Create(ctx, et, attrs)
}

// resolver resolves association keys through the mapper
type resolver struct {
	mapper *Mapper
}

func (r *resolver) Find(_ context.Context, et *schema.EntityType, key string) (query.Record, error) {
	return r.mapper.Find(et, key)
}

func (r *resolver) Reload(ctx context.Context, rec query.Record) (query.Record, error) {
	e, ok := rec.(*Entity)
	if !ok {
		return rec, nil
	}
	if err := e.Reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}
