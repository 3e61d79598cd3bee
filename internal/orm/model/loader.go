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

// Loader binds one query to one source: an adapter, fetched at most once,
// or a pre-loaded set of entities. The last source bound wins.
type Loader struct {
	mapper  *Mapper
	query   *query.Query
	adapter store.Adapter
	records []store.Attributes
	loaded  bool
}

// NewLoader creates a loader for q. Until From is called the adapter bound
// to the query's type on the mapper is used.
func NewLoader(m *Mapper, q *query.Query) *Loader {
	return &Loader{mapper: m, query: q}
}

// Query returns the loader's query
func (l *Loader) Query() *query.Query { return l.query }

// From binds an adapter, discarding any fetched or pre-loaded records
func (l *Loader) From(adapter store.Adapter) {
	l.adapter = adapter
	l.records = nil
	l.loaded = false
}

// FromEntities binds a pre-loaded set: entities matching the query are kept
// as attribute snapshots, in order. Scoped entities are materialized first;
// those without a record are skipped.
func (l *Loader) FromEntities(ctx context.Context, entities []*Entity) error {
	records := make([]store.Attributes, 0, len(entities))
	for _, e := range entities {
		if err := e.Load(ctx); err != nil {
			if ormerrors.IsNotFound(err) {
				continue
			}
			return err
		}
		ok, err := l.query.Matches(ctx, e)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		rec := e.Attributes()
		rec[schema.IDAttribute] = e.ID()
		records = append(records, rec)
	}
	l.preload(records)
	return nil
}

func (l *Loader) preload(records []store.Attributes) {
	if records == nil {
		records = []store.Attributes{}
	}
	l.adapter = nil
	l.records = records
	l.loaded = true
}

// HasID returns the identifier pinned by the query, if any
func (l *Loader) HasID() string {
	return l.query.ID()
}

// Len returns the number of records, fetching them on first use
func (l *Loader) Len(ctx context.Context) (int, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Records returns the fetched records. The adapter is called once; later
// calls return the memoized list.
func (l *Loader) Records(ctx context.Context) ([]store.Attributes, error) {
	if l.loaded {
		return l.records, nil
	}

	et := l.query.EntityType()
	adapter := l.adapter
	if adapter == nil {
		adapter = l.mapper.AdapterFor(et)
	}
	if adapter == nil {
		return nil, ormerrors.Configurationf("no adapter specified for %s", et.Name)
	}

	records, err := adapter.Load(ctx, l.query)
	if err != nil {
		return nil, ormerrors.AdapterFailure(err, "load")
	}
	l.records = records
	l.loaded = true

	l.mapper.logger.Debug("loaded records",
		zap.String(logging.FieldType, et.Name),
		zap.String(logging.FieldQuery, l.query.String()),
		zap.Int(logging.FieldCount, len(records)))
	return l.records, nil
}

// Get returns a new scoped entity bound to index
func (l *Loader) Get(index int) *Entity {
	return newEntity(l.mapper, l.query.EntityType()).scope(l, index)
}

// Update assigns the record at index onto e. A missing record moves e to
// the not-found state instead of failing.
func (l *Loader) Update(ctx context.Context, index int, e *Entity) (*Entity, error) {
	records, err := l.Records(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(records) {
		e.markNotFound()
		return e, nil
	}
	if err := e.assign(ctx, records[index], l.query.Skips); err != nil {
		return nil, err
	}
	e.state = StateLoaded
	return e, nil
}

// peekID returns the id of an already fetched record without fetching
func (l *Loader) peekID(index int) string {
	if !l.loaded || index < 0 || index >= len(l.records) {
		return ""
	}
	return l.records[index].ID()
}
