// Package memstore provides an in-process adapter that keeps records in
// maps keyed by entity type and id
package memstore

import (
	"context"
	"sync"

	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithIDFunc sets the generator for ids of created records
func WithIDFunc(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// Store implements store.Adapter in memory. Records of each type keep
// insertion order.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	newID  func() string
	logger *zap.Logger
}

type table struct {
	rows  map[string]store.Attributes
	order []string
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string]*table),
		newID:  func() string { return "urn:uuid:" + uuid.NewString() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{rows: make(map[string]store.Attributes)}
		s.tables[name] = t
	}
	return t
}

// Load returns copies of the records matching q
func (s *Store) Load(ctx context.Context, q *query.Query) ([]store.Attributes, error) {
	s.mu.RLock()
	t := s.tables[q.EntityType().Name]
	records := make([]store.Attributes, 0)
	if t != nil {
		for _, id := range t.order {
			records = append(records, t.rows[id].Clone())
		}
	}
	s.mu.RUnlock()

	matched, err := store.Filter(ctx, q, records)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("memstore load",
		zap.String(logging.FieldType, q.EntityType().Name),
		zap.Int("scanned", len(records)),
		zap.Int("matched", len(matched)))
	return store.Page(matched, q), nil
}

// Save creates new instances and updates persisted ones
func (s *Store) Save(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.IsNew() {
		return s.Create(ctx, inst)
	}
	return s.Update(ctx, inst)
}

// Create stores a new record, generating an id when the instance has none
func (s *Store) Create(_ context.Context, inst store.Instance) (store.Attributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs := inst.Attributes().Clone()
	id := inst.ID()
	if id == "" {
		id = s.newID()
	}
	attrs["id"] = id

	t := s.table(inst.EntityType().Name)
	if _, exists := t.rows[id]; exists {
		return nil, ormerrors.Configurationf("%s %s already exists", inst.EntityType().Name, id)
	}
	t.rows[id] = attrs
	t.order = append(t.order, id)
	return attrs.Clone(), nil
}

// Update merges the instance attributes into the stored record
func (s *Store) Update(_ context.Context, inst store.Instance) (store.Attributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := inst.ID()
	if id == "" {
		return nil, ormerrors.ErrMissingID
	}
	t := s.table(inst.EntityType().Name)
	row, ok := t.rows[id]
	if !ok {
		return nil, ormerrors.ErrEntityNotFound
	}
	for k, v := range inst.Attributes() {
		row[k] = v
	}
	row["id"] = id
	return row.Clone(), nil
}

// Reload returns the stored record
func (s *Store) Reload(_ context.Context, inst store.Instance) (store.Attributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id := inst.ID()
	if id == "" {
		return nil, ormerrors.ErrMissingID
	}
	t := s.tables[inst.EntityType().Name]
	if t == nil {
		return nil, ormerrors.ErrEntityNotFound
	}
	row, ok := t.rows[id]
	if !ok {
		return nil, ormerrors.ErrEntityNotFound
	}
	return row.Clone(), nil
}

// Len returns the number of records stored for a type
func (s *Store) Len(typeName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t := s.tables[typeName]; t != nil {
		return len(t.order)
	}
	return 0
}
