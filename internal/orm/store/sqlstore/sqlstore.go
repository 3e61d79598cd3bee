// Package sqlstore implements the adapter contract over database/sql. Each
// entity type maps to a table named after its pluralized snake-case name;
// properties map to snake-case columns and belongs_to associations to
// <name>_id foreign-key columns.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	utilstrings "github.com/conduit-lang/graphmap/internal/util/strings"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dialect selects the placeholder style
type Dialect int

const (
	// Postgres uses $1, $2, ... placeholders
	Postgres Dialect = iota
	// SQLite uses ? placeholders
	SQLite
)

// DialectFor returns the dialect of a registered driver name
func DialectFor(driver string) Dialect {
	if driver == "sqlite3" {
		return SQLite
	}
	return Postgres
}

func (d Dialect) placeholder(n int) string {
	if d == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// Option configures a Store
type Option func(*Store)

// WithDialect sets the placeholder dialect
func WithDialect(d Dialect) Option {
	return func(s *Store) {
		s.dialect = d
	}
}

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

// Store implements store.Adapter on a SQL database
type Store struct {
	db      *sql.DB
	dialect Dialect
	newID   func() string
	logger  *zap.Logger
}

// New wraps an open database handle
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: Postgres,
		newID:   uuid.NewString,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a database with a registered driver and pings it
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}
	return New(db, append([]Option{WithDialect(DialectFor(driver))}, opts...)...), nil
}

// Close closes the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

type column struct {
	attribute string
	column    string
	reference bool
}

type tableMap struct {
	name    string
	columns []column
	byAttr  map[string]column
}

// mapTable derives the table layout of an entity type
func mapTable(et *schema.EntityType) *tableMap {
	t := &tableMap{
		name:   utilstrings.ToTableName(et.Name),
		byAttr: make(map[string]column),
	}
	t.add(column{attribute: schema.IDAttribute, column: "id"})
	for _, attr := range et.Attributes() {
		switch {
		case attr.IsProperty():
			t.add(column{attribute: attr.Name, column: utilstrings.ToSnakeCase(attr.Name)})
		case attr.IsBelongsTo():
			t.add(column{attribute: attr.Name, column: utilstrings.ToSnakeCase(attr.Name) + "_id", reference: true})
		}
	}
	return t
}

func (t *tableMap) add(c column) {
	t.columns = append(t.columns, c)
	t.byAttr[c.attribute] = c
}

func (t *tableMap) columnList() string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.column
	}
	return strings.Join(names, ", ")
}

// Load runs a SELECT built from the query's parameterized filter
func (s *Store) Load(ctx context.Context, q *query.Query) ([]store.Attributes, error) {
	t := mapTable(q.EntityType())

	f, err := q.ToParameterizedFilter(ctx)
	if err != nil {
		return nil, err
	}
	counter := 1
	where, args, err := s.renderFilter(t, f, &counter)
	if err != nil {
		return nil, err
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s", t.columnList(), t.name)
	if where != "" {
		stmt += " WHERE " + where
	}
	if q.Limit() > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit())
	}
	if q.Offset() > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Offset())
	}

	records, err := s.selectRows(ctx, t, stmt, args)
	if err != nil {
		return nil, err
	}
	if err := s.includeBelongsTo(ctx, q, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) selectRows(ctx context.Context, t *tableMap, stmt string, args []any) ([]store.Attributes, error) {
	s.logger.Debug("sqlstore query", zap.String("sql", stmt), zap.Int("args", len(args)))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrapf(convertDBError(err), "failed to query %s", t.name)
	}
	defer rows.Close()

	raw, err := scanRows(rows)
	if err != nil {
		return nil, errors.Wrapf(convertDBError(err), "failed to scan %s", t.name)
	}

	records := make([]store.Attributes, len(raw))
	for i, row := range raw {
		records[i] = t.toAttributes(row)
	}
	return records, nil
}

// includeBelongsTo replaces foreign keys of included belongs_to
// associations with the target records, fetched in one query per
// association
func (s *Store) includeBelongsTo(ctx context.Context, q *query.Query, records []store.Attributes) error {
	if len(records) == 0 {
		return nil
	}

	for _, name := range q.Includes() {
		attr, ok := q.EntityType().Attribute(name)
		if !ok || !attr.IsBelongsTo() {
			s.logger.Debug("include ignored", zap.String(logging.FieldType, q.EntityType().Name), zap.String(logging.FieldAttribute, name))
			continue
		}
		target, err := attr.Target()
		if err != nil {
			return err
		}

		ids := make([]any, 0)
		seen := make(map[string]bool)
		for _, rec := range records {
			id := query.IDOf(rec[name])
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}

		tt := mapTable(target)
		placeholders := make([]string, len(ids))
		for i := range ids {
			placeholders[i] = s.dialect.placeholder(i + 1)
		}
		stmt := fmt.Sprintf("SELECT %s FROM %s WHERE id IN (%s)", tt.columnList(), tt.name, strings.Join(placeholders, ", "))
		targets, err := s.selectRows(ctx, tt, stmt, ids)
		if err != nil {
			return err
		}

		byID := make(map[string]store.Attributes, len(targets))
		for _, rec := range targets {
			byID[rec.ID()] = rec
		}
		for _, rec := range records {
			if included, ok := byID[query.IDOf(rec[name])]; ok {
				rec[name] = included
			}
		}
	}
	return nil
}

// Save creates new instances and updates persisted ones
func (s *Store) Save(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.IsNew() {
		return s.Create(ctx, inst)
	}
	return s.Update(ctx, inst)
}

// Create inserts a row, generating an id when the instance has none
func (s *Store) Create(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	t := mapTable(inst.EntityType())

	attrs := inst.Attributes().Clone()
	id := inst.ID()
	if id == "" {
		id = s.newID()
	}
	attrs[schema.IDAttribute] = id

	cols := make([]string, 0, len(t.columns))
	placeholders := make([]string, 0, len(t.columns))
	args := make([]any, 0, len(t.columns))
	for _, c := range t.columns {
		v, ok := attrs[c.attribute]
		if !ok {
			continue
		}
		cols = append(cols, c.column)
		placeholders = append(placeholders, s.dialect.placeholder(len(args)+1))
		args = append(args, columnValue(c, v))
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if err := s.exec(ctx, stmt, args, false); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", inst.EntityType().Name)
	}
	return attrs, nil
}

// Update writes the instance's columns to its row
func (s *Store) Update(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	id := inst.ID()
	if id == "" {
		return nil, ormerrors.ErrMissingID
	}
	t := mapTable(inst.EntityType())
	attrs := inst.Attributes()

	sets := make([]string, 0, len(t.columns))
	args := make([]any, 0, len(t.columns)+1)
	for _, c := range t.columns {
		v, ok := attrs[c.attribute]
		if !ok || c.attribute == schema.IDAttribute {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", c.column, s.dialect.placeholder(len(args)+1)))
		args = append(args, columnValue(c, v))
	}
	if len(sets) == 0 {
		return s.Reload(ctx, inst)
	}
	args = append(args, id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", t.name, strings.Join(sets, ", "), s.dialect.placeholder(len(args)))
	if err := s.exec(ctx, stmt, args, true); err != nil {
		return nil, errors.Wrapf(err, "failed to update %s %s", inst.EntityType().Name, id)
	}
	return s.Reload(ctx, inst)
}

// Reload selects the instance's row
func (s *Store) Reload(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	id := inst.ID()
	if id == "" {
		return nil, ormerrors.ErrMissingID
	}
	t := mapTable(inst.EntityType())

	stmt := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", t.columnList(), t.name, s.dialect.placeholder(1))
	records, err := s.selectRows(ctx, t, stmt, []any{id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ormerrors.ErrEntityNotFound
	}
	return records[0], nil
}

// exec runs a write in its own transaction. With mustAffect, zero affected
// rows is reported as not found.
func (s *Store) exec(ctx context.Context, stmt string, args []any, mustAffect bool) error {
	s.logger.Debug("sqlstore exec", zap.String("sql", stmt), zap.Int("args", len(args)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		return convertDBError(err)
	}
	if mustAffect {
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ormerrors.ErrEntityNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// columnValue converts an attribute value for binding: references bind
// the target id
func columnValue(c column, v any) any {
	if c.reference {
		if id := query.IDOf(v); id != "" {
			return id
		}
		return nil
	}
	return v
}
