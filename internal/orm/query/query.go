package query

import (
	"context"
	"sort"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"go.uber.org/zap"
)

// Option configures a Query
type Option func(*options)

type options struct {
	conditions map[string]any
	template   string
	args       []any
	hasTmpl    bool
	include    []string
	skip       []string
	limit      int
	offset     int
	resolver   Resolver
	logger     *zap.Logger
}

// WithConditions builds the top level from a structured key/value map.
// Keys are visited in sorted order. A sequence value expands into one
// condition per element joined by the level's combinator (AND).
func WithConditions(conditions map[string]any) Option {
	return func(o *options) {
		o.conditions = conditions
	}
}

// WithTemplate builds the condition tree from the template grammar and its
// ordered bound values
func WithTemplate(template string, args ...any) Option {
	return func(o *options) {
		o.template = template
		o.args = args
		o.hasTmpl = true
	}
}

// WithInclude names associations to eager-load
func WithInclude(names ...string) Option {
	return func(o *options) {
		o.include = append(o.include, names...)
	}
}

// WithSkip names attributes that must not be assigned back from results
func WithSkip(names ...string) Option {
	return func(o *options) {
		o.skip = append(o.skip, names...)
	}
}

// WithLimit caps the number of results. Zero means no limit.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithOffset skips the first n results
func WithOffset(n int) Option {
	return func(o *options) {
		o.offset = n
	}
}

// WithResolver sets the lookup used to resolve association keys
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Query is an ordered list of clauses over one entity type with a single
// combinator per level. A nested Query is one clause of its parent.
type Query struct {
	et         *schema.EntityType
	clauses    []Clause
	combinator Combinator
	include    []string
	skip       []string
	limit      int
	offset     int
	resolver   Resolver
	logger     *zap.Logger
}

// New builds a query for et
func New(et *schema.EntityType, opts ...Option) (*Query, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	q := &Query{
		et:         et,
		clauses:    make([]Clause, 0),
		combinator: And,
		include:    append([]string(nil), o.include...),
		skip:       append([]string(nil), o.skip...),
		limit:      o.limit,
		offset:     o.offset,
		resolver:   o.resolver,
		logger:     o.logger,
	}
	if q.logger == nil {
		q.logger = zap.NewNop()
	}

	if o.conditions != nil {
		if err := q.addMap(o.conditions); err != nil {
			return nil, err
		}
	}
	if o.hasTmpl {
		if err := q.parseTemplate(o.template, o.args); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// MustNew is like New but panics on error
func MustNew(et *schema.EntityType, opts ...Option) *Query {
	q, err := New(et, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

func (q *Query) child() *Query {
	return &Query{
		et:         q.et,
		clauses:    make([]Clause, 0),
		combinator: And,
		resolver:   q.resolver,
		logger:     q.logger,
	}
}

func (q *Query) addMap(conditions map[string]any) error {
	keys := make([]string, 0, len(conditions))
	for key := range conditions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := conditions[key]
		items, ok := asSlice(value)
		if !ok {
			items = []any{value}
		}
		if len(items) == 0 {
			return ormerrors.Resolutionf("no value assigned to %s", key)
		}
		for _, item := range items {
			if err := q.Where(key, OpEqual, item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Where appends one condition at the top level
func (q *Query) Where(key string, op Operator, value any) error {
	cond, err := newCondition(q, key, value, op)
	if err != nil {
		return err
	}
	q.clauses = append(q.clauses, cond)
	return nil
}

// EntityType returns the queried type
func (q *Query) EntityType() *schema.EntityType { return q.et }

// Combinator returns the combinator of the top level
func (q *Query) Combinator() Combinator { return q.combinator }

// Limit returns the result cap, zero when unlimited
func (q *Query) Limit() int { return q.limit }

// Offset returns the number of results to skip
func (q *Query) Offset() int { return q.offset }

// Includes returns the association names to eager-load
func (q *Query) Includes() []string { return q.include }

// Include adds an eager-load hint
func (q *Query) Include(name string) {
	for _, existing := range q.include {
		if existing == name {
			return
		}
	}
	q.include = append(q.include, name)
}

// Skip returns attribute names excluded from assignment
func (q *Query) Skip() []string { return q.skip }

// Skips reports whether name is excluded from assignment
func (q *Query) Skips(name string) bool {
	for _, s := range q.skip {
		if s == name {
			return true
		}
	}
	return false
}

// Resolver returns the association resolver, if any
func (q *Query) Resolver() Resolver { return q.resolver }

// Clauses returns every clause at the top level, including unrecognized keys
func (q *Query) Clauses() []Clause { return q.clauses }

// Conditions returns the clauses at the top level as consumed by matching
// and translation. Conditions on keys that are neither id nor a declared
// attribute are dropped.
func (q *Query) Conditions() []Clause {
	result := make([]Clause, 0, len(q.clauses))
	for _, clause := range q.clauses {
		if cond, ok := clause.(*Condition); ok && !cond.Recognized() {
			q.logger.Debug("dropping condition on unknown attribute",
				zap.String("type", q.et.Name),
				zap.String("key", cond.key))
			continue
		}
		result = append(result, clause)
	}
	return result
}

// Flatten returns the recognized conditions of every level
func (q *Query) Flatten() []*Condition {
	result := make([]*Condition, 0)
	for _, clause := range q.Conditions() {
		switch c := clause.(type) {
		case *Condition:
			result = append(result, c)
		case *Query:
			result = append(result, c.Flatten()...)
		}
	}
	return result
}

// Get returns the raw value of the first top-level condition named name
func (q *Query) Get(name string) any {
	for _, clause := range q.Conditions() {
		if cond, ok := clause.(*Condition); ok && cond.Name() == name {
			return cond.value
		}
	}
	return nil
}

// ID returns the identifier pinned by a top-level id condition, if any
func (q *Query) ID() string {
	v := q.Get(schema.IDAttribute)
	if _, isSeq := v.([]any); isSeq {
		return ""
	}
	return IDOf(v)
}

// HasDisjunction reports whether any level combines with OR
func (q *Query) HasDisjunction() bool {
	if q.combinator == Or {
		return true
	}
	for _, clause := range q.clauses {
		if sub, ok := clause.(*Query); ok && sub.HasDisjunction() {
			return true
		}
	}
	return false
}

// Matches reports whether rec is of the queried type and passes the
// conditions: all of them under AND, at least one under OR
func (q *Query) Matches(ctx context.Context, rec Record) (bool, error) {
	if rec == nil || rec.EntityType() != q.et {
		return false, nil
	}

	clauses := q.Conditions()
	if len(clauses) == 0 {
		return true, nil
	}

	for _, clause := range clauses {
		ok, err := clause.Matches(ctx, rec)
		if err != nil {
			return false, err
		}
		if q.combinator == Or && ok {
			return true, nil
		}
		if q.combinator == And && !ok {
			return false, nil
		}
	}
	return q.combinator == And, nil
}

// String renders the condition tree
func (q *Query) String() string {
	parts := make([]string, 0, len(q.clauses))
	for _, clause := range q.Conditions() {
		if sub, ok := clause.(*Query); ok {
			parts = append(parts, "("+sub.String()+")")
			continue
		}
		parts = append(parts, clause.String())
	}
	return strings.Join(parts, " "+q.combinator.String()+" ")
}
