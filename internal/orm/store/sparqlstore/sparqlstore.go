// Package sparqlstore implements the adapter contract against a SPARQL 1.1
// endpoint. Loads translate the query's graph pattern into a SELECT; writes
// send INSERT DATA and DELETE WHERE updates.
package sparqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"github.com/conduit-lang/graphmap/internal/orm/store"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	contentTypeQuery  = "application/sparql-query"
	contentTypeUpdate = "application/sparql-update"
	acceptResults     = "application/sparql-results+json"

	subjectVar = "s"
	projPrefix = "v_"
)

// ErrEndpoint is returned when the endpoint answers with an error status
var ErrEndpoint = errors.New("sparql endpoint")

// Option configures a Store
type Option func(*Store)

// WithUpdateEndpoint sets a separate URL for update requests
func WithUpdateEndpoint(url string) Option {
	return func(s *Store) {
		s.updateURL = url
	}
}

// WithTimeout sets the HTTP request timeout
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.client.SetTimeout(d)
	}
}

// WithClient replaces the HTTP client
func WithClient(c *resty.Client) Option {
	return func(s *Store) {
		s.client = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store implements store.Adapter over SPARQL HTTP
type Store struct {
	client    *resty.Client
	queryURL  string
	updateURL string
	logger    *zap.Logger
}

// New creates a store for the endpoint. Updates go to the same URL unless
// WithUpdateEndpoint is given.
func New(endpoint string, opts ...Option) *Store {
	s := &Store{
		client:    resty.New(),
		queryURL:  endpoint,
		updateURL: endpoint,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildSelect renders the SELECT for q. Disjunctions cannot be expressed as
// one basic graph pattern and are rejected.
func BuildSelect(ctx context.Context, q *query.Query) (string, query.Term, error) {
	if q.HasDisjunction() {
		return "", nil, ormerrors.Unsupportedf("sparql: OR conditions are not supported (%s)", q.String())
	}

	statements, subject, err := q.ToGraphPattern(ctx)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * WHERE {\n")
	filters := make([]string, 0)
	for _, st := range statements {
		b.WriteString("  " + renderTriple(st) + "\n")
		if v, ok := st.Object.(*query.Variable); ok && v.Bound {
			filters = append(filters, renderFilter(v))
		}
	}
	for _, f := range filters {
		b.WriteString("  " + f + "\n")
	}
	for _, attr := range projected(q.EntityType()) {
		fmt.Fprintf(&b, "  OPTIONAL { %s <%s> ?%s%s }\n", renderTerm(subject), attr.Predicate(), projPrefix, attr.Name)
	}
	b.WriteString("}")

	if q.Limit() > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit())
	}
	if q.Offset() > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset())
	}
	return b.String(), subject, nil
}

// projected returns the attributes stored on the subject itself
func projected(et *schema.EntityType) []*schema.Attribute {
	attrs := make([]*schema.Attribute, 0)
	for _, attr := range et.Attributes() {
		if (attr.IsProperty() || attr.IsBelongsTo()) && attr.Predicate() != "" {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

// Load runs the SELECT and folds result rows into one record per subject.
// Multi-valued attributes keep their first value.
func (s *Store) Load(ctx context.Context, q *query.Query) ([]store.Attributes, error) {
	sparql, subject, err := BuildSelect(ctx, q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("sparql select", zap.String(logging.FieldQuery, sparql))

	var rs resultSet
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeQuery).
		SetHeader("Accept", acceptResults).
		SetBody(sparql).
		SetResult(&rs).
		Post(s.queryURL)
	if err != nil {
		return nil, errors.Wrap(err, "sparql select failed")
	}
	if resp.IsError() {
		return nil, toErrorFromResponse(resp)
	}

	pinned := ""
	if iri, ok := subject.(query.IRI); ok {
		pinned = string(iri)
	}

	records := make([]store.Attributes, 0)
	byID := make(map[string]store.Attributes)
	for _, row := range rs.Results.Bindings {
		id := pinned
		if id == "" {
			id = row[subjectVar].Value
		}
		if id == "" {
			continue
		}
		rec, ok := byID[id]
		if !ok {
			rec = store.Attributes{schema.IDAttribute: id}
			byID[id] = rec
			records = append(records, rec)
		}
		for name, cell := range row {
			if !strings.HasPrefix(name, projPrefix) {
				continue
			}
			attr := strings.TrimPrefix(name, projPrefix)
			if _, seen := rec[attr]; !seen {
				rec[attr] = cell.value()
			}
		}
	}
	return records, nil
}

// Save creates new instances and updates persisted ones
func (s *Store) Save(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.IsNew() {
		return s.Create(ctx, inst)
	}
	return s.Update(ctx, inst)
}

// Create inserts the instance's statements. Graph subjects are IRIs chosen
// by the caller, so an id is required.
func (s *Store) Create(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.ID() == "" {
		return nil, errors.Wrapf(ormerrors.ErrMissingID, "cannot create %s", inst.EntityType().Name)
	}
	statements, err := statementsOf(ctx, inst)
	if err != nil {
		return nil, err
	}
	if err := s.update(ctx, insertData(statements)); err != nil {
		return nil, err
	}

	attrs := inst.Attributes().Clone()
	attrs[schema.IDAttribute] = inst.ID()
	return attrs, nil
}

// Update replaces the values of every written predicate, then reloads
func (s *Store) Update(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.ID() == "" {
		return nil, ormerrors.ErrMissingID
	}
	statements, err := statementsOf(ctx, inst)
	if err != nil {
		return nil, err
	}

	ops := make([]string, 0)
	seen := make(map[string]bool)
	for _, st := range statements {
		pred := renderTerm(st.Predicate)
		if st.Predicate == query.IRI(schema.RDFType) || seen[pred] {
			continue
		}
		seen[pred] = true
		ops = append(ops, fmt.Sprintf("DELETE WHERE { <%s> %s ?o }", inst.ID(), pred))
	}
	ops = append(ops, insertData(statements))

	if err := s.update(ctx, strings.Join(ops, " ;\n")); err != nil {
		return nil, err
	}
	return s.Reload(ctx, inst)
}

// Reload selects the instance by id
func (s *Store) Reload(ctx context.Context, inst store.Instance) (store.Attributes, error) {
	if inst.ID() == "" {
		return nil, ormerrors.ErrMissingID
	}
	q, err := query.New(inst.EntityType(), query.WithConditions(map[string]any{schema.IDAttribute: inst.ID()}))
	if err != nil {
		return nil, err
	}
	records, err := s.Load(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ormerrors.ErrEntityNotFound
	}
	return records[0], nil
}

func (s *Store) update(ctx context.Context, sparql string) error {
	s.logger.Debug("sparql update", zap.String(logging.FieldQuery, sparql))

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentTypeUpdate).
		SetBody(sparql).
		Post(s.updateURL)
	if err != nil {
		return errors.Wrap(err, "sparql update failed")
	}
	if resp.IsError() {
		return toErrorFromResponse(resp)
	}
	return nil
}

// statementsOf describes an instance as statements, preferring the
// instance's own description
func statementsOf(ctx context.Context, inst store.Instance) ([]query.Statement, error) {
	if src, ok := inst.(store.StatementSource); ok {
		return src.Statements(ctx)
	}

	et := inst.EntityType()
	subject := query.IRI(inst.ID())
	statements := []query.Statement{{Subject: subject, Predicate: query.IRI(schema.RDFType), Object: query.IRI(et.Type())}}
	attrs := inst.Attributes()
	for _, attr := range projected(et) {
		v, ok := attrs[attr.Name]
		if !ok || v == nil {
			continue
		}
		var object query.Term = query.Literal{Value: v}
		if attr.IsBelongsTo() {
			object = query.IRI(query.IDOf(v))
		}
		statements = append(statements, query.Statement{Subject: subject, Predicate: query.IRI(attr.Predicate()), Object: object})
	}
	return statements, nil
}

func insertData(statements []query.Statement) string {
	lines := make([]string, len(statements))
	for i, st := range statements {
		lines[i] = "  " + renderTriple(st)
	}
	return "INSERT DATA {\n" + strings.Join(lines, "\n") + "\n}"
}

func toErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	if len(body) > 200 {
		body = body[:200]
	}
	return errors.Mark(
		errors.Newf("(HTTP Status: %d) %s", resp.StatusCode(), body),
		ErrEndpoint)
}
