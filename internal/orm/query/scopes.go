package query

import (
	"sort"
	"strings"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
)

// Scope is a named, reusable condition template. Its placeholders are bound
// when the scope is applied.
type Scope struct {
	Name     string
	Type     string
	Template string
	Limit    int
}

// Arity returns the number of bound values the template consumes
func (s *Scope) Arity() int {
	return strings.Count(s.Template, Placeholder)
}

// Options validates et and args against the scope and returns the query
// options it stands for
func (s *Scope) Options(et *schema.EntityType, args []any) ([]Option, error) {
	if s.Type != "" && s.Type != et.Name {
		return nil, ormerrors.Configurationf("scope %s applies to %s, not %s", s.Name, s.Type, et.Name)
	}
	if len(args) != s.Arity() {
		return nil, ormerrors.Configurationf("scope %s expects %d arguments, got %d", s.Name, s.Arity(), len(args))
	}

	opts := []Option{WithTemplate(s.Template, args...)}
	if s.Limit > 0 {
		opts = append(opts, WithLimit(s.Limit))
	}
	return opts, nil
}

// Bind builds a query for et from the scope template and args. Extra
// options are applied after the scope's own.
func (s *Scope) Bind(et *schema.EntityType, args []any, opts ...Option) (*Query, error) {
	all, err := s.Options(et, args)
	if err != nil {
		return nil, err
	}
	return New(et, append(all, opts...)...)
}

// ScopeRegistry holds named scopes
type ScopeRegistry struct {
	scopes map[string]*Scope
}

// NewScopeRegistry creates a new scope registry
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{
		scopes: make(map[string]*Scope),
	}
}

// Register registers a scope, replacing any scope with the same name
func (sr *ScopeRegistry) Register(scope *Scope) {
	sr.scopes[scope.Name] = scope
}

// Get retrieves a scope by name
func (sr *ScopeRegistry) Get(name string) (*Scope, error) {
	scope, ok := sr.scopes[name]
	if !ok {
		return nil, ormerrors.Configurationf("unknown scope: %s", name)
	}
	return scope, nil
}

// Has checks if a scope exists
func (sr *ScopeRegistry) Has(name string) bool {
	_, ok := sr.scopes[name]
	return ok
}

// List returns all registered scope names, sorted
func (sr *ScopeRegistry) List() []string {
	names := make([]string, 0, len(sr.scopes))
	for name := range sr.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
