// Package schema provides a registry for managing entity types
package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	utilstrings "github.com/conduit-lang/graphmap/internal/util/strings"
)

var (
	classify  = utilstrings.Classify
	pluralize = utilstrings.Pluralize
)

// Registry manages all entity types known to a mapper. Registration and
// resolution are separate phases: Register only stores types, Resolve
// computes type IRIs, predicates and association targets once every type is
// present, so declaration order never matters.
type Registry struct {
	types    map[string]*EntityType
	order    []string
	byType   map[string]*EntityType
	resolved bool
	mu       sync.RWMutex
}

// NewRegistry creates a new entity type registry
func NewRegistry() *Registry {
	return &Registry{
		types:  make(map[string]*EntityType),
		order:  make([]string, 0),
		byType: make(map[string]*EntityType),
	}
}

// Register adds an entity type. The registry must be resolved again before use.
func (r *Registry) Register(et *EntityType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if et == nil || et.Name == "" {
		return ormerrors.Configurationf("entity type must have a name")
	}
	if _, exists := r.types[et.Name]; exists {
		return ormerrors.Configurationf("entity type %s is already registered", et.Name)
	}

	r.types[et.Name] = et
	r.order = append(r.order, et.Name)
	r.resolved = false
	return nil
}

// MustRegister registers every type and panics on error
func (r *Registry) MustRegister(types ...*EntityType) {
	for _, et := range types {
		if err := r.Register(et); err != nil {
			panic(err)
		}
	}
}

// Resolve computes type IRIs and predicates and links association targets.
// Unresolvable targets do not fail here; they are recorded on the attribute
// and reported by Attribute.Target at first use. Two types claiming the same
// type IRI are a configuration error.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byType = make(map[string]*EntityType, len(r.types))
	for _, name := range r.order {
		et := r.types[name]
		et.typeIRI = et.computeType()
		if et.typeIRI == "" {
			continue
		}
		if other, exists := r.byType[et.typeIRI]; exists {
			return ormerrors.Configurationf("entity types %s and %s share type %s", other.Name, et.Name, et.typeIRI)
		}
		r.byType[et.typeIRI] = et
	}

	for _, name := range r.order {
		et := r.types[name]
		for _, attr := range et.Attributes() {
			attr.predicate = attr.computePredicate()
			if attr.IsProperty() {
				attr.resolved = true
				continue
			}
			attr.target, attr.targetErr = r.resolveTarget(attr)
			attr.resolved = true
		}
	}

	r.resolved = true
	return nil
}

// resolveTarget finds the association target: explicit type name first,
// then the naming convention against the owner's namespace
func (r *Registry) resolveTarget(attr *Attribute) (*EntityType, error) {
	if attr.targetName != "" {
		if target, ok := r.types[attr.targetName]; ok {
			return target, nil
		}
		return nil, ormerrors.Configurationf("could not find association type %s for %s (%s :%s)",
			attr.targetName, attr.Owner.Name, attr.Class, attr.Name)
	}

	if term := attr.Owner.Term(attr.conventionalTypeName()); term != "" {
		if target, ok := r.byType[term]; ok {
			return target, nil
		}
	}
	return nil, ormerrors.Configurationf("could not find association type for %s (%s :%s)",
		attr.Owner.Name, attr.Class, attr.Name)
}

// IsResolved returns true when Resolve has run since the last registration
func (r *Registry) IsResolved() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolved
}

// Lookup retrieves an entity type by name
func (r *Registry) Lookup(name string) (*EntityType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	et, ok := r.types[name]
	return et, ok
}

// MustLookup retrieves an entity type by name or returns a configuration error
func (r *Registry) MustLookup(name string) (*EntityType, error) {
	et, ok := r.Lookup(name)
	if !ok {
		return nil, ormerrors.Configurationf("unknown entity type %s", name)
	}
	return et, nil
}

// ByType returns the entity type with the given type IRI
func (r *Registry) ByType(iri string) (*EntityType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if iri == "" {
		return nil, false
	}
	et, ok := r.byType[iri]
	return et, ok
}

// List returns the sorted names of all registered types
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered types
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types)
}

// RegistryStats summarizes registered metadata
type RegistryStats struct {
	TotalTypes        int
	TotalProperties   int
	TotalAssociations int
	Unresolved        []string // "Type.attribute" entries whose target failed to resolve
}

// GetStats returns statistics about the registry
func (r *Registry) GetStats() *RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &RegistryStats{TotalTypes: len(r.types)}
	for _, name := range r.order {
		for _, attr := range r.types[name].Attributes() {
			if attr.IsProperty() {
				stats.TotalProperties++
				continue
			}
			stats.TotalAssociations++
			if attr.resolved && attr.targetErr != nil {
				stats.Unresolved = append(stats.Unresolved, fmt.Sprintf("%s.%s", name, attr.Name))
			}
		}
	}
	return stats
}
