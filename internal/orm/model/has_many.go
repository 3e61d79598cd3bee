package model

import (
	"context"

	"github.com/conduit-lang/graphmap/internal/logging"
	"github.com/conduit-lang/graphmap/internal/orm/ormerrors"
	"github.com/conduit-lang/graphmap/internal/orm/query"
	"github.com/conduit-lang/graphmap/internal/orm/schema"
	"go.uber.org/zap"
)

// HasMany holds the members of a reverse-keyed collection. Members are
// linked through a belongs_to association on the target type pointing back
// at the owner. The handle populates itself on first access.
type HasMany struct {
	owner     *Entity
	attr      *schema.Attribute
	reverse   *schema.Attribute
	members   []*Entity
	populated bool
}

func (h *HasMany) attribute() {}

// Descriptor returns the schema attribute
func (h *HasMany) Descriptor() *schema.Attribute { return h.attr }

// Unwrap returns the members as []*Entity
func (h *HasMany) Unwrap(ctx context.Context) (any, error) {
	return h.Value(ctx)
}

// Reverse returns the belongs_to attribute on the target type that points
// back at the owner's type
func (h *HasMany) Reverse() (*schema.Attribute, error) {
	if h.reverse != nil {
		return h.reverse, nil
	}
	target, err := h.attr.Target()
	if err != nil {
		return nil, err
	}
	rev := target.HasFor("", h.owner.et)
	if rev == nil || !rev.IsBelongsTo() {
		return nil, ormerrors.Configurationf("expected %s to belong to %s (%s.%s)",
			target.Name, h.owner.et.Name, h.owner.et.Name, h.attr.Name)
	}
	h.reverse = rev
	return rev, nil
}

// Value returns the members, populating them on first call
func (h *HasMany) Value(ctx context.Context) ([]*Entity, error) {
	if err := h.populate(ctx); err != nil {
		return nil, err
	}
	out := make([]*Entity, len(h.members))
	copy(out, h.members)
	return out, nil
}

// populate fetches the members linked to a persisted owner. The reverse key
// is skipped on assignment and linked to the owner directly.
func (h *HasMany) populate(ctx context.Context) error {
	if h.populated {
		return nil
	}
	rev, err := h.Reverse()
	if err != nil {
		return err
	}
	if h.owner.ID() == "" {
		h.members = []*Entity{}
		h.populated = true
		return nil
	}

	c, err := h.find()
	if err != nil {
		return err
	}
	found, err := c.All(ctx)
	if err != nil {
		return err
	}

	h.members = make([]*Entity, 0, len(found))
	for _, member := range found {
		if err := link(ctx, member, rev, h.owner, false); err != nil {
			return err
		}
		if indexOf(h.members, member) < 0 {
			h.members = append(h.members, member)
		}
	}
	h.populated = true

	h.owner.mapper.logger.Debug("populated association",
		zap.String(logging.FieldType, h.owner.et.Name),
		zap.String(logging.FieldAttribute, h.attr.Name),
		zap.Int(logging.FieldCount, len(h.members)))
	return nil
}

// find builds the collection of target entities pointing at the owner
func (h *HasMany) find(opts ...query.Option) (*Collection, error) {
	target, err := h.attr.Target()
	if err != nil {
		return nil, err
	}
	rev, err := h.Reverse()
	if err != nil {
		return nil, err
	}
	base := []query.Option{
		query.WithConditions(map[string]any{rev.Name: h.owner}),
		query.WithSkip(rev.Name),
	}
	return h.owner.mapper.All(target, append(base, opts...)...)
}

// link points member's reverse association at owner, or clears it when
// owner is nil. Materialized links go through Set so a scoped member is
// loaded first; population links the holder directly.
func link(ctx context.Context, member *Entity, rev *schema.Attribute, owner *Entity, materialize bool) error {
	if materialize {
		return member.Set(ctx, rev.Name, owner)
	}
	bt, ok := member.values[rev.Name].(*BelongsTo)
	if !ok {
		return ormerrors.Configurationf("%s.%s is not a belongs_to association", member.et.Name, rev.Name)
	}
	bt.key, bt.value = "", owner
	return nil
}

// Contains reports whether an entity with the same identifier is a member
func (h *HasMany) Contains(ctx context.Context, e *Entity) (bool, error) {
	if err := h.populate(ctx); err != nil {
		return false, err
	}
	return indexOf(h.members, e) >= 0, nil
}

// Len returns the number of members
func (h *HasMany) Len(ctx context.Context) (int, error) {
	if err := h.populate(ctx); err != nil {
		return 0, err
	}
	return len(h.members), nil
}

// Add links every given entity that is not yet a member and appends it
func (h *HasMany) Add(ctx context.Context, members ...*Entity) error {
	if err := h.populate(ctx); err != nil {
		return err
	}
	for _, member := range members {
		if member == nil || indexOf(h.members, member) >= 0 {
			continue
		}
		if err := link(ctx, member, h.reverse, h.owner, true); err != nil {
			return err
		}
		h.members = append(h.members, member)
	}
	return nil
}

// Remove unlinks every given entity that is a member and drops it
func (h *HasMany) Remove(ctx context.Context, members ...*Entity) error {
	if err := h.populate(ctx); err != nil {
		return err
	}
	for _, member := range members {
		i := indexOf(h.members, member)
		if i < 0 {
			continue
		}
		current := h.members[i]
		if err := link(ctx, current, h.reverse, nil, true); err != nil {
			return err
		}
		h.members = append(h.members[:i], h.members[i+1:]...)
	}
	return nil
}

// Replace links every new member not yet present, then unlinks every current
// member absent from members. Members in both sets are left untouched.
func (h *HasMany) Replace(ctx context.Context, members []*Entity) error {
	if err := h.populate(ctx); err != nil {
		return err
	}
	if err := h.Add(ctx, members...); err != nil {
		return err
	}

	stale := make([]*Entity, 0)
	for _, current := range h.members {
		if indexOf(members, current) < 0 {
			stale = append(stale, current)
		}
	}
	return h.Remove(ctx, stale...)
}

// Clear unlinks every member
func (h *HasMany) Clear(ctx context.Context) error {
	if err := h.populate(ctx); err != nil {
		return err
	}
	all := make([]*Entity, len(h.members))
	copy(all, h.members)
	return h.Remove(ctx, all...)
}

// Find returns the members matching the query options, evaluated over the
// populated members
func (h *HasMany) Find(ctx context.Context, opts ...query.Option) (*Collection, error) {
	if err := h.populate(ctx); err != nil {
		return nil, err
	}
	target, err := h.attr.Target()
	if err != nil {
		return nil, err
	}
	q, err := h.owner.mapper.Query(target, opts...)
	if err != nil {
		return nil, err
	}
	c := NewCollection(h.owner.mapper, q)
	if err := c.loader.FromEntities(ctx, h.members); err != nil {
		return nil, err
	}
	return c, nil
}

// Build returns a new unsaved member linked to the owner
func (h *HasMany) Build(ctx context.Context, attrs map[string]any) (*Entity, error) {
	target, err := h.attr.Target()
	if err != nil {
		return nil, err
	}
	member, err := h.owner.mapper.New(ctx, target, attrs)
	if err != nil {
		return nil, err
	}
	if err := h.Add(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// Create builds a linked member and saves it
func (h *HasMany) Create(ctx context.Context, attrs map[string]any) (*Entity, error) {
	member, err := h.Build(ctx, attrs)
	if err != nil {
		return nil, err
	}
	if err := member.Save(ctx); err != nil {
		return nil, err
	}
	return member, nil
}

// FindOrCreate returns the member with attrs["id"] when present, otherwise
// creates a linked member
func (h *HasMany) FindOrCreate(ctx context.Context, attrs map[string]any) (*Entity, error) {
	if err := h.populate(ctx); err != nil {
		return nil, err
	}
	if id := query.IDOf(attrs[schema.IDAttribute]); id != "" {
		for _, member := range h.members {
			if member.ID() == id {
				return member, nil
			}
		}
	}
	return h.Create(ctx, attrs)
}
