package engine

import (
	"fmt"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// ResolveNames projects an id-keyed table onto display names.
//
// Owner keys become entity or object names and target ids become object
// names. Ids that do not resolve fall back to "Unknown entity (<id>)" or
// "Unknown object (<id>)" instead of failing.
//
// Rows are written in sorted source-key order. When two distinct nodes share a
// display name, the later row replaces the earlier one; this is a limitation
// of name-keyed reporting and the id-keyed table stays authoritative.
func ResolveNames(totals Totals, entities []model.Entity, objects []model.OwnedObject) NamedTotals {
	r := NewResolver(entities, objects)

	out := make(NamedTotals, len(totals))
	for _, source := range sortedKeys(totals) {
		row := totals[source]
		named := make(map[string]float64, len(row))
		for _, objectID := range sortedKeys(row) {
			named[r.ObjectName(objectID)] = row[objectID]
		}
		out[r.SourceName(source)] = named
	}
	return out
}

// Resolver looks up display names by id.
type Resolver struct {
	entities map[string]string
	objects  map[string]string
}

// NewResolver indexes entity and object names. Later duplicates of an id win.
func NewResolver(entities []model.Entity, objects []model.OwnedObject) *Resolver {
	r := &Resolver{
		entities: make(map[string]string, len(entities)),
		objects:  make(map[string]string, len(objects)),
	}
	for _, e := range entities {
		r.entities[e.ID] = e.Name
	}
	for _, o := range objects {
		r.objects[o.ID] = o.Name
	}
	return r
}

// EntityName returns the entity's name or the unknown-entity placeholder.
func (r *Resolver) EntityName(id string) string {
	if name, ok := r.entities[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown entity (%s)", id)
}

// ObjectName returns the object's name or the unknown-object placeholder.
func (r *Resolver) ObjectName(id string) string {
	if name, ok := r.objects[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown object (%s)", id)
}

// OwnerName resolves an owner reference by its kind.
func (r *Resolver) OwnerName(ref model.OwnerRef) string {
	if ref.Kind == model.KindEntity {
		return r.EntityName(ref.ID)
	}
	return r.ObjectName(ref.ID)
}

// SourceName resolves a source key. Keys without the entity prefix are
// treated as objects.
func (r *Resolver) SourceName(key string) string {
	ref, err := model.ParseSourceKey(key)
	if err != nil {
		return r.ObjectName(key)
	}
	return r.OwnerName(ref)
}

// Label resolves a source key to its name, falling back to the raw id rather
// than a placeholder. Used by interactive lists where placeholders are noise.
func (r *Resolver) Label(key string) string {
	ref, err := model.ParseSourceKey(key)
	if err != nil {
		return r.ObjectLabel(key)
	}
	if ref.Kind == model.KindEntity {
		if name, found := r.entities[ref.ID]; found {
			return name
		}
		return ref.ID
	}
	return r.ObjectLabel(ref.ID)
}

// ObjectLabel returns the object's name or its raw id.
func (r *Resolver) ObjectLabel(id string) string {
	if name, ok := r.objects[id]; ok {
		return name
	}
	return id
}
