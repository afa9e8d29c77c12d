package snapshot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// fullTolerance absorbs float error when direct stakes add up to exactly 100.
const fullTolerance = 100.0001

// Editor applies validated edits to a calculation. It is not safe for
// concurrent use.
type Editor struct {
	calc  Calculation
	newID func() string
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// NewEditor starts editing a copy of calc.
func NewEditor(calc Calculation, opts ...EditorOption) *Editor {
	e := &Editor{calc: clone(normalize(calc)), newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculation returns a copy of the current state.
func (e *Editor) Calculation() Calculation {
	return clone(e.calc)
}

// AddEntity creates an entity. Names are trimmed and must be unique, ignoring case.
func (e *Editor) AddEntity(name string) (model.Entity, error) {
	name, err := e.checkEntityName("", name)
	if err != nil {
		return model.Entity{}, err
	}
	ent := model.Entity{ID: e.newID(), Name: name}
	e.calc.Entities = append(e.calc.Entities, ent)
	return ent, nil
}

// AddObject creates an object. Names are trimmed and must be unique, ignoring case.
func (e *Editor) AddObject(name string) (model.OwnedObject, error) {
	name, err := e.checkObjectName("", name)
	if err != nil {
		return model.OwnedObject{}, err
	}
	obj := model.OwnedObject{ID: e.newID(), Name: name}
	e.calc.Objects = append(e.calc.Objects, obj)
	return obj, nil
}

// RenameEntity changes an entity's name under the same rules as AddEntity.
func (e *Editor) RenameEntity(id, name string) error {
	i := slices.IndexFunc(e.calc.Entities, func(ent model.Entity) bool { return ent.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	name, err := e.checkEntityName(id, name)
	if err != nil {
		return err
	}
	e.calc.Entities[i].Name = name
	return nil
}

// RenameObject changes an object's name under the same rules as AddObject.
func (e *Editor) RenameObject(id, name string) error {
	i := slices.IndexFunc(e.calc.Objects, func(o model.OwnedObject) bool { return o.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownObject, id)
	}
	name, err := e.checkObjectName(id, name)
	if err != nil {
		return err
	}
	e.calc.Objects[i].Name = name
	return nil
}

// DeleteEntity removes an entity and every ownership it holds.
// It returns the number of ownerships removed with it.
func (e *Editor) DeleteEntity(id string) (int, error) {
	before := len(e.calc.Entities)
	e.calc.Entities = slices.DeleteFunc(e.calc.Entities, func(ent model.Entity) bool { return ent.ID == id })
	if len(e.calc.Entities) == before {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEntity, id)
	}
	owner := model.EntityOwner(id)
	return e.dropOwnerships(func(own model.Ownership) bool { return own.Owner == owner }), nil
}

// DeleteObject removes an object, every ownership targeting it and every
// ownership it holds. It returns the number of ownerships removed with it.
func (e *Editor) DeleteObject(id string) (int, error) {
	before := len(e.calc.Objects)
	e.calc.Objects = slices.DeleteFunc(e.calc.Objects, func(o model.OwnedObject) bool { return o.ID == id })
	if len(e.calc.Objects) == before {
		return 0, fmt.Errorf("%w: %q", ErrUnknownObject, id)
	}
	owner := model.ObjectOwner(id)
	return e.dropOwnerships(func(own model.Ownership) bool {
		return own.ObjectID == id || own.Owner == owner
	}), nil
}

// AddOwnership records that owner holds percent of objectID.
//
// The owner and object must exist, percent must be in (0, 100], the pair must
// not already have a record, and the object's direct total after the edit must
// not exceed 100%.
func (e *Editor) AddOwnership(owner model.OwnerRef, objectID string, percent float64) (model.Ownership, error) {
	if err := e.checkEdge("", owner, objectID, percent); err != nil {
		return model.Ownership{}, err
	}
	own := model.Ownership{ID: e.newID(), Owner: owner, ObjectID: objectID, Percent: percent}
	e.calc.Ownerships = append(e.calc.Ownerships, own)
	return own, nil
}

// OwnershipPatch lists the fields UpdateOwnership changes. Nil fields are kept.
type OwnershipPatch struct {
	Owner    *model.OwnerRef
	ObjectID *string
	Percent  *float64
}

// UpdateOwnership applies patch to the ownership with the given id. The
// result is checked with the same rules as AddOwnership, ignoring the record
// being updated.
func (e *Editor) UpdateOwnership(id string, patch OwnershipPatch) (model.Ownership, error) {
	i := slices.IndexFunc(e.calc.Ownerships, func(own model.Ownership) bool { return own.ID == id })
	if i < 0 {
		return model.Ownership{}, fmt.Errorf("%w: %q", ErrUnknownOwnership, id)
	}
	next := e.calc.Ownerships[i]
	if patch.Owner != nil {
		next.Owner = *patch.Owner
	}
	if patch.ObjectID != nil {
		next.ObjectID = *patch.ObjectID
	}
	if patch.Percent != nil {
		next.Percent = *patch.Percent
	}
	if err := e.checkEdge(id, next.Owner, next.ObjectID, next.Percent); err != nil {
		return model.Ownership{}, err
	}
	e.calc.Ownerships[i] = next
	return next, nil
}

// DeleteOwnership removes one ownership record.
func (e *Editor) DeleteOwnership(id string) error {
	if e.dropOwnerships(func(own model.Ownership) bool { return own.ID == id }) == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownOwnership, id)
	}
	return nil
}

// Clear removes all records and keeps the metadata.
func (e *Editor) Clear() {
	e.calc.Entities = []model.Entity{}
	e.calc.Objects = []model.OwnedObject{}
	e.calc.Ownerships = []model.Ownership{}
}

// Replace swaps the whole state for calc, as an import does.
func (e *Editor) Replace(calc Calculation) {
	e.calc = clone(normalize(calc))
}

func (e *Editor) dropOwnerships(match func(model.Ownership) bool) int {
	before := len(e.calc.Ownerships)
	e.calc.Ownerships = slices.DeleteFunc(e.calc.Ownerships, match)
	return before - len(e.calc.Ownerships)
}

func (e *Editor) checkEntityName(selfID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	for _, ent := range e.calc.Entities {
		if ent.ID != selfID && strings.EqualFold(ent.Name, name) {
			return "", fmt.Errorf("%w: entity %q", ErrDuplicateName, name)
		}
	}
	return name, nil
}

func (e *Editor) checkObjectName(selfID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	for _, o := range e.calc.Objects {
		if o.ID != selfID && strings.EqualFold(o.Name, name) {
			return "", fmt.Errorf("%w: object %q", ErrDuplicateName, name)
		}
	}
	return name, nil
}

// checkEdge validates a would-be ownership. selfID names the record being
// replaced, if any, so it does not count against itself.
func (e *Editor) checkEdge(selfID string, owner model.OwnerRef, objectID string, percent float64) error {
	idx := newIndex(e.calc)
	if !idx.hasOwner(owner) {
		if owner.Kind == model.KindEntity {
			return fmt.Errorf("%w: %q", ErrUnknownEntity, owner.ID)
		}
		return fmt.Errorf("%w: owner %q", ErrUnknownObject, owner.ID)
	}
	if !idx.hasObject(objectID) {
		return fmt.Errorf("%w: %q", ErrUnknownObject, objectID)
	}
	if !(percent > 0 && percent <= 100) {
		return fmt.Errorf("%w: got %v", ErrPercentRange, percent)
	}

	current := 0.0
	for _, own := range e.calc.Ownerships {
		if own.ID == selfID {
			continue
		}
		if own.Owner == owner && own.ObjectID == objectID {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicatePair, owner.Key(), model.ObjectKey(objectID))
		}
		if own.ObjectID == objectID {
			current += own.Percent
		}
	}
	if current+percent > fullTolerance {
		return fmt.Errorf("%w (current %.2f%%)", ErrExceedsFull, current)
	}
	return nil
}

func clone(calc Calculation) Calculation {
	out := calc
	if calc.Meta != nil {
		meta := *calc.Meta
		out.Meta = &meta
	}
	out.Entities = slices.Clone(calc.Entities)
	out.Objects = slices.Clone(calc.Objects)
	out.Ownerships = slices.Clone(calc.Ownerships)
	return out
}
