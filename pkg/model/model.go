// Package model defines the nodes and edges of an ownership network.
//
// The network has two node kinds. Entities are terminal owners: nothing in the
// model owns an entity. Objects can be owned and can themselves own other
// objects, which is what makes multi-hop ownership chains possible:
//
//	Alpha (entity) ──40%──> Site A (object) ──50%──> Unit E (object)
//
// An Ownership is a weighted directed edge from an owner (entity or object) to
// an object. The owner side is a tagged variant (OwnerRef) rather than a
// shared base type, so every consumer switches on Kind explicitly.
//
// The package is dependency-free apart from struct validation tags, which are
// interpreted by pkg/snapshot.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which node set an owner reference points into.
type Kind string

const (
	// KindEntity marks a terminal owner.
	KindEntity Kind = "entity"
	// KindObject marks an ownable thing that may also own other objects.
	KindObject Kind = "object"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEntity, KindObject:
		return true
	default:
		return false
	}
}

// ErrInvalidSourceKey is returned when a string is not of the form
// "entity:<id>" or "object:<id>".
var ErrInvalidSourceKey = errors.New("model: invalid source key")

// Entity is a terminal owner.
type Entity struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// OwnedObject is a node that can be owned and can own other objects.
type OwnedObject struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// OwnerRef identifies who holds a share: either an Entity or an OwnedObject.
type OwnerRef struct {
	Kind Kind   `json:"kind" validate:"required,oneof=entity object"`
	ID   string `json:"id" validate:"required"`
}

// EntityOwner returns a reference to the entity with the given id.
func EntityOwner(id string) OwnerRef {
	return OwnerRef{Kind: KindEntity, ID: id}
}

// ObjectOwner returns a reference to the object with the given id.
func ObjectOwner(id string) OwnerRef {
	return OwnerRef{Kind: KindObject, ID: id}
}

// Key returns the canonical source key of the referenced node, e.g. "entity:a".
func (r OwnerRef) Key() string {
	return string(r.Kind) + ":" + r.ID
}

func (r OwnerRef) String() string {
	return r.Key()
}

// ObjectKey returns the node key of an object, "object:<id>".
// Objects appear under this key both as owners and as targets.
func ObjectKey(objectID string) string {
	return string(KindObject) + ":" + objectID
}

// ParseSourceKey splits a source key at its first ':' into an OwnerRef.
// The id part may itself contain ':' characters.
func ParseSourceKey(key string) (OwnerRef, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok {
		return OwnerRef{}, fmt.Errorf("%w: %q has no kind prefix", ErrInvalidSourceKey, key)
	}
	ref := OwnerRef{Kind: Kind(kind), ID: id}
	if !ref.Kind.Valid() {
		return OwnerRef{}, fmt.Errorf("%w: unknown kind %q in %q", ErrInvalidSourceKey, kind, key)
	}
	return ref, nil
}

// Ownership is a direct, weighted ownership edge: Owner holds Percent of the
// object identified by ObjectID. Percent is expressed on a 0-100 scale.
//
// Several Ownership records may share the same (Owner, ObjectID) pair. They
// are summed, not rejected, by the direct aggregator.
type Ownership struct {
	ID       string   `json:"id" validate:"required"`
	Owner    OwnerRef `json:"owner" validate:"required"`
	ObjectID string   `json:"objectId" validate:"required"`
	Percent  float64  `json:"percent" validate:"gt=0,lte=100"`
}

// Weight returns the edge weight as a fraction (Percent / 100).
func (o Ownership) Weight() float64 {
	return o.Percent / 100
}
