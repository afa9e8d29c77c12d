package snapshot

import (
	"errors"
	"fmt"

	"github.com/Stoky555/ownership-graph/pkg/model"
)

// CheckReferences reports every ownership whose owner or target object is not
// part of calc. All problems are joined into one error; each wraps
// ErrDanglingReference.
//
// The engine tolerates dangling references (unknown names degrade to
// placeholders), so this is advisory for callers that want a closed network.
func CheckReferences(calc Calculation) error {
	idx := newIndex(calc)

	var errs []error
	for _, own := range calc.Ownerships {
		if !idx.hasOwner(own.Owner) {
			errs = append(errs, fmt.Errorf("%w: ownership %q owner %s does not exist", ErrDanglingReference, own.ID, own.Owner.Key()))
		}
		if !idx.hasObject(own.ObjectID) {
			errs = append(errs, fmt.Errorf("%w: ownership %q target object %q does not exist", ErrDanglingReference, own.ID, own.ObjectID))
		}
	}
	return errors.Join(errs...)
}

type index struct {
	entities map[string]struct{}
	objects  map[string]struct{}
}

func newIndex(calc Calculation) index {
	idx := index{
		entities: make(map[string]struct{}, len(calc.Entities)),
		objects:  make(map[string]struct{}, len(calc.Objects)),
	}
	for _, e := range calc.Entities {
		idx.entities[e.ID] = struct{}{}
	}
	for _, o := range calc.Objects {
		idx.objects[o.ID] = struct{}{}
	}
	return idx
}

func (idx index) hasObject(id string) bool {
	_, ok := idx.objects[id]
	return ok
}

func (idx index) hasOwner(ref model.OwnerRef) bool {
	switch ref.Kind {
	case model.KindEntity:
		_, ok := idx.entities[ref.ID]
		return ok
	case model.KindObject:
		return idx.hasObject(ref.ID)
	default:
		return false
	}
}
