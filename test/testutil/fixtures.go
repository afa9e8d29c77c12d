package testutil

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

var fixedTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// NetworkSize controls the shape of a generated network.
type NetworkSize struct {
	Entities int
	Objects  int
	// Fanout is the number of owners drawn for each object.
	Fanout int
	// Acyclic restricts object owners to lower-numbered objects.
	Acyclic bool
}

// Network builds a deterministic pseudo-random calculation for benchmarks and
// store round trips. Each object's owner shares sum to at most 100%.
func Network(seed uint64, size NetworkSize) snapshot.Calculation {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	calc := snapshot.New(fmt.Sprintf("generated-%d", seed), fixedTime)

	for i := range size.Entities {
		calc.Entities = append(calc.Entities, model.Entity{ID: fmt.Sprintf("e%d", i), Name: fmt.Sprintf("Entity %d", i)})
	}
	for i := range size.Objects {
		calc.Objects = append(calc.Objects, model.OwnedObject{ID: fmt.Sprintf("o%d", i), Name: fmt.Sprintf("Object %d", i)})
	}

	n := 0
	for obj := range size.Objects {
		remaining := 100.0
		for range size.Fanout {
			owner, ok := pickOwner(rng, size, obj)
			if !ok || remaining < 1 {
				break
			}
			pct := float64(1 + rng.IntN(int(remaining/2)+1))
			remaining -= pct
			calc.Ownerships = append(calc.Ownerships, model.Ownership{
				ID:       fmt.Sprintf("own-%d", n),
				Owner:    owner,
				ObjectID: fmt.Sprintf("o%d", obj),
				Percent:  pct,
			})
			n++
		}
	}
	return calc
}

func pickOwner(rng *rand.Rand, size NetworkSize, obj int) (model.OwnerRef, bool) {
	objectPool := size.Objects
	if size.Acyclic {
		objectPool = obj
	}
	total := size.Entities + objectPool
	if total == 0 {
		return model.OwnerRef{}, false
	}
	i := rng.IntN(total)
	if i < size.Entities {
		return model.EntityOwner(fmt.Sprintf("e%d", i)), true
	}
	target := i - size.Entities
	if target == obj {
		// Self-ownership is legal but rarely useful in generated data.
		return model.EntityOwner(fmt.Sprintf("e%d", rng.IntN(max(size.Entities, 1)))), size.Entities > 0
	}
	return model.ObjectOwner(fmt.Sprintf("o%d", target)), true
}
