package layers

import (
	"sort"

	"github.com/Stoky555/ownership-graph/pkg/engine"
	"github.com/Stoky555/ownership-graph/pkg/model"
)

// Visibility records which direct and indirect edge ids are hidden.
// It is a value: toggles return a new Visibility and leave the receiver intact.
type Visibility struct {
	direct   map[string]struct{}
	indirect map[string]struct{}
}

// NewVisibility returns a Visibility with the given ids hidden.
func NewVisibility(hiddenDirect, hiddenIndirect []string) Visibility {
	return Visibility{direct: toSet(hiddenDirect), indirect: toSet(hiddenIndirect)}
}

// DirectHidden reports whether the direct edge id is hidden.
func (v Visibility) DirectHidden(id string) bool {
	_, ok := v.direct[id]
	return ok
}

// IndirectHidden reports whether the indirect edge id is hidden.
func (v Visibility) IndirectHidden(id string) bool {
	_, ok := v.indirect[id]
	return ok
}

// VisibleOwnerships returns the ownerships whose direct id is not hidden, in
// their original order.
func (v Visibility) VisibleOwnerships(ownerships []model.Ownership) []model.Ownership {
	out := make([]model.Ownership, 0, len(ownerships))
	for _, own := range ownerships {
		if !v.DirectHidden(engine.DirectID(own)) {
			out = append(out, own)
		}
	}
	return out
}

// WithoutHiddenIndirect returns totals minus the entries whose indirect id is
// hidden. totals is not modified.
func (v Visibility) WithoutHiddenIndirect(totals engine.Totals) engine.Totals {
	if len(v.indirect) == 0 {
		return totals
	}
	out := make(engine.Totals, len(totals))
	for source, row := range totals {
		kept := make(map[string]float64, len(row))
		for objectID, pct := range row {
			if !v.IndirectHidden(engine.IndirectID(source, objectID)) {
				kept[objectID] = pct
			}
		}
		if len(kept) > 0 {
			out[source] = kept
		}
	}
	return out
}

// ToggleDirect flips the hidden state of a direct edge.
func (v Visibility) ToggleDirect(id string) Visibility {
	return Visibility{direct: toggle(v.direct, id), indirect: v.indirect}
}

// ToggleIndirect flips the hidden state of an indirect edge.
func (v Visibility) ToggleIndirect(id string) Visibility {
	return Visibility{direct: v.direct, indirect: toggle(v.indirect, id)}
}

// HideIndirect returns a Visibility with every row of rows hidden. Used to
// start with an empty indirect overlay.
func (v Visibility) HideIndirect(rows []IndirectRow) Visibility {
	next := copySet(v.indirect)
	for _, r := range rows {
		next[r.ID] = struct{}{}
	}
	return Visibility{direct: v.direct, indirect: next}
}

// HiddenDirect returns the hidden direct ids in sorted order.
func (v Visibility) HiddenDirect() []string { return sortedSet(v.direct) }

// HiddenIndirect returns the hidden indirect ids in sorted order.
func (v Visibility) HiddenIndirect() []string { return sortedSet(v.indirect) }

func toggle(set map[string]struct{}, id string) map[string]struct{} {
	next := copySet(set)
	if _, ok := next[id]; ok {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return next
}

func copySet(set map[string]struct{}) map[string]struct{} {
	next := make(map[string]struct{}, len(set)+1)
	for k := range set {
		next[k] = struct{}{}
	}
	return next
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
