// Package tms records why each derived triple holds.
//
// A Tracker indexes justifications three ways: by id, by the triple they
// support, and by each source triple they cite. The engine consults it to
// find everything that transitively rests on a retracted triple and to
// answer explain queries. Justification identity is (rule, bindings), so
// adding the same firing twice is a no-op.
package tms

import (
	"sort"
	"sync"

	"github.com/roach88/entail/internal/ir"
)

type idSet map[string]struct{}

// Tracker is the justification index. Safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	byID     map[string]ir.Justification
	byHead   map[ir.Triple]idSet
	bySource map[ir.Triple]idSet
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{
		byID:     make(map[string]ir.Justification),
		byHead:   make(map[ir.Triple]idSet),
		bySource: make(map[ir.Triple]idSet),
	}
}

// Add records j. Returns false if a justification with the same id is
// already recorded or j cites its own head as a source.
func (t *Tracker) Add(j ir.Justification) bool {
	if j.SelfSupporting() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byID[j.ID]; ok {
		return false
	}
	t.byID[j.ID] = j
	link(t.byHead, j.Triple, j.ID)
	for _, src := range j.Sources {
		link(t.bySource, src, j.ID)
	}
	return true
}

// Has reports whether a justification with id is recorded.
func (t *Tracker) Has(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byID[id]
	return ok
}

// Supports returns the justifications of tr, ordered by Seq then ID.
func (t *Tracker) Supports(tr ir.Triple) []ir.Justification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collect(t.byHead[tr])
}

// Supported reports whether tr has at least one justification.
func (t *Tracker) Supported(tr ir.Triple) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byHead[tr]) > 0
}

// Dependents returns the justifications citing tr as a source, ordered by
// Seq then ID.
func (t *Tracker) Dependents(tr ir.Triple) []ir.Justification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collect(t.bySource[tr])
}

// Invalidate drops every justification citing tr and returns the triples
// left with no justification, in Triple.Less order.
func (t *Tracker) Invalidate(tr ir.Triple) []ir.Triple {
	t.mu.Lock()
	defer t.mu.Unlock()

	heads := make(ir.TripleSet)
	for id := range t.bySource[tr] {
		j := t.byID[id]
		t.drop(j)
		heads.Add(j.Triple)
	}

	var orphaned []ir.Triple
	for _, h := range heads.Sorted() {
		if len(t.byHead[h]) == 0 {
			orphaned = append(orphaned, h)
		}
	}
	return orphaned
}

// Forget drops the justifications supporting tr. Justifications citing tr
// are left in place; see Invalidate.
func (t *Tracker) Forget(tr ir.Triple) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id := range t.byHead[tr] {
		t.drop(t.byID[id])
	}
}

// OverDeleteSet returns every triple whose recorded support transitively
// passes through seed. seed itself is included only if it is reached through
// a cycle.
func (t *Tracker) OverDeleteSet(seed ir.Triple) ir.TripleSet {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(ir.TripleSet)
	queue := []ir.Triple{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for id := range t.bySource[cur] {
			h := t.byID[id].Triple
			if out.Add(h) {
				queue = append(queue, h)
			}
		}
	}
	return out
}

// Reset drops every justification.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.byID = make(map[string]ir.Justification)
	t.byHead = make(map[ir.Triple]idSet)
	t.bySource = make(map[ir.Triple]idSet)
}

// Len returns the number of recorded justifications.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// Heads returns every supported triple in Triple.Less order.
func (t *Tracker) Heads() []ir.Triple {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ir.Triple, 0, len(t.byHead))
	for h := range t.byHead {
		out = append(out, h)
	}
	ir.SortTriples(out)
	return out
}

// drop removes j from all indexes. Caller holds mu.
func (t *Tracker) drop(j ir.Justification) {
	delete(t.byID, j.ID)
	unlink(t.byHead, j.Triple, j.ID)
	for _, src := range j.Sources {
		unlink(t.bySource, src, j.ID)
	}
}

func (t *Tracker) collect(ids idSet) []ir.Justification {
	out := make([]ir.Justification, 0, len(ids))
	for id := range ids {
		out = append(out, t.byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func link(idx map[ir.Triple]idSet, k ir.Triple, id string) {
	set, ok := idx[k]
	if !ok {
		set = make(idSet)
		idx[k] = set
	}
	set[id] = struct{}{}
}

func unlink(idx map[ir.Triple]idSet, k ir.Triple, id string) {
	set := idx[k]
	delete(set, id)
	if len(set) == 0 {
		delete(idx, k)
	}
}
