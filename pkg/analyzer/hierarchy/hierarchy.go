// Package hierarchy inverts declared base classes into a parent-to-children
// index over a RepositoryIndex.
package hierarchy

import (
	"sort"

	"github.com/panbanda/kindred/pkg/models"
)

// Edge is a declared (parent name, child class) relationship. The parent is
// a bare name and need not resolve to any analyzed class.
type Edge struct {
	Parent string          `json:"parent"`
	Child  models.ClassRef `json:"child"`
}

// Hierarchy is the parent index built from a RepositoryIndex. It is
// immutable after Build.
type Hierarchy struct {
	index    models.RepositoryIndex
	children map[string][]models.ClassRef
	byName   map[string][]models.ClassRef
	edges    []Edge
}

// Build walks files in lexicographic order and classes in lexicographic
// name order, appending one edge per declared parent. Duplicate
// (parent, child) edges are dropped. Cycles need no special handling
// because construction is a single pass over declarations.
func Build(idx models.RepositoryIndex) *Hierarchy {
	h := &Hierarchy{
		index:    idx,
		children: make(map[string][]models.ClassRef),
		byName:   make(map[string][]models.ClassRef),
	}

	seen := make(map[Edge]bool)
	for _, rec := range idx.Records() {
		ref := rec.Ref()
		h.byName[rec.Name] = append(h.byName[rec.Name], ref)

		for _, parent := range rec.Parents {
			e := Edge{Parent: parent, Child: ref}
			if seen[e] {
				continue
			}
			seen[e] = true
			h.edges = append(h.edges, e)
			h.children[parent] = append(h.children[parent], ref)
		}
	}

	return h
}

// Index returns the index the hierarchy was built from.
func (h *Hierarchy) Index() models.RepositoryIndex {
	return h.index
}

// Parents returns every name that appears as a declared base, sorted.
func (h *Hierarchy) Parents() []string {
	names := make([]string, 0, len(h.children))
	for name := range h.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Children returns the classes declaring name as a base, in build order.
func (h *Hierarchy) Children(name string) []models.ClassRef {
	return append([]models.ClassRef(nil), h.children[name]...)
}

// Edges returns all edges in build order.
func (h *Hierarchy) Edges() []Edge {
	return append([]Edge(nil), h.edges...)
}

// Resolve returns the analyzed classes carrying name. More than one result
// means the bare name is ambiguous across files.
func (h *Hierarchy) Resolve(name string) []models.ClassRef {
	return append([]models.ClassRef(nil), h.byName[name]...)
}

// IsRoot reports whether none of the class's declared parents resolves to an
// analyzed class. Unknown refs are not roots.
func (h *Hierarchy) IsRoot(ref models.ClassRef) bool {
	rec, ok := h.index.Get(ref)
	if !ok {
		return false
	}
	for _, p := range rec.Parents {
		if len(h.byName[p]) > 0 {
			return false
		}
	}
	return true
}

// IsLeaf reports whether no class declares this class's name as a base.
// Unknown refs are not leaves.
func (h *Hierarchy) IsLeaf(ref models.ClassRef) bool {
	if _, ok := h.index.Get(ref); !ok {
		return false
	}
	return len(h.children[ref.Name]) == 0
}

// Roots returns all root classes ordered by file, then name.
func (h *Hierarchy) Roots() []models.ClassRef {
	return h.filter(h.IsRoot)
}

// Leaves returns all leaf classes ordered by file, then name.
func (h *Hierarchy) Leaves() []models.ClassRef {
	return h.filter(h.IsLeaf)
}

func (h *Hierarchy) filter(keep func(models.ClassRef) bool) []models.ClassRef {
	var out []models.ClassRef
	for _, rec := range h.index.Records() {
		if ref := rec.Ref(); keep(ref) {
			out = append(out, ref)
		}
	}
	return out
}

// Depth returns the longest chain of in-repo ancestors above ref, following
// every resolution of ambiguous names. Cycles stop the walk.
func (h *Hierarchy) Depth(ref models.ClassRef) int {
	return h.depth(ref, make(map[models.ClassRef]bool))
}

func (h *Hierarchy) depth(ref models.ClassRef, visiting map[models.ClassRef]bool) int {
	if visiting[ref] {
		return 0
	}
	rec, ok := h.index.Get(ref)
	if !ok {
		return 0
	}
	visiting[ref] = true
	defer delete(visiting, ref)

	best := 0
	for _, p := range rec.Parents {
		for _, parentRef := range h.byName[p] {
			if d := h.depth(parentRef, visiting) + 1; d > best {
				best = d
			}
		}
	}
	return best
}
