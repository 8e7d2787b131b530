package hierarchy

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/panbanda/kindred/pkg/models"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node is a vertex of a ClassGraph: either an analyzed class or an external
// base name that resolves to nothing in the index.
type Node struct {
	id          int64
	Ref         models.ClassRef
	Name        string
	External    bool
	HasChildren bool
}

// ID implements graph.Node. IDs are derived from the class identity, so
// same-named classes in different files stay distinct.
func (n *Node) ID() int64 { return n.id }

// DOTID implements dot.Node.
func (n *Node) DOTID() string {
	if n.External {
		return "external:" + n.Name
	}
	return n.Ref.String()
}

// Key is a short identifier safe for Mermaid.
func (n *Node) Key() string {
	return fmt.Sprintf("c%016x", uint64(n.id))
}

// Attributes implements encoding.Attributer for DOT output.
func (n *Node) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: n.Name}}
	switch {
	case n.External:
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	case n.HasChildren:
		attrs = append(attrs,
			encoding.Attribute{Key: "style", Value: "filled"},
			encoding.Attribute{Key: "fillcolor", Value: "lightblue"},
		)
	}
	return attrs
}

func nodeID(key string) int64 {
	return int64(xxhash.Sum64String(key))
}

// Link is a parent-to-child edge. Ambiguous links come from a base name
// that resolves to several analyzed classes.
type Link struct {
	F, T      *Node
	Ambiguous bool
}

func (e Link) From() graph.Node         { return e.F }
func (e Link) To() graph.Node           { return e.T }
func (e Link) ReversedEdge() graph.Edge { return Link{F: e.T, T: e.F, Ambiguous: e.Ambiguous} }

// Attributes implements encoding.Attributer for DOT output.
func (e Link) Attributes() []encoding.Attribute {
	if e.Ambiguous {
		return []encoding.Attribute{{Key: "style", Value: "dotted"}}
	}
	return nil
}

// ClassGraph is a directed parent-to-child graph ready for rendering.
type ClassGraph struct {
	*simple.DirectedGraph
	Title string
}

// DOTID names the graph in DOT output.
func (g *ClassGraph) DOTID() string { return g.Title }

// DOTAttributers implements dot.Attributers.
func (g *ClassGraph) DOTAttributers() (graphAttrs, nodeAttrs, edgeAttrs encoding.Attributer) {
	return attrList{{Key: "rankdir", Value: "TB"}},
		attrList{{Key: "shape", Value: "box"}},
		attrList{}
}

type attrList []encoding.Attribute

func (a attrList) Attributes() []encoding.Attribute { return a }

// SortedNodes returns the graph's nodes ordered by DOT ID.
func (g *ClassGraph) SortedNodes() []*Node {
	var nodes []*Node
	it := g.Nodes()
	for it.Next() {
		nodes = append(nodes, it.Node().(*Node))
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].DOTID() < nodes[j].DOTID() })
	return nodes
}

// SortedLinks returns the graph's edges ordered by (from, to) DOT ID.
func (g *ClassGraph) SortedLinks() []Link {
	var links []Link
	it := g.Edges()
	for it.Next() {
		links = append(links, it.Edge().(Link))
	}
	sort.Slice(links, func(i, j int) bool {
		fi, fj := links[i].F.DOTID(), links[j].F.DOTID()
		if fi != fj {
			return fi < fj
		}
		return links[i].T.DOTID() < links[j].T.DOTID()
	})
	return links
}

type graphBuilder struct {
	g     *ClassGraph
	nodes map[int64]*Node
}

func newGraphBuilder(title string) *graphBuilder {
	return &graphBuilder{
		g:     &ClassGraph{DirectedGraph: simple.NewDirectedGraph(), Title: title},
		nodes: make(map[int64]*Node),
	}
}

func (b *graphBuilder) class(ref models.ClassRef) *Node {
	id := nodeID(ref.String())
	if n, ok := b.nodes[id]; ok {
		return n
	}
	n := &Node{id: id, Ref: ref, Name: ref.Name}
	b.nodes[id] = n
	b.g.AddNode(n)
	return n
}

func (b *graphBuilder) external(name string) *Node {
	id := nodeID("external:" + name)
	if n, ok := b.nodes[id]; ok {
		return n
	}
	n := &Node{id: id, Name: name, External: true}
	b.nodes[id] = n
	b.g.AddNode(n)
	return n
}

func (b *graphBuilder) link(from, to *Node, ambiguous bool) {
	if from.ID() == to.ID() || b.g.HasEdgeFromTo(from.ID(), to.ID()) {
		return
	}
	from.HasChildren = true
	b.g.SetEdge(Link{F: from, T: to, Ambiguous: ambiguous})
}

// parentNodes returns the nodes a base name refers to.
func (b *graphBuilder) parentNodes(h *Hierarchy, name string) []*Node {
	refs := h.byName[name]
	if len(refs) == 0 {
		return []*Node{b.external(name)}
	}
	nodes := make([]*Node, 0, len(refs))
	for _, ref := range refs {
		nodes = append(nodes, b.class(ref))
	}
	return nodes
}

// Graph returns the full forest: every analyzed class, plus an external
// node for each base name that resolves to nothing.
func (h *Hierarchy) Graph() *ClassGraph {
	b := newGraphBuilder("classes")
	for _, rec := range h.index.Records() {
		b.class(rec.Ref())
	}
	for _, e := range h.edges {
		child := b.class(e.Child)
		parents := b.parentNodes(h, e.Parent)
		for _, p := range parents {
			b.link(p, child, len(parents) > 1)
		}
	}
	return b.g
}

// ParentGraph returns the subgraph of one parent name and its direct
// children.
func (h *Hierarchy) ParentGraph(name string) *ClassGraph {
	b := newGraphBuilder(name)
	parents := b.parentNodes(h, name)
	for _, child := range h.children[name] {
		c := b.class(child)
		for _, p := range parents {
			b.link(p, c, len(parents) > 1)
		}
	}
	return b.g
}

// Cycles returns groups of analyzed classes that inherit from each other,
// directly or transitively. Each group is sorted; groups are ordered by
// their first member.
func (h *Hierarchy) Cycles() [][]models.ClassRef {
	g := h.Graph()
	var cycles [][]models.ClassRef
	for _, component := range topo.TarjanSCC(g) {
		if len(component) < 2 {
			continue
		}
		refs := make([]models.ClassRef, 0, len(component))
		for _, n := range component {
			refs = append(refs, n.(*Node).Ref)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
		cycles = append(cycles, refs)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0].Less(cycles[j][0]) })
	return cycles
}
