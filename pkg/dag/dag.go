package dag

import (
	"errors"
	"slices"
)

var (
	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From vertex
	// has not been added.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.Validate] when an edge points
	// at a vertex that was never added.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [Graph.Validate] when the graph contains
	// a cycle made of eager edges only. Cycles are detected using depth-first
	// search with white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains an eager cycle")
)

// Edge is a directed connection from a vertex to one of its dependencies.
type Edge[V comparable] struct {
	To V
	// Deferred marks a Provider/Lazy request that does not need the target to
	// exist when the source is constructed.
	Deferred bool
}

// Graph is a directed graph with insertion-ordered vertices and edges.
// The zero value is not usable - use New.
type Graph[V comparable] struct {
	order    []V
	index    map[V]int
	outgoing map[V][]Edge[V]
	incoming map[V][]V
}

// New creates an empty graph.
func New[V comparable]() *Graph[V] {
	return &Graph[V]{
		index:    make(map[V]int),
		outgoing: make(map[V][]Edge[V]),
		incoming: make(map[V][]V),
	}
}

// AddNode adds v if it is not present yet. It reports whether v was added.
func (g *Graph[V]) AddNode(v V) bool {
	if _, ok := g.index[v]; ok {
		return false
	}
	g.index[v] = len(g.order)
	g.order = append(g.order, v)
	return true
}

// AddEdge adds an edge from → to. The source must exist. The target is not
// checked here; see Validate.
func (g *Graph[V]) AddEdge(from, to V, deferred bool) error {
	if _, ok := g.index[from]; !ok {
		return ErrUnknownSourceNode
	}
	g.outgoing[from] = append(g.outgoing[from], Edge[V]{To: to, Deferred: deferred})
	g.incoming[to] = append(g.incoming[to], from)
	return nil
}

// Has reports whether v is a vertex.
func (g *Graph[V]) Has(v V) bool {
	_, ok := g.index[v]
	return ok
}

// Nodes returns the vertices in insertion order. The slice is a copy.
func (g *Graph[V]) Nodes() []V { return slices.Clone(g.order) }

// NodeCount returns the number of vertices.
func (g *Graph[V]) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges.
func (g *Graph[V]) EdgeCount() int {
	n := 0
	for _, es := range g.outgoing {
		n += len(es)
	}
	return n
}

// Position returns the insertion index of v, or -1.
func (g *Graph[V]) Position(v V) int {
	if i, ok := g.index[v]; ok {
		return i
	}
	return -1
}

// Edges returns the outgoing edges of v in insertion order. The returned
// slice should be treated as read-only.
func (g *Graph[V]) Edges(v V) []Edge[V] { return g.outgoing[v] }

// Children returns the targets of v's outgoing edges.
func (g *Graph[V]) Children(v V) []V {
	es := g.outgoing[v]
	out := make([]V, len(es))
	for i, e := range es {
		out[i] = e.To
	}
	return out
}

// Parents returns the sources of edges into v.
func (g *Graph[V]) Parents(v V) []V { return g.incoming[v] }

// HasSelfLoop reports whether v has an edge to itself. With eagerOnly set,
// deferred self edges are ignored.
func (g *Graph[V]) HasSelfLoop(v V, eagerOnly bool) bool {
	for _, e := range g.outgoing[v] {
		if e.To == v && (!eagerOnly || !e.Deferred) {
			return true
		}
	}
	return false
}

// Eager returns a copy of g without deferred edges.
func (g *Graph[V]) Eager() *Graph[V] {
	out := New[V]()
	for _, v := range g.order {
		out.AddNode(v)
	}
	for _, v := range g.order {
		for _, e := range g.outgoing[v] {
			if !e.Deferred {
				_ = out.AddEdge(v, e.To, false)
			}
		}
	}
	return out
}

// Validate checks that every edge target is a vertex and that no cycle can
// be closed with eager edges alone.
func (g *Graph[V]) Validate() error {
	for _, v := range g.order {
		for _, e := range g.outgoing[v] {
			if !g.Has(e.To) {
				return ErrUnknownTargetNode
			}
		}
	}
	return g.detectEagerCycles()
}

func (g *Graph[V]) detectEagerCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[V]int, len(g.order))
	var hasCycle bool

	var dfs func(v V)
	dfs = func(v V) {
		color[v] = gray
		for _, e := range g.outgoing[v] {
			if e.Deferred {
				continue
			}
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[v] = black
	}

	for _, v := range g.order {
		if color[v] == white {
			dfs(v)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}
