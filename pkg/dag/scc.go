package dag

import (
	"fmt"
	"slices"
)

// Component is one strongly connected component.
type Component[V comparable] struct {
	// ID is the emission index of the component.
	ID int
	// Vertices lists the members in discovery order.
	Vertices []V
}

// Size returns the number of members.
func (c Component[V]) Size() int { return len(c.Vertices) }

// Components is the result of [Graph.Components].
type Components[V comparable] struct {
	// List holds the components dependencies-first.
	List []Component[V]
	of   map[V]int
}

// Of returns the id of the component containing v.
func (cs Components[V]) Of(v V) (int, bool) {
	id, ok := cs.of[v]
	return id, ok
}

// Cyclic returns the components of g that contain a cycle: every component
// with more than one member plus singletons with a self edge.
func (cs Components[V]) Cyclic(g *Graph[V]) []Component[V] {
	var out []Component[V]
	for _, c := range cs.List {
		if c.Size() > 1 || g.HasSelfLoop(c.Vertices[0], false) {
			out = append(out, c)
		}
	}
	return out
}

// Components computes the strongly connected components of g with an
// iterative Tarjan traversal over vertices and edges in insertion order.
//
// It panics if an edge targets a vertex that was never added.
func (g *Graph[V]) Components() Components[V] {
	type frame struct {
		v    V
		next int
	}

	var (
		counter int
		index   = make(map[V]int, len(g.order))
		low     = make(map[V]int, len(g.order))
		onStack = make(map[V]bool, len(g.order))
		stack   []V
		result  = Components[V]{of: make(map[V]int, len(g.order))}
	)

	visit := func(v V) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
	}

	for _, root := range g.order {
		if _, seen := index[root]; seen {
			continue
		}
		visit(root)
		call := []frame{{v: root}}

		for len(call) > 0 {
			top := len(call) - 1
			v := call[top].v
			edges := g.outgoing[v]

			if call[top].next < len(edges) {
				w := edges[call[top].next].To
				call[top].next++
				if !g.Has(w) {
					panic(fmt.Sprintf("dag: key not found: %v", w))
				}
				if _, seen := index[w]; !seen {
					visit(w)
					call = append(call, frame{v: w})
				} else if onStack[w] {
					low[v] = min(low[v], index[w])
				}
				continue
			}

			if low[v] == index[v] {
				var members []V
				for {
					n := len(stack) - 1
					w := stack[n]
					stack = stack[:n]
					onStack[w] = false
					members = append(members, w)
					if w == v {
						break
					}
				}
				slices.SortFunc(members, func(a, b V) int { return index[a] - index[b] })
				id := len(result.List)
				for _, m := range members {
					result.of[m] = id
				}
				result.List = append(result.List, Component[V]{ID: id, Vertices: members})
			}

			call = call[:top]
			if top > 0 {
				parent := call[top-1].v
				low[parent] = min(low[parent], low[v])
			}
		}
	}
	return result
}
