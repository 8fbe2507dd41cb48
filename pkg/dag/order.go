package dag

import "slices"

// BreakPoint is a deferred edge that closes a cycle: From is initialized
// before To and reaches it through a provider indirection.
type BreakPoint[V comparable] struct {
	From V
	To   V
}

// EagerCycles returns one cycle per strongly connected component of the eager
// subgraph. Each cycle starts and ends at the member with the lowest insertion
// position, e.g. [A B C A]; an eager self edge yields [A A]. Cycles are ordered
// by the position of their start vertex.
func (g *Graph[V]) EagerCycles() [][]V {
	eg := g.Eager()
	cs := eg.Components()

	var cycles [][]V
	for _, c := range cs.Cyclic(eg) {
		start := c.Vertices[0]
		for _, v := range c.Vertices[1:] {
			if g.Position(v) < g.Position(start) {
				start = v
			}
		}
		cycles = append(cycles, eg.shortestCycle(start, cs))
	}
	slices.SortFunc(cycles, func(a, b []V) int { return g.Position(a[0]) - g.Position(b[0]) })
	return cycles
}

// shortestCycle walks breadth-first from start inside start's component until
// an edge leads back to start.
func (g *Graph[V]) shortestCycle(start V, cs Components[V]) []V {
	comp, _ := cs.Of(start)
	parent := map[V]V{}
	seen := map[V]bool{start: true}
	queue := []V{start}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range g.outgoing[v] {
			if id, _ := cs.Of(e.To); id != comp {
				continue
			}
			if e.To == start {
				path := []V{v}
				for cur := v; cur != start; {
					cur = parent[cur]
					path = append(path, cur)
				}
				slices.Reverse(path)
				return append(path, start)
			}
			if !seen[e.To] {
				seen[e.To] = true
				parent[e.To] = v
				queue = append(queue, e.To)
			}
		}
	}
	return []V{start, start}
}

// InitOrder returns every vertex ordered so that dependencies come before
// their dependents. Inside a cyclic component only eager edges constrain the
// order (ties broken by insertion position), and each deferred edge whose
// target ends up later than its source is returned as a break point.
//
// The result is fully determined by insertion order.
func (g *Graph[V]) InitOrder() ([]V, []BreakPoint[V]) {
	cs := g.Components()
	order := make([]V, 0, len(g.order))
	var breaks []BreakPoint[V]

	for _, c := range cs.List {
		if c.Size() == 1 {
			order = append(order, c.Vertices[0])
			continue
		}
		members := g.orderComponent(c, cs)
		placed := make(map[V]int, len(members))
		for i, v := range members {
			placed[v] = i
		}
		for _, v := range members {
			for _, e := range g.outgoing[v] {
				if j, ok := placed[e.To]; ok && e.Deferred && j > placed[v] {
					breaks = append(breaks, BreakPoint[V]{From: v, To: e.To})
				}
			}
		}
		order = append(order, members...)
	}
	return order, breaks
}

func (g *Graph[V]) orderComponent(c Component[V], cs Components[V]) []V {
	remaining := slices.Clone(c.Vertices)
	slices.SortFunc(remaining, func(a, b V) int { return g.Position(a) - g.Position(b) })
	done := make(map[V]bool, len(remaining))
	out := make([]V, 0, len(remaining))

	ready := func(v V) bool {
		for _, e := range g.outgoing[v] {
			if e.Deferred || e.To == v || done[e.To] {
				continue
			}
			if id, _ := cs.Of(e.To); id == c.ID {
				return false
			}
		}
		return true
	}

	for len(remaining) > 0 {
		pick := 0
		for i, v := range remaining {
			if ready(v) {
				pick = i
				break
			}
		}
		v := remaining[pick]
		done[v] = true
		out = append(out, v)
		remaining = slices.Delete(remaining, pick, pick+1)
	}
	return out
}
