// Package dag provides a small directed graph with labelled edges and the
// strongly-connected-component analysis used to validate binding graphs.
//
// # Overview
//
// Vertices are opaque comparable ids. Insertion order of vertices and of each
// vertex's outgoing edges is preserved; every traversal in this package walks
// in that order, so results never depend on map iteration.
//
//	g := dag.New[string]()
//	g.AddNode("app")
//	g.AddNode("db")
//	g.AddEdge("app", "db", false)
//
// An edge is either eager or deferred. Deferred edges model Provider/Lazy
// requests: they still connect components, but a cycle is only a hard error
// when it can be closed using eager edges alone.
//
// # Strongly Connected Components
//
// [Graph.Components] runs Tarjan's algorithm (iterative, one pass, O(V+E)).
// Components are emitted dependencies-first: a component is listed only after
// every component reachable from it. Each component has a stable integer id
// equal to its emission index, and its members are listed in discovery order.
//
// An edge whose target was never added as a vertex is a programmer error;
// Components panics with "key not found" instead of treating the target as an
// isolated vertex. Use [Graph.Validate] to check a graph built from untrusted
// input first.
//
// # Ordering
//
// [Graph.InitOrder] flattens the component list into an initialization order
// where, inside a cyclic component, members are sorted by eager edges only and
// the deferred edges that close the cycle are reported as break points.
//
// # Concurrency
//
// Graph instances are not safe for concurrent mutation. Read-only analysis of
// a finished graph may run from several goroutines.
package dag
