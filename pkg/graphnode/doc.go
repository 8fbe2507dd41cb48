// Package graphnode builds DependencyGraphNodes: the composed,
// declaration-level view of one graph before any binding is resolved.
//
// A [Node] flattens everything a graph can see: its own members, the
// transitive closure of its binding containers (declared, contributed to
// one of its scopes, or passed to its factory), its bound instances, the
// accessors of included graphs, and a parent pointer for graph extensions.
//
// Nodes are memoized by path. A root graph's path is its name; an
// extension's path is its parent's path, ">" and its own name, so the same
// extension attached to two parents yields two nodes.
//
// Two problems are detected here rather than during resolution: a graph
// that includes itself through factory parameters or extensions
// (GraphDependencyCycle), and a scope declared by both a graph and one of
// its ancestors.
package graphnode
