package generate

import (
	"slices"

	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/bindingstack"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/graphnode"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// Root is an entry point of the graph.
type Root struct {
	Name     string
	Request  key.Contextual
	Injector bool
	Location decl.Location
}

// Graph is the generated, unsealed binding graph of one node.
type Graph struct {
	Name string
	Node *graphnode.Node

	// Bindings holds at most one binding per key.
	Bindings map[key.TypeKey]*binding.Binding
	// Order lists the keys in the order they were resolved.
	Order []key.TypeKey
	// Traces holds the request stack at which each key was first resolved.
	Traces map[key.TypeKey]bindingstack.Trace
	Roots  []Root
	// Kept lists keys resolved on behalf of extensions, in request order.
	Kept []key.TypeKey

	Diagnostics diag.List
}

func newGraph(n *graphnode.Node) *Graph {
	return &Graph{
		Name:     n.Path,
		Node:     n,
		Bindings: make(map[key.TypeKey]*binding.Binding),
		Traces:   make(map[key.TypeKey]bindingstack.Trace),
	}
}

// Binding returns the binding for k.
func (g *Graph) Binding(k key.TypeKey) (*binding.Binding, bool) {
	b, ok := g.Bindings[k]
	return b, ok
}

// Ordered returns the bindings in resolution order.
func (g *Graph) Ordered() []*binding.Binding {
	out := make([]*binding.Binding, 0, len(g.Order))
	for _, k := range g.Order {
		out = append(out, g.Bindings[k])
	}
	return out
}

// OK reports whether generation found no problem.
func (g *Graph) OK() bool { return len(g.Diagnostics) == 0 }

// Keeps reports whether k was resolved for an extension.
func (g *Graph) Keeps(k key.TypeKey) bool { return slices.Contains(g.Kept, k) }

func (g *Graph) keep(k key.TypeKey) {
	if !g.Keeps(k) {
		g.Kept = append(g.Kept, k)
	}
}
