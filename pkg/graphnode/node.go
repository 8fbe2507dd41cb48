package graphnode

import (
	"slices"
	"strings"

	"github.com/matzehuels/bindgraph/pkg/container"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/key"
	"github.com/matzehuels/bindgraph/pkg/metadata"
)

// PathSeparator joins parent and extension names in a node path.
const PathSeparator = ">"

// Accessor is an exposed request of the graph.
type Accessor struct {
	Name     string
	Request  key.Contextual
	Location decl.Location
}

// Injector is a members-injection entry point.
type Injector struct {
	Name     string
	Target   key.TypeKey
	Members  []decl.InjectedMember
	Location decl.Location
}

// Instance is a value bound by the graph factory, or the graph itself.
type Instance struct {
	Key      key.TypeKey
	Name     string
	Location decl.Location
}

// Provider is a provider factory together with the container declaring it.
type Provider struct {
	metadata.ProviderFactory
	Container string
}

// Binds is a binds descriptor together with the container declaring it.
type Binds struct {
	metadata.BindsDescriptor
	Container string
}

// Node is the composed view of one graph declaration.
type Node struct {
	Name   string
	Path   string
	Decl   *decl.Graph
	Key    key.TypeKey
	Scopes []string

	Accessors  []Accessor
	Injectors  []Injector
	Instances  []Instance
	Providers  []Provider
	Binds      []Binds
	Containers []string

	// Included are graphs passed to the factory; their accessors are
	// visible as graph dependencies.
	Included []*Node
	// Parent is the graph this extension extends, nil for roots.
	Parent *Node
	// Extensions are the names of child graphs, declared and contributed.
	Extensions []string

	// Diagnostics found while composing the node.
	Diagnostics diag.List
}

// IsRoot reports whether n is processed on its own.
func (n *Node) IsRoot() bool { return n.Parent == nil }

// Ancestors returns the parent chain, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// AllScopes returns the node's scopes followed by its ancestors'.
func (n *Node) AllScopes() []string {
	out := slices.Clone(n.Scopes)
	for _, a := range n.Ancestors() {
		out = append(out, a.Scopes...)
	}
	return out
}

// HasScope reports whether n declares scope itself.
func (n *Node) HasScope(scope string) bool {
	return slices.Contains(n.Scopes, decl.NormalizeScope(scope))
}

// ScopeOwner returns the nearest node (n or an ancestor) declaring scope.
func (n *Node) ScopeOwner(scope string) (*Node, bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.HasScope(scope) {
			return cur, true
		}
	}
	return nil, false
}

// Record returns the persisted metadata of an extendable graph, merged into
// the record of its own container.
func (n *Node) Record(own *container.Container, closure []string) *metadata.Record {
	var r *metadata.Record
	if own != nil {
		r = own.Record(closure)
	} else {
		r = &metadata.Record{Version: metadata.Version, Name: n.Name, Includes: closure}
	}
	r.IsGraph = true
	r.Scopes = slices.Clone(n.Scopes)
	for _, a := range n.Ancestors() {
		r.ParentGraphs = append(r.ParentGraphs, a.Name)
	}
	for _, inc := range n.Included {
		r.IncludedGraphs = append(r.IncludedGraphs, inc.Name)
	}
	r.Normalize()
	return r
}

// String returns the node path.
func (n *Node) String() string { return n.Path }

func childPath(parent *Node, child string) string {
	if parent == nil {
		return child
	}
	return parent.Path + PathSeparator + child
}

func renderCycle(names []string) string { return strings.Join(names, " --> ") }
