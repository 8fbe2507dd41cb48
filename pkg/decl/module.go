package decl

import (
	"fmt"
	"strings"
	"sync"

	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
)

// Module is one compilation unit. Slices keep declaration order, which the
// resolver relies on for deterministic output. A Module must not be mutated
// after the first lookup.
type Module struct {
	Name       string       `json:"name" yaml:"name" toml:"name"`
	Containers []*Container `json:"containers,omitempty" yaml:"containers,omitempty" toml:"containers,omitempty"`
	Graphs     []*Graph     `json:"graphs,omitempty" yaml:"graphs,omitempty" toml:"graphs,omitempty"`
	Classes    []*Class     `json:"classes,omitempty" yaml:"classes,omitempty" toml:"classes,omitempty"`
	Extensions []Extension  `json:"extensions,omitempty" yaml:"extensions,omitempty" toml:"extensions,omitempty"`

	once       sync.Once
	containers map[string]*Container
	graphs     map[string]*Graph
	classes    map[string]*Class
}

func (m *Module) index() {
	m.once.Do(func() {
		m.containers = make(map[string]*Container, len(m.Containers))
		for _, c := range m.Containers {
			if _, dup := m.containers[c.Name]; !dup {
				m.containers[c.Name] = c
			}
		}
		m.graphs = make(map[string]*Graph, len(m.Graphs))
		for _, g := range m.Graphs {
			if _, dup := m.graphs[g.Name]; !dup {
				m.graphs[g.Name] = g
			}
		}
		m.classes = make(map[string]*Class, len(m.Classes))
		for _, c := range m.Classes {
			if _, dup := m.classes[c.Name]; !dup {
				m.classes[c.Name] = c
			}
		}
	})
}

// Container looks up a binding container by name.
func (m *Module) Container(name string) (*Container, bool) {
	m.index()
	c, ok := m.containers[name]
	return c, ok
}

// Graph looks up a graph declaration by name.
func (m *Module) Graph(name string) (*Graph, bool) {
	m.index()
	g, ok := m.graphs[name]
	return g, ok
}

// Class looks up a class by name.
func (m *Module) Class(name string) (*Class, bool) {
	m.index()
	c, ok := m.classes[name]
	return c, ok
}

// Roots returns the graphs that are processed on their own, in declaration
// order. Graph extensions are only reachable through a parent.
func (m *Module) Roots() []*Graph {
	var out []*Graph
	for _, g := range m.Graphs {
		if !g.Extension {
			out = append(out, g)
		}
	}
	return out
}

// ContributedContainers returns the containers contributed to scope.
func (m *Module) ContributedContainers(scope string) []*Container {
	var out []*Container
	for _, c := range m.Containers {
		if c.ContributesTo != "" && NormalizeScope(c.ContributesTo) == NormalizeScope(scope) {
			out = append(out, c)
		}
	}
	return out
}

// ContributedExtensions returns the graph extensions contributed to scope.
func (m *Module) ContributedExtensions(scope string) []Extension {
	var out []Extension
	for _, e := range m.Extensions {
		if NormalizeScope(e.Scope) == NormalizeScope(scope) {
			out = append(out, e)
		}
	}
	return out
}

// Supertypes returns the declared direct supertypes of the type name.
func (m *Module) Supertypes(name string) []string {
	if c, ok := m.Class(name); ok {
		return c.AllSupertypes()
	}
	if c, ok := m.Container(name); ok {
		return c.Supertypes
	}
	return nil
}

// IsSubtype reports whether sub transitively extends sup. A type is not its
// own subtype.
func (m *Module) IsSubtype(sub, sup string) bool {
	seen := map[string]bool{sub: true}
	queue := m.Supertypes(sub)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == sup {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		queue = append(queue, m.Supertypes(cur)...)
	}
	return false
}

// NormalizeScope strips the annotation marker and surrounding whitespace.
func NormalizeScope(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "@")
}

// Validate checks names and uniqueness. Semantic problems such as missing
// bindings are left to the resolver.
func (m *Module) Validate() error {
	seen := map[string]string{}
	claim := func(kind, name string) error {
		if err := bgerrors.ValidateDeclarationName(name); err != nil {
			return bgerrors.Wrap(bgerrors.ErrCodeInvalidDeclaration, err, "%s in module %q", kind, m.Name)
		}
		k := kind + ":" + name
		if _, dup := seen[k]; dup {
			return bgerrors.New(bgerrors.ErrCodeInvalidDeclaration, "duplicate %s %q", kind, name)
		}
		seen[k] = name
		return nil
	}
	members := func(owner string, ms []Member) error {
		names := map[string]bool{}
		for _, mem := range ms {
			if err := bgerrors.ValidateMemberName(mem.Name); err != nil {
				return bgerrors.Wrap(bgerrors.ErrCodeInvalidDeclaration, err, "in %s", owner)
			}
			if names[mem.Name] {
				return bgerrors.New(bgerrors.ErrCodeInvalidDeclaration, "duplicate member %s#%s", owner, mem.Name)
			}
			names[mem.Name] = true
			if mem.Scope != "" {
				if err := bgerrors.ValidateScopeName(mem.Scope); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, c := range m.Containers {
		if err := claim("container", c.Name); err != nil {
			return err
		}
		if err := members(c.Name, c.Members); err != nil {
			return err
		}
		if c.Companion != nil {
			if err := members(c.CompanionName(), c.Companion.Members); err != nil {
				return err
			}
		}
	}
	for _, g := range m.Graphs {
		if err := claim("graph", g.Name); err != nil {
			return err
		}
		if err := members(g.Name, g.Members); err != nil {
			return err
		}
		for _, s := range g.Scopes {
			if err := bgerrors.ValidateScopeName(s); err != nil {
				return err
			}
		}
	}
	for _, c := range m.Classes {
		if err := claim("class", c.Name); err != nil {
			return err
		}
	}
	for _, e := range m.Extensions {
		if _, ok := m.Graph(e.Graph); !ok {
			return bgerrors.New(bgerrors.ErrCodeInvalidDeclaration, "contributed extension %q is not a declared graph", e.Graph)
		}
		if err := bgerrors.ValidateScopeName(e.Scope); err != nil {
			return err
		}
	}
	return nil
}

// Merge combines modules into one, keeping declaration order. The result is
// validated.
func Merge(name string, mods ...*Module) (*Module, error) {
	out := &Module{Name: name}
	for _, m := range mods {
		if m == nil {
			continue
		}
		out.Containers = append(out.Containers, m.Containers...)
		out.Graphs = append(out.Graphs, m.Graphs...)
		out.Classes = append(out.Classes, m.Classes...)
		out.Extensions = append(out.Extensions, m.Extensions...)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("merge %s: %w", name, err)
	}
	return out, nil
}
