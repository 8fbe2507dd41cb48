package seal

import (
	"fmt"
	"strings"

	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/dag"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/generate"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// BreakPoint is a deferred edge closing a cycle. The provider field of To is
// initialized after From.
type BreakPoint struct {
	From key.TypeKey
	To   key.TypeKey
}

// Sealed is a validated binding graph.
type Sealed struct {
	Graph *generate.Graph
	// Order lists the bindings in field-initialization order.
	Order       []*binding.Binding
	BreakPoints []BreakPoint
	// Fields maps every key to its synthetic field identifier.
	Fields map[key.TypeKey]string

	deps *dag.Graph[key.TypeKey]
}

// Options configures sealing.
type Options struct {
	// ShortNames renders keys without package prefixes.
	ShortNames bool
}

// Seal validates g. Problems are returned as a diag.List.
func Seal(g *generate.Graph, opts Options) (*Sealed, error) {
	if !g.OK() {
		return nil, g.Diagnostics
	}

	deps, err := dependencyGraph(g)
	if err != nil {
		return nil, fmt.Errorf("seal %s: %w", g.Name, err)
	}

	var problems diag.List
	problems = append(problems, cycles(g, deps, opts)...)
	problems = append(problems, scopes(g, opts)...)
	if len(problems) > 0 {
		return nil, problems
	}

	order, breaks := deps.InitOrder()
	s := &Sealed{
		Graph:  g,
		Order:  make([]*binding.Binding, 0, len(order)),
		Fields: assignFields(order, fieldDigits),
		deps:   deps,
	}
	for _, k := range order {
		s.Order = append(s.Order, g.Bindings[k])
	}
	for _, bp := range breaks {
		s.BreakPoints = append(s.BreakPoints, BreakPoint{From: bp.From, To: bp.To})
	}
	return s, nil
}

// Dependencies returns the dependency graph used for sealing.
func (s *Sealed) Dependencies() *dag.Graph[key.TypeKey] { return s.deps }

// dependencyGraph adds every binding in resolution order, then one edge per
// dependency. Edges to keys resolved elsewhere do not exist: extensions see
// parent bindings as graph dependencies without dependencies of their own.
func dependencyGraph(g *generate.Graph) (*dag.Graph[key.TypeKey], error) {
	dg := dag.New[key.TypeKey]()
	for _, k := range g.Order {
		dg.AddNode(k)
	}
	for _, k := range g.Order {
		for _, d := range g.Bindings[k].Deps {
			to := d.Raw()
			if !dg.Has(to) {
				continue
			}
			if err := dg.AddEdge(k, to, d.Deferred()); err != nil {
				return nil, err
			}
		}
	}
	return dg, nil
}

func cycles(g *generate.Graph, deps *dag.Graph[key.TypeKey], opts Options) diag.List {
	var out diag.List
	for _, c := range deps.EagerCycles() {
		start := c[0]
		names := make([]string, len(c))
		for i, k := range c {
			names[i] = k.Render(opts.ShortNames)
		}
		rendered := strings.Join(names, " --> ")
		if len(c) == 2 {
			rendered = names[0] + " <--> " + names[0]
		}

		var locs []decl.Location
		for _, k := range c[:len(c)-1] {
			locs = append(locs, g.Bindings[k].Location)
		}
		out = append(out, diag.Diagnostic{
			Kind:      diag.DependencyCycle,
			Graph:     g.Name,
			Key:       names[0],
			Message:   "found a dependency cycle",
			Locations: locs,
			Details:   []string{rendered},
			Trace:     g.Traces[start].Lines(opts.ShortNames),
		})
	}
	return out
}

func scopes(g *generate.Graph, opts Options) diag.List {
	var out diag.List
	n := g.Node
	for _, k := range g.Order {
		b := g.Bindings[k]
		if !b.IsScoped() {
			continue
		}
		if _, ok := n.ScopeOwner(b.Scope); ok {
			continue
		}
		msg := fmt.Sprintf("%s (unscoped) may not reference scoped bindings", n.Path)
		if all := n.AllScopes(); len(all) > 0 {
			msg = fmt.Sprintf("%s (scopes %s) may not reference bindings from different scopes", n.Path, scopeList(all))
		}
		out = append(out, diag.Diagnostic{
			Kind:      diag.IncompatiblyScopedBindings,
			Graph:     g.Name,
			Key:       k.Render(opts.ShortNames),
			Message:   msg,
			Locations: []decl.Location{b.Location},
			Details:   []string{fmt.Sprintf("@%s %s", b.Scope, b.Describe())},
			Trace:     g.Traces[k].Lines(opts.ShortNames),
		})
	}
	return out
}

func scopeList(scopes []string) string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = "@" + s
	}
	return strings.Join(out, ", ")
}
