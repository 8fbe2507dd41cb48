package graphnode

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bindgraph/pkg/cache"
	"github.com/matzehuels/bindgraph/pkg/container"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// ErrNotAGraph is returned when a name does not declare a graph.
var ErrNotAGraph = errors.New("graphnode: not a graph")

// Builder composes nodes for one module.
//
// Nodes of graphs that include each other must be built from a single
// goroutine; the memo is safe for concurrent use, but a cross-goroutine
// include cycle would wait on itself.
type Builder struct {
	module   *decl.Module
	resolver *container.Resolver
	logger   *log.Logger
	nodes    *cache.Memo[string, *Node]
}

// NewBuilder creates a builder that resolves containers with r.
func NewBuilder(r *container.Resolver, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		module:   r.Module(),
		resolver: r,
		logger:   logger,
		nodes:    cache.NewMemo[string, *Node](),
	}
}

// Node returns the node for the root graph name.
func (b *Builder) Node(ctx context.Context, name string) (*Node, error) {
	return b.node(ctx, nil, name, nil)
}

// Extension returns the node of child attached to parent.
func (b *Builder) Extension(ctx context.Context, parent *Node, child string) (*Node, error) {
	return b.node(ctx, parent, child, nil)
}

// Len returns the number of composed nodes.
func (b *Builder) Len() int { return b.nodes.Len() }

// node builds or returns a memoized node. including holds the graph names
// on the current include path.
func (b *Builder) node(ctx context.Context, parent *Node, name string, including []string) (*Node, error) {
	g, ok := b.module.Graph(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAGraph, name)
	}
	n, _, err := b.nodes.Get(childPath(parent, name), func() (*Node, error) {
		return b.compose(ctx, parent, g, append(slices.Clone(including), name))
	})
	return n, err
}

func (b *Builder) compose(ctx context.Context, parent *Node, g *decl.Graph, including []string) (*Node, error) {
	n := &Node{
		Name:   g.Name,
		Path:   childPath(parent, g.Name),
		Decl:   g,
		Key:    key.New(g.Name, key.Qualifier{}),
		Parent: parent,
	}
	for _, s := range g.Scopes {
		n.Scopes = append(n.Scopes, decl.NormalizeScope(s))
	}

	b.checkScopes(n)
	b.collectAccessors(n)
	b.collectInjectors(n)

	roots := []string{g.Name}
	roots = append(roots, g.Containers...)
	for _, s := range n.Scopes {
		for _, c := range b.module.ContributedContainers(s) {
			roots = append(roots, c.Name)
		}
	}

	n.Instances = append(n.Instances, Instance{Key: n.Key, Name: g.Name, Location: g.Location})
	if g.Creator != nil {
		for _, p := range g.Creator.Params {
			k := key.New(p.Type, p.Qualifier)
			switch p.Kind {
			case decl.InstanceParam:
				n.Instances = append(n.Instances, Instance{Key: k, Name: p.Name, Location: p.Location})
			case decl.IncludesParam:
				n.Instances = append(n.Instances, Instance{Key: k, Name: p.Name, Location: p.Location})
				if _, isGraph := b.module.Graph(p.Type); isGraph {
					if err := b.include(ctx, n, p, including); err != nil {
						return nil, err
					}
					continue
				}
				roots = append(roots, p.Type)
			}
		}
	}

	if err := b.collectContainers(ctx, n, roots); err != nil {
		return nil, err
	}
	b.collectExtensions(n)

	if g.Extendable {
		if err := b.publish(ctx, n); err != nil {
			return nil, err
		}
	}
	b.logger.Debug("composed graph node", "graph", n.Path, "providers", len(n.Providers),
		"binds", len(n.Binds), "containers", len(n.Containers), "diagnostics", len(n.Diagnostics))
	return n, nil
}

// checkScopes rejects a scope already declared by an ancestor.
func (b *Builder) checkScopes(n *Node) {
	for _, a := range n.Ancestors() {
		for _, s := range n.Scopes {
			if a.HasScope(s) {
				n.Diagnostics = append(n.Diagnostics, diag.Diagnostic{
					Kind:      diag.StructuralViolation,
					Graph:     n.Path,
					Message:   fmt.Sprintf("graph extension %s declares scope %s, which its ancestor %s already declares", n.Name, s, a.Name),
					Locations: []decl.Location{n.Decl.Location},
				})
			}
		}
	}
}

func (b *Builder) collectAccessors(n *Node) {
	for _, a := range n.Decl.Accessors {
		req, err := key.ParseContextual(a.Type, a.Qualifier, false)
		if err != nil {
			n.Diagnostics = append(n.Diagnostics, diag.Diagnostic{
				Kind:      diag.StructuralViolation,
				Graph:     n.Path,
				Message:   fmt.Sprintf("accessor %s: %v", a.Name, err),
				Locations: []decl.Location{a.Location},
			})
			continue
		}
		n.Accessors = append(n.Accessors, Accessor{Name: a.Name, Request: req, Location: a.Location})
	}
}

func (b *Builder) collectInjectors(n *Node) {
	for _, inj := range n.Decl.Injectors {
		target := key.New(inj.Target, key.Qualifier{})
		members, err := b.module.MemberInjections(inj.Target)
		if err != nil {
			n.Diagnostics = append(n.Diagnostics, diag.Diagnostic{
				Kind:      diag.StructuralViolation,
				Graph:     n.Path,
				Key:       target.String(),
				Message:   fmt.Sprintf("injector %s: %v", inj.Name, err),
				Locations: []decl.Location{inj.Location},
			})
			continue
		}
		n.Injectors = append(n.Injectors, Injector{Name: inj.Name, Target: target, Members: members, Location: inj.Location})
	}
}

// include composes an included graph, reporting a cycle instead of
// recursing into a graph already on the include path.
func (b *Builder) include(ctx context.Context, n *Node, p decl.CreatorParam, including []string) error {
	if i := slices.Index(including, p.Type); i >= 0 {
		cycle := append(slices.Clone(including[i:]), p.Type)
		n.Diagnostics = append(n.Diagnostics, diag.Diagnostic{
			Kind:      diag.GraphDependencyCycle,
			Graph:     n.Path,
			Key:       p.Type,
			Message:   fmt.Sprintf("graph %s includes itself", p.Type),
			Locations: []decl.Location{p.Location},
			Details:   []string{renderCycle(cycle)},
		})
		return nil
	}
	inc, err := b.node(ctx, nil, p.Type, including)
	if err != nil {
		return err
	}
	n.Included = append(n.Included, inc)
	return nil
}

func (b *Builder) collectContainers(ctx context.Context, n *Node, roots []string) error {
	resolved, err := b.resolver.ResolveAllCached(ctx, roots)
	var dl diag.List
	if errors.As(err, &dl) {
		for _, d := range dl {
			if d.Graph == "" {
				d.Graph = n.Path
			}
			n.Diagnostics = append(n.Diagnostics, d)
		}
	} else if err != nil {
		return err
	}
	for _, c := range resolved {
		n.Containers = append(n.Containers, c.Name)
		for _, p := range c.Providers {
			n.Providers = append(n.Providers, Provider{ProviderFactory: p, Container: c.Name})
		}
		for _, bd := range c.Binds {
			n.Binds = append(n.Binds, Binds{BindsDescriptor: bd, Container: c.Name})
		}
	}
	return nil
}

// collectExtensions lists declared and contributed children, reporting a
// child that is already one of n's ancestors.
func (b *Builder) collectExtensions(n *Node) {
	names := slices.Clone(n.Decl.Extensions)
	for _, s := range n.Scopes {
		for _, e := range b.module.ContributedExtensions(s) {
			names = append(names, e.Graph)
		}
	}
	lineage := []string{n.Name}
	for _, a := range n.Ancestors() {
		lineage = append(lineage, a.Name)
	}
	for _, child := range names {
		if slices.Contains(n.Extensions, child) {
			continue
		}
		if slices.Contains(lineage, child) {
			path := slices.Clone(lineage)
			slices.Reverse(path)
			n.Diagnostics = append(n.Diagnostics, diag.Diagnostic{
				Kind:      diag.GraphDependencyCycle,
				Graph:     n.Path,
				Key:       child,
				Message:   fmt.Sprintf("graph extension %s extends itself", child),
				Locations: []decl.Location{n.Decl.Location},
				Details:   []string{renderCycle(append(path, child))},
			})
			continue
		}
		n.Extensions = append(n.Extensions, child)
	}
}

// publish records the metadata of an extendable graph.
func (b *Builder) publish(ctx context.Context, n *Node) error {
	own, err := b.resolver.FindContainer(ctx, n.Name)
	var dl diag.List
	if err != nil && !errors.As(err, &dl) {
		return err
	}
	closure, err := b.resolver.Closure(ctx, n.Name)
	if err != nil && !errors.As(err, &dl) {
		return err
	}
	return b.resolver.Store().Save(ctx, n.Record(own, closure))
}
