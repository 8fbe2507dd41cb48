package generate

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/bindingstack"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/graphnode"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// Generator resolves the binding graph of one node.
type Generator struct {
	node   *graphnode.Node
	module *decl.Module
	parent *Generator
	logger *log.Logger
	short  bool

	tab   table
	graph *Graph
	stack *bindingstack.Stack
	diags *diag.Collector
	done  bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithParent sets the generator of the graph an extension extends.
func WithParent(p *Generator) Option { return func(g *Generator) { g.parent = p } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(g *Generator) { g.logger = l } }

// WithShortNames renders keys without package prefixes in diagnostics.
func WithShortNames(short bool) Option { return func(g *Generator) { g.short = short } }

// New creates a generator for node. m provides class declarations for
// constructor and members injection.
func New(node *graphnode.Node, m *decl.Module, opts ...Option) *Generator {
	g := &Generator{
		node:   node,
		module: m,
		logger: log.Default(),
		tab: table{
			explicit: make(map[key.TypeKey][]*binding.Binding),
			multis:   make(map[key.TypeKey]*multi),
		},
		graph: newGraph(node),
		stack: bindingstack.New(node.Path),
		diags: diag.NewCollector(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Graph returns the graph being generated.
func (g *Generator) Graph() *Graph { return g.graph }

// Parent returns the parent generator, nil for roots.
func (g *Generator) Parent() *Generator { return g.parent }

// Generate resolves every root of the graph. It runs once; later calls
// return the same graph. Diagnostics are attached to the graph, not
// returned as an error.
func (g *Generator) Generate(ctx context.Context) *Graph {
	if g.done {
		return g.graph
	}
	g.done = true

	g.diags.Merge(g.node.Diagnostics)
	g.build()

	n := g.node
	for _, acc := range n.Accessors {
		g.graph.Roots = append(g.graph.Roots, Root{Name: acc.Name, Request: acc.Request, Location: acc.Location})
		entry := bindingstack.Entry{Request: acc.Request, Site: n.Name + "#" + acc.Name, Location: acc.Location, Exposed: true}
		g.stack.Do(entry, func() {
			g.resolve(acc.Request, true)
		})
	}
	for _, inj := range n.Injectors {
		g.injector(inj)
	}
	for _, k := range g.tab.order {
		for _, b := range g.tab.explicit[k] {
			if b.Kind == binding.Alias && !b.IsContribution() {
				g.seed(b.Key, b.Declaration, b.Location)
			}
		}
	}
	for _, mk := range g.tab.multiOrder {
		if m := g.tab.multis[mk]; m.declared {
			g.seed(mk, m.declaration, m.location)
		}
	}

	g.flush()
	g.logger.Debug("generated binding graph", "graph", g.graph.Name, "bindings", len(g.graph.Bindings),
		"roots", len(g.graph.Roots), "diagnostics", len(g.graph.Diagnostics))
	return g.graph
}

// flush copies collected diagnostics onto the graph.
func (g *Generator) flush() { g.graph.Diagnostics = g.diags.List() }

func (g *Generator) seed(k key.TypeKey, site string, loc decl.Location) {
	req := key.PlainOf(k)
	entry := bindingstack.Entry{Request: req, Site: site, Location: loc, Exposed: true}
	g.stack.Do(entry, func() {
		g.resolve(req, true)
	})
}

func (g *Generator) injector(inj graphnode.Injector) {
	k := key.New("MembersInjector<"+inj.Target.Type+">", inj.Target.Qualifier)
	req := key.PlainOf(k)
	g.graph.Roots = append(g.graph.Roots, Root{Name: inj.Name, Request: req, Injector: true, Location: inj.Location})
	if _, ok := g.graph.Bindings[k]; ok {
		return
	}
	b := &binding.Binding{
		Kind:        binding.MembersInjected,
		Key:         k,
		Location:    inj.Location,
		Declaration: g.node.Name + "#" + inj.Name,
		Owner:       g.graph.Name,
	}
	for _, m := range inj.Members {
		b.Deps = append(b.Deps, memberDependency(m))
	}
	entry := bindingstack.Entry{Request: req, Site: b.Declaration, Location: inj.Location, Exposed: true}
	g.stack.Do(entry, func() {
		g.add(b)
		g.resolveDeps(b)
	})
}

func memberDependency(m decl.InjectedMember) binding.Dependency {
	req, err := m.Request()
	if err != nil {
		req = key.PlainOf(key.New(m.Type, m.Qualifier))
	}
	return binding.Dependency{Contextual: req, Name: m.Owner + "." + m.Name, Location: m.Location}
}

// resolve returns the binding satisfying req, creating it and its
// dependencies when needed. A miss is diagnosed when report is set.
func (g *Generator) resolve(req key.Contextual, report bool) *binding.Binding {
	k := req.Raw()
	if b, ok := g.graph.Bindings[k]; ok {
		if b.Kind == binding.Absent && !req.HasDefault {
			if report {
				g.missing(k)
			}
			return nil
		}
		return b
	}

	b := g.lookup(req)
	if b == nil {
		if !req.HasDefault {
			if report {
				g.missing(k)
			}
			return nil
		}
		b = &binding.Binding{Kind: binding.Absent, Key: k, Owner: g.graph.Name}
	}
	g.add(b)
	g.resolveDeps(b)
	return b
}

func (g *Generator) add(b *binding.Binding) {
	g.graph.Bindings[b.Key] = b
	g.graph.Order = append(g.graph.Order, b.Key)
	g.graph.Traces[b.Key] = g.stack.Snapshot()
}

// resolveDeps pushes every dependency of b. An eager request for b's own
// key is reported here as a self-cycle.
func (g *Generator) resolveDeps(b *binding.Binding) {
	for _, dep := range b.Deps {
		if dep.Raw() == b.Key {
			if !dep.Deferred() {
				g.selfCycle(b, dep)
			}
			continue
		}
		entry := bindingstack.Entry{Request: dep.Contextual, Site: b.Declaration, Param: dep.Name, Location: dep.Location}
		if entry.Site == "" {
			entry.Site = g.render(b.Key)
		}
		g.stack.Do(entry, func() {
			g.resolve(dep.Contextual, true)
		})
	}
}

func (g *Generator) lookup(req key.Contextual) *binding.Binding {
	k := req.Raw()
	if cands := g.tab.explicit[k]; len(cands) > 0 {
		return cands[0]
	}
	// An extension that contributes to or declares a multibinding
	// aggregates it itself, on top of its ancestors' contributions.
	if g.parent != nil && g.ownsMulti(k) {
		return g.multibinding(k)
	}
	if g.parent != nil && g.parent.declares(k) {
		return g.fromParent(req)
	}
	if b, deferToParent := g.constructor(k); deferToParent {
		return g.fromParent(req)
	} else if b != nil {
		return b
	}
	if b := g.multibinding(k); b != nil {
		return b
	}
	if g.parent != nil {
		return g.fromParent(req)
	}
	return nil
}

// declares reports whether g or one of its ancestors has an explicit or
// already resolved binding for k.
func (g *Generator) declares(k key.TypeKey) bool {
	for cur := g; cur != nil; cur = cur.parent {
		if _, ok := cur.graph.Bindings[k]; ok {
			return true
		}
		if len(cur.tab.explicit[k]) > 0 {
			return true
		}
		if m, ok := cur.tab.multis[k]; ok && (m.declared || len(m.contributors) > 0) {
			return true
		}
	}
	return false
}

// fromParent resolves req in the parent graph and returns a graph
// dependency pointing at it. The parent keeps the binding.
func (g *Generator) fromParent(req key.Contextual) *binding.Binding {
	if g.parent == nil {
		return nil
	}
	// A default value applies to the requesting graph only. The parent never
	// creates an Absent binding on a child's behalf.
	pb := g.parent.resolve(key.PlainOf(req.Raw()), false)
	g.parent.flush()
	if pb == nil || pb.Kind == binding.Absent {
		return nil
	}
	g.parent.graph.keep(pb.Key)
	owner := pb.Owner
	if pb.Kind != binding.GraphDependency {
		owner = g.parent.graph.Name
	}
	return &binding.Binding{
		Kind:        binding.GraphDependency,
		Key:         pb.Key,
		Location:    pb.Location,
		Declaration: pb.Declaration,
		Owner:       owner,
	}
}

// constructor returns the constructor-injected binding for k. It reports
// deferToParent when the class is scoped to an ancestor's scope.
func (g *Generator) constructor(k key.TypeKey) (b *binding.Binding, deferToParent bool) {
	if !k.Qualifier.IsZero() || g.module == nil {
		return nil, false
	}
	c, ok := g.module.Class(k.Type)
	if !ok {
		if t, parsed := k.Parsed(); parsed {
			c, ok = g.module.Class(t.Name)
		}
	}
	if !ok {
		return nil, false
	}
	ctor, err := c.EligibleConstructor()
	if err != nil {
		g.structural(k, c.Location, fmt.Sprintf("%s: %v", c.Name, err))
		return nil, false
	}
	if ctor == nil {
		return nil, false
	}

	scope := decl.NormalizeScope(c.Scope)
	if scope != "" && g.parent != nil && !g.node.HasScope(scope) {
		if _, owned := g.node.ScopeOwner(scope); owned {
			return nil, true
		}
	}

	loc := ctor.Location
	if !loc.Known() {
		loc = c.Location
	}
	b = &binding.Binding{
		Kind:        binding.ConstructorInjected,
		Key:         k,
		Scope:       scope,
		Location:    loc,
		Declaration: c.Name,
		Owner:       g.graph.Name,
	}
	for _, p := range ctor.Params {
		req, err := p.Request()
		if err != nil {
			g.structural(k, p.Location, fmt.Sprintf("%s(%s): %v", c.Name, p.Name, err))
			continue
		}
		b.Deps = append(b.Deps, binding.Dependency{Contextual: req, Name: p.Name, Location: p.Location})
	}
	members, err := g.module.MemberInjections(c.Name)
	if err != nil {
		g.structural(k, c.Location, fmt.Sprintf("%s: %v", c.Name, err))
	}
	for _, m := range members {
		b.Deps = append(b.Deps, memberDependency(m))
	}
	return b, false
}

// multiKey returns the key multibinding contributions target for k. A
// Map<K, Provider<V>> request aggregates the Map<K, V> contributions.
func multiKey(k key.TypeKey) (target key.TypeKey, providerValues, ok bool) {
	typ, parsed := k.Parsed()
	if !parsed {
		return key.TypeKey{}, false, false
	}
	if kt, vt, isMap := typ.MapEntry(); isMap && vt.Is(key.ProviderName, 1) {
		return key.Of(key.MapOf(kt, vt.Args[0]), k.Qualifier), true, true
	}
	return k, false, true
}

// ownsMulti reports whether g itself declares or contributes to the
// multibinding requested by k.
func (g *Generator) ownsMulti(k key.TypeKey) bool {
	target, _, ok := multiKey(k)
	if !ok {
		return false
	}
	m, ok := g.tab.multis[target]
	return ok && (m.declared || len(m.contributors) > 0)
}

// multiChain returns the multibinding tables for target from the root
// ancestor down to g.
func (g *Generator) multiChain(target key.TypeKey) []*multi {
	var chain []*multi
	for cur := g; cur != nil; cur = cur.parent {
		if m, ok := cur.tab.multis[target]; ok {
			chain = append(chain, m)
		}
	}
	slices.Reverse(chain)
	return chain
}

// multibinding aggregates the Set or Map multibinding k. Contributions of
// ancestors come first, then g's own, each in discovery order; ancestor
// contributions resolve as graph dependencies. A Map request with Provider
// values depends lazily on every contribution.
func (g *Generator) multibinding(k key.TypeKey) *binding.Binding {
	target, providerValues, ok := multiKey(k)
	if !ok {
		return nil
	}
	chain := g.multiChain(target)
	if len(chain) == 0 {
		return nil
	}

	b := &binding.Binding{
		Kind:  binding.Multibinding,
		Key:   k,
		Owner: g.graph.Name,
		Multi: &binding.Multi{ProviderValues: providerValues},
	}
	seen := make(map[key.TypeKey]bool)
	mapKeys := make(map[string]*binding.Binding)
	for level, m := range chain {
		b.Multi.Map = m.isMap
		b.Multi.Element = m.element
		b.Multi.MapKeyType = m.mapKeyType
		b.Multi.AllowEmpty = b.Multi.AllowEmpty || m.allowEmpty
		if m.declared && !b.Multi.Declared {
			b.Multi.Declared = true
			b.Declaration = m.declaration
			b.Location = m.location
		}
		for _, c := range m.contributors {
			if seen[c.Key] {
				continue
			}
			seen[c.Key] = true
			if m.isMap && c.MapKey != nil {
				// Duplicates within one graph are reported by checkDuplicates.
				if prev, dup := mapKeys[c.MapKey.Value]; dup && level > 0 && prev.Owner != c.Owner {
					g.duplicateMapKey(target, prev, c)
				}
				mapKeys[c.MapKey.Value] = c
			}
			req := key.PlainOf(c.Key)
			if providerValues {
				req.Wrap = key.ProviderWrap
			}
			b.Deps = append(b.Deps, binding.Dependency{Contextual: req, Name: c.Declaration, Location: c.Location})
			b.Multi.Contributors = append(b.Multi.Contributors, c.Key)
		}
	}
	if len(b.Multi.Contributors) == 0 && !b.Multi.AllowEmpty {
		g.diags.AddOnce("empty:"+target.String(), diag.Diagnostic{
			Kind:      diag.EmptyMultibinding,
			Graph:     g.graph.Name,
			Key:       g.render(target),
			Message:   fmt.Sprintf("multibinding %s has no contributions; declare it with allowEmpty = true if this is intended", g.render(target)),
			Locations: []decl.Location{b.Location},
			Trace:     g.stack.Snapshot().Lines(g.short),
		})
	}
	return b
}

func (g *Generator) duplicateMapKey(target key.TypeKey, prev, c *binding.Binding) {
	g.diags.AddOnce("mapkey:"+target.String()+":"+c.MapKey.Value, diag.Diagnostic{
		Kind:      diag.DuplicateBinding,
		Graph:     g.graph.Name,
		Key:       g.render(target),
		Message:   fmt.Sprintf("duplicate map key %s in %s", c.MapKey.Value, g.render(target)),
		Locations: []decl.Location{prev.Location, c.Location},
		Details:   []string{prev.Describe(), c.Describe()},
	})
}

func (g *Generator) missing(k key.TypeKey) {
	trace := g.stack.Snapshot()
	var locs []decl.Location
	if top, ok := g.stack.Top(); ok {
		locs = append(locs, top.Location)
	}
	g.diags.AddOnce("missing:"+k.String(), diag.Diagnostic{
		Kind:      diag.MissingBinding,
		Graph:     g.graph.Name,
		Key:       g.render(k),
		Message:   fmt.Sprintf("cannot find an @Inject constructor or @Provides declaration for %s", g.render(k)),
		Locations: locs,
		Trace:     trace.Lines(g.short),
		Similar:   g.similar(k),
	})
}

func (g *Generator) selfCycle(b *binding.Binding, dep binding.Dependency) {
	rendered := g.render(b.Key)
	trace := g.stack.Snapshot()
	trace = append(trace, bindingstack.Entry{Request: dep.Contextual, Site: b.Declaration, Param: dep.Name, Location: dep.Location, Graph: g.graph.Name})
	g.diags.AddOnce("cycle:"+b.Key.String(), diag.Diagnostic{
		Kind:      diag.DependencyCycle,
		Graph:     g.graph.Name,
		Key:       rendered,
		Message:   "found a dependency cycle",
		Locations: []decl.Location{b.Location},
		Details:   []string{rendered + " <--> " + rendered},
		Trace:     trace.Lines(g.short),
	})
}

func (g *Generator) structural(k key.TypeKey, loc decl.Location, msg string) {
	g.diags.AddOnce("structural:"+k.String()+":"+msg, diag.Diagnostic{
		Kind:      diag.StructuralViolation,
		Graph:     g.graph.Name,
		Key:       g.render(k),
		Message:   msg,
		Locations: []decl.Location{loc},
	})
}

func (g *Generator) render(k key.TypeKey) string { return k.Render(g.short) }
