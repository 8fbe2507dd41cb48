package generate

import (
	"fmt"

	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/graphnode"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// multi collects the declaration and contributions of one multibinding.
type multi struct {
	key        key.TypeKey
	isMap      bool
	element    key.TypeKey
	mapKeyType string

	declared    bool
	allowEmpty  bool
	declaration string
	location    decl.Location

	contributors []*binding.Binding
}

// table is the set of explicit bindings visible to one graph.
type table struct {
	explicit map[key.TypeKey][]*binding.Binding
	order    []key.TypeKey

	multis     map[key.TypeKey]*multi
	multiOrder []key.TypeKey
}

func (t *table) declare(b *binding.Binding) {
	cands, ok := t.explicit[b.Key]
	if !ok {
		t.order = append(t.order, b.Key)
	}
	for _, c := range cands {
		// The same declaration reached twice is one binding.
		if c.Declaration != "" && c.Declaration == b.Declaration {
			return
		}
	}
	t.explicit[b.Key] = append(cands, b)
}

func (t *table) multi(k key.TypeKey) *multi {
	m, ok := t.multis[k]
	if !ok {
		m = &multi{key: k}
		if typ, parsed := k.Parsed(); parsed {
			if kt, vt, isMap := typ.MapEntry(); isMap {
				m.isMap = true
				m.mapKeyType = kt.String()
				m.element = key.Of(vt, k.Qualifier)
			} else if et, isSet := typ.SetElement(); isSet {
				m.element = key.Of(et, k.Qualifier)
			}
		}
		t.multis[k] = m
		t.multiOrder = append(t.multiOrder, k)
	}
	return m
}

// build fills the table from the node's containers, instances and included
// graphs.
func (g *Generator) build() {
	n := g.node
	for _, p := range n.Providers {
		b := providerBinding(n, p)
		if p.Contribution != decl.NoContribution {
			g.contribute(b, p.Key, p.MapKey)
			continue
		}
		g.tab.declare(b)
	}
	for _, bd := range n.Binds {
		if bd.Multibinds {
			m := g.tab.multi(bd.Target)
			if !m.declared {
				m.declared = true
				m.declaration = bd.ID
				m.location = bd.Location
			}
			m.allowEmpty = m.allowEmpty || bd.AllowEmpty
			continue
		}
		b := aliasBinding(n, bd)
		if bd.Contribution != decl.NoContribution {
			g.contribute(b, bd.Target, bd.MapKey)
			continue
		}
		g.tab.declare(b)
	}
	for _, inst := range n.Instances {
		g.tab.declare(&binding.Binding{
			Kind:        binding.BoundInstance,
			Key:         inst.Key,
			Location:    inst.Location,
			Declaration: n.Name + "#" + inst.Name,
			Owner:       n.Path,
		})
	}
	for _, inc := range n.Included {
		for _, acc := range inc.Accessors {
			g.tab.declare(&binding.Binding{
				Kind:        binding.GraphDependency,
				Key:         acc.Request.Raw(),
				Deps:        []binding.Dependency{{Contextual: key.PlainOf(inc.Key), Name: acc.Name, Location: acc.Location}},
				Location:    acc.Location,
				Declaration: inc.Name + "#" + acc.Name,
				Owner:       inc.Path,
			})
		}
	}
	g.checkDuplicates()
}

// contribute registers a multibinding contribution. produced is the key the
// declaration produces; the contribution itself is stored under a synthetic
// key unique to its declaration.
func (g *Generator) contribute(b *binding.Binding, produced key.TypeKey, mk *decl.MapKey) {
	var target key.TypeKey
	typ, ok := produced.Parsed()
	switch {
	case !ok:
		return
	case b.Contribution == decl.ElementsIntoSet:
		target = produced
	case b.Contribution == decl.IntoMap:
		kt, err := key.ParseType(mk.Type)
		if err != nil {
			g.diags.Add(diag.Diagnostic{
				Kind:      diag.StructuralViolation,
				Graph:     g.graph.Name,
				Key:       produced.String(),
				Message:   fmt.Sprintf("%s: invalid map key type %q: %v", b.Declaration, mk.Type, err),
				Locations: []decl.Location{b.Location},
			})
			return
		}
		target = key.Of(key.MapOf(kt, typ), produced.Qualifier)
	default:
		target = key.Of(key.SetOf(typ), produced.Qualifier)
	}
	b.Key = produced.WithQualifier(key.ElementQualifier(b.Declaration))
	b.Target = target
	b.MapKey = mk
	g.tab.declare(b)
	m := g.tab.multi(target)
	m.contributors = append(m.contributors, b)
}

func (g *Generator) checkDuplicates() {
	for _, k := range g.tab.order {
		cands := g.tab.explicit[k]
		if len(cands) < 2 {
			continue
		}
		d := diag.Diagnostic{
			Kind:    diag.DuplicateBinding,
			Graph:   g.graph.Name,
			Key:     g.render(k),
			Message: fmt.Sprintf("multiple bindings found for %s", g.render(k)),
		}
		for _, c := range cands {
			d.Locations = append(d.Locations, c.Location)
			d.Details = append(d.Details, c.Describe())
		}
		g.diags.AddOnce("duplicate:"+k.String(), d)
	}
	for _, mk := range g.tab.multiOrder {
		m := g.tab.multis[mk]
		if !m.isMap {
			continue
		}
		seen := make(map[string]*binding.Binding)
		for _, c := range m.contributors {
			if c.MapKey == nil {
				continue
			}
			prev, dup := seen[c.MapKey.Value]
			if !dup {
				seen[c.MapKey.Value] = c
				continue
			}
			g.diags.AddOnce("mapkey:"+mk.String()+":"+c.MapKey.Value, diag.Diagnostic{
				Kind:      diag.DuplicateBinding,
				Graph:     g.graph.Name,
				Key:       g.render(mk),
				Message:   fmt.Sprintf("duplicate map key %s in %s", c.MapKey.Value, g.render(mk)),
				Locations: []decl.Location{prev.Location, c.Location},
				Details:   []string{prev.Describe(), c.Describe()},
			})
		}
	}
}

func providerBinding(n *graphnode.Node, p graphnode.Provider) *binding.Binding {
	b := &binding.Binding{
		Kind:         binding.Provided,
		Key:          p.Key,
		Scope:        p.Scope,
		Location:     p.Location,
		Declaration:  p.ID,
		Owner:        n.Path,
		Contribution: p.Contribution,
	}
	for _, param := range p.Params {
		b.Deps = append(b.Deps, binding.Dependency{Contextual: param.Request, Name: param.Name, Location: p.Location})
	}
	return b
}

func aliasBinding(n *graphnode.Node, bd graphnode.Binds) *binding.Binding {
	return &binding.Binding{
		Kind:         binding.Alias,
		Key:          bd.Target,
		Deps:         []binding.Dependency{{Contextual: key.PlainOf(bd.Source), Location: bd.Location}},
		Scope:        bd.Scope,
		Location:     bd.Location,
		Declaration:  bd.ID,
		Owner:        n.Path,
		Contribution: bd.Contribution,
	}
}
