package generate

import (
	"github.com/matzehuels/bindgraph/pkg/binding"
	"github.com/matzehuels/bindgraph/pkg/diag"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// similar lists the near misses for a missing key: the same type under a
// different qualifier, a multibinding of it, and its subtypes and
// supertypes. Results follow declaration order.
func (g *Generator) similar(k key.TypeKey) []diag.Similar {
	var out []diag.Similar
	seen := map[key.TypeKey]bool{k: true}
	add := func(b *binding.Binding, reason string) {
		if seen[b.Key] {
			return
		}
		seen[b.Key] = true
		out = append(out, diag.Similar{
			Key:      g.render(b.Key),
			Reason:   reason,
			Kind:     b.Describe(),
			Location: b.Location,
		})
	}

	for cur := g; cur != nil; cur = cur.parent {
		for _, ck := range cur.tab.order {
			if ck.Qualifier.IsElement() {
				continue
			}
			b := cur.tab.explicit[ck][0]
			switch {
			case ck.Type == k.Type && ck.Qualifier != k.Qualifier:
				add(b, diag.DifferentQualifier)
			case g.module != nil && ck.Qualifier == k.Qualifier && g.module.IsSubtype(baseName(ck), baseName(k)):
				add(b, diag.Subtype)
			case g.module != nil && ck.Qualifier == k.Qualifier && g.module.IsSubtype(baseName(k), baseName(ck)):
				add(b, diag.Supertype)
			}
		}
		for _, mk := range cur.tab.multiOrder {
			m := cur.tab.multis[mk]
			if m.element.Type != k.Type {
				continue
			}
			add(&binding.Binding{Kind: binding.Multibinding, Key: mk, Declaration: m.declaration, Location: m.location}, diag.MultibindingOf)
		}
	}
	return out
}

func baseName(k key.TypeKey) string {
	if t, ok := k.Parsed(); ok && len(t.Args) == 0 {
		return t.Name
	}
	return k.Type
}
