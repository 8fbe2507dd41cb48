// Package binding defines the nodes of a binding graph.
//
// A [Binding] is one way to obtain a value for a [key.TypeKey]. The set of
// kinds is closed; code that switches over [Kind] is expected to handle all
// of them.
package binding

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/bindgraph/pkg/decl"
	"github.com/matzehuels/bindgraph/pkg/key"
)

// Kind tags the variant of a Binding.
type Kind int

const (
	// ConstructorInjected is a class with an injectable constructor.
	ConstructorInjected Kind = iota
	// Provided is a @Provides function or property, including multibinding
	// contributions.
	Provided
	// Alias is a @Binds declaration; its only dependency is the aliased key.
	Alias
	// Multibinding aggregates contributions into Set<E> or Map<K, V>.
	Multibinding
	// BoundInstance is a graph factory instance parameter or the graph itself.
	BoundInstance
	// Absent stands in for an optional dependency that has a default value.
	Absent
	// GraphDependency is obtained from an included or parent graph.
	GraphDependency
	// MembersInjected is the members-injection target of an injector function.
	MembersInjected
)

var kindNames = [...]string{
	ConstructorInjected: "ConstructorInjected",
	Provided:            "Provided",
	Alias:               "Alias",
	Multibinding:        "Multibinding",
	BoundInstance:       "BoundInstance",
	Absent:              "Absent",
	GraphDependency:     "GraphDependency",
	MembersInjected:     "MembersInjected",
}

// String returns the kind name.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{ConstructorInjected, Provided, Alias, Multibinding, BoundInstance, Absent, GraphDependency, MembersInjected}
}

// Dependency is a request made by a binding, with the site it is made from.
type Dependency struct {
	key.Contextual
	// Name is the parameter or member name at the usage site.
	Name     string        `json:"name,omitempty"`
	Location decl.Location `json:"location,omitzero"`
}

// Multi describes a multibinding aggregate.
type Multi struct {
	Map        bool        `json:"map,omitempty"`
	Element    key.TypeKey `json:"element"`
	MapKeyType string      `json:"map_key_type,omitempty"`
	// ProviderValues is set for Map<K, Provider<V>> requests.
	ProviderValues bool `json:"provider_values,omitempty"`
	AllowEmpty     bool `json:"allow_empty,omitempty"`
	// Declared reports an explicit @Multibinds declaration.
	Declared bool `json:"declared,omitempty"`
	// Contributors are the synthetic keys of each contribution, in
	// declaration order.
	Contributors []key.TypeKey `json:"contributors,omitempty"`
}

// Binding is one node of a binding graph.
type Binding struct {
	Kind Kind        `json:"kind"`
	Key  key.TypeKey `json:"key"`
	Deps []Dependency `json:"deps,omitempty"`

	// Scope is the normalized scope annotation, empty when unscoped.
	Scope    string        `json:"scope,omitempty"`
	Location decl.Location `json:"location,omitzero"`

	// Declaration is the stable identity of the declaring element, e.g.
	// com.example.AppContainer#provideValue or a class name.
	Declaration string `json:"declaration,omitempty"`
	// Owner is the graph that holds the binding. For GraphDependency it is
	// the graph the value comes from.
	Owner string `json:"owner,omitempty"`

	// Contribution and MapKey are set on multibinding contributions.
	Contribution decl.Contribution `json:"contribution,omitempty"`
	MapKey       *decl.MapKey      `json:"map_key,omitempty"`
	// Target is the multibinding a contribution belongs to.
	Target key.TypeKey `json:"target,omitzero"`

	Multi *Multi `json:"multi,omitempty"`
}

// IsScoped reports whether the binding is cached for its graph's lifetime.
func (b *Binding) IsScoped() bool { return b.Scope != "" }

// IsContribution reports whether the binding is a multibinding contribution.
func (b *Binding) IsContribution() bool { return b.Contribution != decl.NoContribution }

// DependencyKeys returns the raw keys of all dependencies.
func (b *Binding) DependencyKeys() []key.TypeKey {
	out := make([]key.TypeKey, len(b.Deps))
	for i, d := range b.Deps {
		out[i] = d.Raw()
	}
	return out
}

// DependsOn reports whether b requests k, optionally only eagerly.
func (b *Binding) DependsOn(k key.TypeKey, eagerOnly bool) bool {
	return slices.ContainsFunc(b.Deps, func(d Dependency) bool {
		return d.Raw() == k && (!eagerOnly || !d.Deferred())
	})
}

// Describe renders the binding for diagnostics, e.g.
// "@Provides com.example.AppContainer#provideValue".
func (b *Binding) Describe() string {
	var sb strings.Builder
	switch b.Kind {
	case ConstructorInjected:
		sb.WriteString("@Inject ")
	case Provided:
		sb.WriteString("@Provides ")
	case Alias:
		sb.WriteString("@Binds ")
	case Multibinding:
		sb.WriteString("@Multibinds ")
	case BoundInstance:
		sb.WriteString("@Provides instance ")
	case Absent:
		sb.WriteString("absent ")
	case GraphDependency:
		sb.WriteString("graph dependency ")
	case MembersInjected:
		sb.WriteString("members injector ")
	}
	if b.Declaration != "" {
		sb.WriteString(b.Declaration)
	} else {
		sb.WriteString(b.Key.String())
	}
	return sb.String()
}

// String renders the key and kind.
func (b *Binding) String() string {
	return fmt.Sprintf("%s (%s)", b.Key, b.Kind)
}
