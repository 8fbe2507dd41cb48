package decl

import (
	"github.com/matzehuels/bindgraph/pkg/key"
)

// MemberKind distinguishes functions from properties.
type MemberKind string

const (
	Function MemberKind = "function"
	Property MemberKind = "property"
)

// Contribution is how a member contributes to a multibinding.
type Contribution string

const (
	// NoContribution marks a plain provider or alias.
	NoContribution Contribution = ""
	// IntoSet adds the produced value to Set<T>.
	IntoSet Contribution = "set"
	// ElementsIntoSet adds every element of the produced Set<T>.
	ElementsIntoSet Contribution = "elements"
	// IntoMap adds the produced value to Map<K, T> under MapKey.
	IntoMap Contribution = "map"
)

// MapKey is the key annotation of an IntoMap contribution.
type MapKey struct {
	Type  string `json:"type" yaml:"type" toml:"type"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

// Param is a function or constructor parameter.
type Param struct {
	Name       string        `json:"name" yaml:"name" toml:"name"`
	Type       string        `json:"type" yaml:"type" toml:"type"`
	Qualifier  key.Qualifier `json:"qualifier,omitzero" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
	HasDefault bool          `json:"has_default,omitempty" yaml:"has_default,omitempty" toml:"has_default,omitempty"`
	Location   Location      `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// Request returns the dependency the parameter asks for.
func (p Param) Request() (key.Contextual, error) {
	return key.ParseContextual(p.Type, p.Qualifier, p.HasDefault)
}

// Member is a function or property declared on a binding container or graph.
type Member struct {
	Name string     `json:"name" yaml:"name" toml:"name"`
	Kind MemberKind `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`

	// Type is the produced type (return type or property type).
	Type      string        `json:"type" yaml:"type" toml:"type"`
	Qualifier key.Qualifier `json:"qualifier,omitzero" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
	Scope     string        `json:"scope,omitempty" yaml:"scope,omitempty" toml:"scope,omitempty"`
	Params    []Param       `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`

	// Receiver is the extension receiver of a @Binds property, the aliased
	// source type. A @Binds function uses its only parameter instead.
	Receiver          string        `json:"receiver,omitempty" yaml:"receiver,omitempty" toml:"receiver,omitempty"`
	ReceiverQualifier key.Qualifier `json:"receiver_qualifier,omitzero" yaml:"receiver_qualifier,omitempty" toml:"receiver_qualifier,omitempty"`

	Provides   bool `json:"provides,omitempty" yaml:"provides,omitempty" toml:"provides,omitempty"`
	Binds      bool `json:"binds,omitempty" yaml:"binds,omitempty" toml:"binds,omitempty"`
	Multibinds bool `json:"multibinds,omitempty" yaml:"multibinds,omitempty" toml:"multibinds,omitempty"`
	AllowEmpty bool `json:"allow_empty,omitempty" yaml:"allow_empty,omitempty" toml:"allow_empty,omitempty"`

	Into   Contribution `json:"into,omitempty" yaml:"into,omitempty" toml:"into,omitempty"`
	MapKey *MapKey      `json:"map_key,omitempty" yaml:"map_key,omitempty" toml:"map_key,omitempty"`

	// Synthetic marks compiler-generated overrides; they never declare bindings.
	Synthetic bool     `json:"synthetic,omitempty" yaml:"synthetic,omitempty" toml:"synthetic,omitempty"`
	Location  Location `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// BindsSource returns the type aliased by a @Binds member.
func (m Member) BindsSource() (typ string, q key.Qualifier, ok bool) {
	if m.Receiver != "" {
		return m.Receiver, m.ReceiverQualifier, true
	}
	if len(m.Params) == 1 {
		return m.Params[0].Type, m.Params[0].Qualifier, true
	}
	return "", key.Qualifier{}, false
}

// Container is a binding container (module) declaration.
type Container struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty" toml:"includes,omitempty"`
	Members  []Member `json:"members,omitempty" yaml:"members,omitempty" toml:"members,omitempty"`

	// Companion is a nested object whose providers are folded into the container.
	Companion *Container `json:"companion,omitempty" yaml:"companion,omitempty" toml:"companion,omitempty"`

	// Annotated reports a container annotation on the declaration. An
	// external annotated container must come with metadata.
	Annotated bool `json:"annotated,omitempty" yaml:"annotated,omitempty" toml:"annotated,omitempty"`
	// External marks a declaration compiled in another module.
	External bool `json:"external,omitempty" yaml:"external,omitempty" toml:"external,omitempty"`

	Abstract            bool     `json:"abstract,omitempty" yaml:"abstract,omitempty" toml:"abstract,omitempty"`
	HasNoArgConstructor bool     `json:"no_arg_constructor,omitempty" yaml:"no_arg_constructor,omitempty" toml:"no_arg_constructor,omitempty"`
	TypeParams          []string `json:"type_params,omitempty" yaml:"type_params,omitempty" toml:"type_params,omitempty"`
	Supertypes          []string `json:"supertypes,omitempty" yaml:"supertypes,omitempty" toml:"supertypes,omitempty"`

	// ContributesTo names a scope; the container is included in every graph
	// declaring it.
	ContributesTo string   `json:"contributes_to,omitempty" yaml:"contributes_to,omitempty" toml:"contributes_to,omitempty"`
	Location      Location `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`

	isGraph bool
}

// IsGraph reports whether the container is the member view of a graph.
func (c *Container) IsGraph() bool { return c.isGraph }

// CanBeManaged reports whether the resolver may instantiate the container:
// it is concrete and has an accessible no-arg constructor.
func (c *Container) CanBeManaged() bool {
	return !c.Abstract && c.HasNoArgConstructor
}

// MemberID returns the stable identity of a member declared on c.
func (c *Container) MemberID(m Member) string { return c.Name + "#" + m.Name }

// CompanionName is the name of the companion object of c.
func (c *Container) CompanionName() string {
	if c.Companion != nil && c.Companion.Name != "" {
		return c.Companion.Name
	}
	return c.Name + ".Companion"
}

// Accessor is an exposed graph property or function.
type Accessor struct {
	Name      string        `json:"name" yaml:"name" toml:"name"`
	Type      string        `json:"type" yaml:"type" toml:"type"`
	Qualifier key.Qualifier `json:"qualifier,omitzero" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
	Location  Location      `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// Injector is a members-injection entry point, e.g. fun inject(target: T).
type Injector struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	Target   string   `json:"target" yaml:"target" toml:"target"`
	Location Location `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// CreatorParamKind classifies a graph factory parameter.
type CreatorParamKind string

const (
	// InstanceParam binds the argument as a value (@Provides parameter).
	InstanceParam CreatorParamKind = "instance"
	// IncludesParam includes a graph or container instance.
	IncludesParam CreatorParamKind = "includes"
)

// CreatorParam is one parameter of a graph factory.
type CreatorParam struct {
	Name      string           `json:"name" yaml:"name" toml:"name"`
	Kind      CreatorParamKind `json:"kind" yaml:"kind" toml:"kind"`
	Type      string           `json:"type" yaml:"type" toml:"type"`
	Qualifier key.Qualifier    `json:"qualifier,omitzero" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
	Location  Location         `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// Creator is a graph factory.
type Creator struct {
	Name     string         `json:"name" yaml:"name" toml:"name"`
	Params   []CreatorParam `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
	Location Location       `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// Graph is a dependency graph or graph extension declaration.
type Graph struct {
	Name   string   `json:"name" yaml:"name" toml:"name"`
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty" toml:"scopes,omitempty"`

	// Extendable graphs publish metadata so other modules can extend them.
	Extendable bool `json:"extendable,omitempty" yaml:"extendable,omitempty" toml:"extendable,omitempty"`
	// Extension graphs are only processed as children of a parent graph.
	Extension bool `json:"extension,omitempty" yaml:"extension,omitempty" toml:"extension,omitempty"`

	Accessors  []Accessor `json:"accessors,omitempty" yaml:"accessors,omitempty" toml:"accessors,omitempty"`
	Injectors  []Injector `json:"injectors,omitempty" yaml:"injectors,omitempty" toml:"injectors,omitempty"`
	Containers []string   `json:"containers,omitempty" yaml:"containers,omitempty" toml:"containers,omitempty"`
	Members    []Member   `json:"members,omitempty" yaml:"members,omitempty" toml:"members,omitempty"`
	Creator    *Creator   `json:"creator,omitempty" yaml:"creator,omitempty" toml:"creator,omitempty"`

	// Extensions names child graphs exposed through factory accessors.
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty" toml:"extensions,omitempty"`
	Location   Location `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// AsContainer returns the graph's own members as a binding container.
func (g *Graph) AsContainer() *Container {
	return &Container{
		Name:      g.Name,
		Members:   g.Members,
		Annotated: true,
		Abstract:  true,
		Location:  g.Location,
		isGraph:   true,
	}
}

// HasScope reports whether g declares scope.
func (g *Graph) HasScope(scope string) bool {
	for _, s := range g.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Extension is a contributed graph extension: the graph named Graph is
// attached to every parent graph declaring Scope.
type Extension struct {
	Graph    string   `json:"graph" yaml:"graph" toml:"graph"`
	Scope    string   `json:"scope" yaml:"scope" toml:"scope"`
	Location Location `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}
