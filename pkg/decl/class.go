package decl

import (
	"errors"
	"fmt"

	"github.com/matzehuels/bindgraph/pkg/key"
)

var (
	// ErrAmbiguousConstructor is returned by [Class.EligibleConstructor] when
	// more than one constructor qualifies for injection.
	ErrAmbiguousConstructor = errors.New("multiple injectable constructors")

	// ErrSuperclassCycle is returned by [Module.MemberInjections] when a
	// superclass chain loops.
	ErrSuperclassCycle = errors.New("superclass cycle")
)

// Constructor is a class constructor.
type Constructor struct {
	Inject   bool     `json:"inject,omitempty" yaml:"inject,omitempty" toml:"inject,omitempty"`
	Primary  bool     `json:"primary,omitempty" yaml:"primary,omitempty" toml:"primary,omitempty"`
	Params   []Param  `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
	Location Location `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// InjectedMember is a field or setter marked for members injection.
type InjectedMember struct {
	Name      string        `json:"name" yaml:"name" toml:"name"`
	Type      string        `json:"type" yaml:"type" toml:"type"`
	Qualifier key.Qualifier `json:"qualifier,omitzero" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
	Setter    bool          `json:"setter,omitempty" yaml:"setter,omitempty" toml:"setter,omitempty"`
	Location  Location      `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`

	// Owner is the declaring class, filled by MemberInjections.
	Owner string `json:"-" yaml:"-" toml:"-"`
}

// Request returns the dependency the member asks for.
func (m InjectedMember) Request() (key.Contextual, error) {
	return key.ParseContextual(m.Type, m.Qualifier, false)
}

// Class is a type known to the front-end. Classes with an injectable
// constructor can be constructor-injected; the others only contribute
// subtype information.
type Class struct {
	Name       string   `json:"name" yaml:"name" toml:"name"`
	Superclass string   `json:"superclass,omitempty" yaml:"superclass,omitempty" toml:"superclass,omitempty"`
	Supertypes []string `json:"supertypes,omitempty" yaml:"supertypes,omitempty" toml:"supertypes,omitempty"`

	// Inject marks a class-level @Inject; the primary constructor is used.
	Inject       bool             `json:"inject,omitempty" yaml:"inject,omitempty" toml:"inject,omitempty"`
	Scope        string           `json:"scope,omitempty" yaml:"scope,omitempty" toml:"scope,omitempty"`
	Constructors []Constructor    `json:"constructors,omitempty" yaml:"constructors,omitempty" toml:"constructors,omitempty"`
	Members      []InjectedMember `json:"members,omitempty" yaml:"members,omitempty" toml:"members,omitempty"`
	TypeParams   []string         `json:"type_params,omitempty" yaml:"type_params,omitempty" toml:"type_params,omitempty"`
	Location     Location         `json:"location,omitzero" yaml:"location,omitempty" toml:"location,omitempty"`
}

// EligibleConstructor returns the constructor used for injection, or nil
// when the class is not injectable.
func (c *Class) EligibleConstructor() (*Constructor, error) {
	var found *Constructor
	for i := range c.Constructors {
		if !c.Constructors[i].Inject {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousConstructor, c.Name)
		}
		found = &c.Constructors[i]
	}
	if found != nil || !c.Inject {
		return found, nil
	}

	switch len(c.Constructors) {
	case 0:
		return &Constructor{Location: c.Location}, nil
	case 1:
		return &c.Constructors[0], nil
	}
	for i := range c.Constructors {
		if c.Constructors[i].Primary {
			return &c.Constructors[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAmbiguousConstructor, c.Name)
}

// Injectable reports whether the class has any constructor marked for
// injection or a class-level @Inject.
func (c *Class) Injectable() bool {
	if c.Inject {
		return true
	}
	for _, ctor := range c.Constructors {
		if ctor.Inject {
			return true
		}
	}
	return false
}

// AllSupertypes returns the direct supertypes including the superclass.
func (c *Class) AllSupertypes() []string {
	out := make([]string, 0, len(c.Supertypes)+1)
	if c.Superclass != "" {
		out = append(out, c.Superclass)
	}
	return append(out, c.Supertypes...)
}

// MemberInjections returns the injectable members of the class name,
// including inherited ones, ordered base class first. Superclasses that are
// not declared in the module contribute nothing.
func (m *Module) MemberInjections(name string) ([]InjectedMember, error) {
	var chain []*Class
	seen := map[string]bool{}
	for cur := name; cur != ""; {
		if seen[cur] {
			return nil, fmt.Errorf("%w: %s", ErrSuperclassCycle, name)
		}
		seen[cur] = true
		c, ok := m.Class(cur)
		if !ok {
			break
		}
		chain = append(chain, c)
		cur = c.Superclass
	}

	var out []InjectedMember
	for i := len(chain) - 1; i >= 0; i-- {
		for _, im := range chain[i].Members {
			im.Owner = chain[i].Name
			out = append(out, im)
		}
	}
	return out, nil
}
