package key

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWrapping is returned by [ParseContextual] for wrapper nestings other
// than Provider<T>, Lazy<T> and Provider<Lazy<T>>.
var ErrInvalidWrapping = errors.New("unsupported Provider/Lazy nesting")

// NamedQualifier is the name of the built-in string qualifier.
const NamedQualifier = "Named"

// elementQualifier marks the synthetic key of a single multibinding contribution.
const elementQualifier = "MultibindingElement"

// Qualifier is a qualifier annotation with an optional single argument.
// The zero value means "no qualifier".
type Qualifier struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
}

// Named returns the @Named(value) qualifier.
func Named(value string) Qualifier { return Qualifier{Name: NamedQualifier, Value: value} }

// Normalize trims whitespace and collapses a qualifier without a name to the
// zero value, so "absent" and "blank" compare equal.
func (q Qualifier) Normalize() Qualifier {
	q.Name = strings.TrimPrefix(strings.TrimSpace(q.Name), "@")
	if q.Name == "" {
		return Qualifier{}
	}
	q.Value = strings.TrimSpace(q.Value)
	return q
}

// IsZero reports whether q is absent.
func (q Qualifier) IsZero() bool { return q.Normalize() == Qualifier{} }

// String renders the qualifier as an annotation, e.g. @Named("api").
func (q Qualifier) String() string {
	q = q.Normalize()
	if q.Name == "" {
		return ""
	}
	if q.Value == "" {
		return "@" + q.Name
	}
	return fmt.Sprintf("@%s(%q)", q.Name, q.Value)
}

// ElementQualifier returns the synthetic qualifier for the multibinding
// contribution declared by id. The id is a stable container#member pair.
func ElementQualifier(id string) Qualifier {
	return Qualifier{Name: elementQualifier, Value: id}
}

// IsElement reports whether q is a multibinding contribution qualifier.
func (q Qualifier) IsElement() bool { return q.Name == elementQualifier }

// TypeKey identifies a binding: a canonical type string plus qualifier.
// The zero value is not a valid key.
type TypeKey struct {
	Type      string    `json:"type" yaml:"type" toml:"type"`
	Qualifier Qualifier `json:"qualifier,omitzero" yaml:"qualifier,omitempty" toml:"qualifier,omitempty"`
}

// New returns the key for a declared type string. The string is canonicalized
// when it parses; otherwise it is kept trimmed as-is.
func New(typ string, q Qualifier) TypeKey {
	typ = strings.TrimSpace(typ)
	if t, err := ParseType(typ); err == nil {
		typ = t.NonNull().String()
	}
	return TypeKey{Type: typ, Qualifier: q.Normalize()}
}

// Of returns the key for a parsed type.
func Of(t Type, q Qualifier) TypeKey {
	return TypeKey{Type: t.NonNull().String(), Qualifier: q.Normalize()}
}

// Parsed returns the parsed type of the key.
func (k TypeKey) Parsed() (Type, bool) {
	t, err := ParseType(k.Type)
	return t, err == nil
}

// WithQualifier returns a copy of k with a different qualifier.
func (k TypeKey) WithQualifier(q Qualifier) TypeKey {
	k.Qualifier = q.Normalize()
	return k
}

// Unqualified returns k without its qualifier.
func (k TypeKey) Unqualified() TypeKey { return TypeKey{Type: k.Type} }

// IsZero reports whether k is the zero key.
func (k TypeKey) IsZero() bool { return k.Type == "" }

// Render formats the key for diagnostics. With short set, package prefixes
// are dropped from type names.
func (k TypeKey) Render(short bool) string {
	typ := k.Type
	if short {
		if t, ok := k.Parsed(); ok {
			typ = t.Short()
		}
	}
	if q := k.Qualifier.String(); q != "" {
		return q + " " + typ
	}
	return typ
}

// String renders the fully qualified form.
func (k TypeKey) String() string { return k.Render(false) }

// Compare orders keys by type then qualifier. Used for deterministic output.
func (k TypeKey) Compare(o TypeKey) int {
	if c := strings.Compare(k.Type, o.Type); c != 0 {
		return c
	}
	if c := strings.Compare(k.Qualifier.Name, o.Qualifier.Name); c != 0 {
		return c
	}
	return strings.Compare(k.Qualifier.Value, o.Qualifier.Value)
}

// Wrapping classifies how a dependency is requested.
type Wrapping int

const (
	// Plain is a direct, eager request for T.
	Plain Wrapping = iota
	// ProviderWrap is a request for Provider<T>.
	ProviderWrap
	// LazyWrap is a request for Lazy<T>.
	LazyWrap
	// ProviderOfLazy is a request for Provider<Lazy<T>>.
	ProviderOfLazy
)

// String returns the wrapper name.
func (w Wrapping) String() string {
	switch w {
	case Plain:
		return "plain"
	case ProviderWrap:
		return "provider"
	case LazyWrap:
		return "lazy"
	case ProviderOfLazy:
		return "provider-of-lazy"
	}
	return fmt.Sprintf("Wrapping(%d)", int(w))
}

// Deferred reports whether the wrapper defers construction of the value.
func (w Wrapping) Deferred() bool { return w != Plain }

// Contextual is a request for a TypeKey in a particular wrapping.
type Contextual struct {
	Key        TypeKey  `json:"key" yaml:"key" toml:"key"`
	Wrap       Wrapping `json:"wrap,omitempty" yaml:"wrap,omitempty" toml:"wrap,omitempty"`
	Nullable   bool     `json:"nullable,omitempty" yaml:"nullable,omitempty" toml:"nullable,omitempty"`
	HasDefault bool     `json:"has_default,omitempty" yaml:"has_default,omitempty" toml:"has_default,omitempty"`
}

// PlainOf returns a plain request for k.
func PlainOf(k TypeKey) Contextual { return Contextual{Key: k} }

// ParseContextual derives a request from a declared type string, unwrapping
// Provider and Lazy.
func ParseContextual(typ string, q Qualifier, hasDefault bool) (Contextual, error) {
	t, err := ParseType(typ)
	if err != nil {
		return Contextual{}, err
	}
	return ContextualOf(t, q, hasDefault)
}

// ContextualOf is ParseContextual for an already parsed type.
func ContextualOf(t Type, q Qualifier, hasDefault bool) (Contextual, error) {
	wrap := Plain
	inner := t
	switch {
	case t.Is(ProviderName, 1):
		inner = t.Args[0]
		wrap = ProviderWrap
		if inner.Is(LazyName, 1) {
			inner = inner.Args[0]
			wrap = ProviderOfLazy
		}
	case t.Is(LazyName, 1):
		inner = t.Args[0]
		wrap = LazyWrap
	}
	if isWrapper(inner) || (wrap == Plain && (t.Name == ProviderName || t.Name == LazyName)) {
		return Contextual{}, fmt.Errorf("%w: %s", ErrInvalidWrapping, t)
	}
	return Contextual{
		Key:        Of(inner, q),
		Wrap:       wrap,
		Nullable:   inner.Nullable,
		HasDefault: hasDefault,
	}, nil
}

func isWrapper(t Type) bool {
	return t.Name == ProviderName || t.Name == LazyName
}

// Raw returns the underlying TypeKey used for binding lookup.
func (c Contextual) Raw() TypeKey { return c.Key }

// Deferred reports whether the request is Provider- or Lazy-wrapped.
func (c Contextual) Deferred() bool { return c.Wrap.Deferred() }

// Render formats the request with its wrapping, e.g. Provider<Lazy<Foo>>.
func (c Contextual) Render(short bool) string {
	inner := c.Key.Render(short)
	if c.Nullable {
		inner += "?"
	}
	switch c.Wrap {
	case ProviderWrap:
		return ProviderName + "<" + inner + ">"
	case LazyWrap:
		return LazyName + "<" + inner + ">"
	case ProviderOfLazy:
		return ProviderName + "<" + LazyName + "<" + inner + ">>"
	}
	return inner
}

// String renders the fully qualified form.
func (c Contextual) String() string { return c.Render(false) }
