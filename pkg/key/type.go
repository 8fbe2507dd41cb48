package key

import (
	"errors"
	"fmt"
	"strings"
)

// Well-known type names recognized by the resolver.
const (
	ProviderName = "Provider"
	LazyName     = "Lazy"
	SetName      = "Set"
	MapName      = "Map"
)

var (
	// ErrEmptyType is returned by [ParseType] for an empty or blank string.
	ErrEmptyType = errors.New("empty type")

	// ErrMalformedType is returned by [ParseType] when brackets are unbalanced
	// or a type argument is missing.
	ErrMalformedType = errors.New("malformed type expression")
)

// Type is a parsed type expression such as Map<String, Provider<Int>>.
type Type struct {
	Name     string
	Args     []Type
	Nullable bool
}

// ParseType parses a declared type string. Whitespace between tokens is ignored.
func ParseType(s string) (Type, error) {
	p := &typeParser{src: strings.TrimSpace(s)}
	if p.src == "" {
		return Type{}, ErrEmptyType
	}
	t, err := p.parse()
	if err != nil {
		return Type{}, fmt.Errorf("%w: %q", err, s)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Type{}, fmt.Errorf("%w: trailing input in %q", ErrMalformedType, s)
	}
	return t, nil
}

// MustParseType is like ParseType but panics on error. Intended for tests and
// package-level constants.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String renders the canonical form, e.g. "Map<String, Int>?".
func (t Type) String() string {
	var b strings.Builder
	t.write(&b, false)
	return b.String()
}

// Short renders the type with package prefixes stripped from every name.
func (t Type) Short() string {
	var b strings.Builder
	t.write(&b, true)
	return b.String()
}

func (t Type) write(b *strings.Builder, short bool) {
	name := t.Name
	if short {
		name = shortName(name)
	}
	b.WriteString(name)
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, a := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			a.write(b, short)
		}
		b.WriteByte('>')
	}
	if t.Nullable {
		b.WriteByte('?')
	}
}

// Is reports whether the type has the given name and arity.
func (t Type) Is(name string, arity int) bool {
	return t.Name == name && len(t.Args) == arity
}

// NonNull returns a copy of t with the nullable marker cleared.
func (t Type) NonNull() Type {
	t.Nullable = false
	return t
}

// SetElement returns E for Set<E>.
func (t Type) SetElement() (Type, bool) {
	if !t.Is(SetName, 1) {
		return Type{}, false
	}
	return t.Args[0], true
}

// MapEntry returns K and V for Map<K, V>.
func (t Type) MapEntry() (k, v Type, ok bool) {
	if !t.Is(MapName, 2) {
		return Type{}, Type{}, false
	}
	return t.Args[0], t.Args[1], true
}

// SetOf builds Set<elem>.
func SetOf(elem Type) Type { return Type{Name: SetName, Args: []Type{elem}} }

// MapOf builds Map<k, v>.
func MapOf(k, v Type) Type { return Type{Name: MapName, Args: []Type{k, v}} }

// ProviderOf builds Provider<t>.
func ProviderOf(t Type) Type { return Type{Name: ProviderName, Args: []Type{t}} }

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) parse() (Type, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return Type{}, ErrMalformedType
	}
	t := Type{Name: p.src[start:p.pos]}

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return Type{}, err
			}
			t.Args = append(t.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return Type{}, ErrMalformedType
			}
			c := p.src[p.pos]
			p.pos++
			if c == '>' {
				break
			}
			if c != ',' {
				return Type{}, ErrMalformedType
			}
		}
		p.skipSpace()
	}
	if p.pos < len(p.src) && p.src[p.pos] == '?' {
		t.Nullable = true
		p.pos++
	}
	return t, nil
}

func isNameByte(c byte) bool {
	return c == '.' || c == '_' || c == '$' || c == '*' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
