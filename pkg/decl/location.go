package decl

import "fmt"

// UnknownLocation is how a [Location] without a file renders.
const UnknownLocation = "unknown location, possibly contributed"

// Location is a source position reported by the front-end.
type Location struct {
	File   string `json:"file,omitempty" yaml:"file,omitempty" toml:"file,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty" toml:"line,omitempty"`
	Column int    `json:"column,omitempty" yaml:"column,omitempty" toml:"column,omitempty"`
}

// Known reports whether the location points into a file.
func (l Location) Known() bool { return l.File != "" }

// String renders file:line:column, dropping trailing zero components.
func (l Location) String() string {
	switch {
	case !l.Known():
		return UnknownLocation
	case l.Line <= 0:
		return l.File
	case l.Column <= 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}
