package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds declaration names accepted from input files.
const maxNameLength = 512

// ValidateDeclarationName validates the fully qualified name of a container,
// graph or class. Names become cache keys and metadata identifiers, so they
// must be non-empty, printable, and free of whitespace.
func ValidateDeclarationName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidDeclaration, "declaration name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidDeclaration, "declaration name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidDeclaration, "declaration name %q contains whitespace or control characters", name)
		}
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return New(ErrCodeInvalidDeclaration, "declaration name %q has an empty path segment", name)
	}
	return nil
}

// memberNameRegex matches member (function or property) identifiers.
var memberNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// ValidateMemberName validates a member identifier inside a declaration.
func ValidateMemberName(name string) error {
	if !memberNameRegex.MatchString(name) {
		return New(ErrCodeInvalidDeclaration, "invalid member name: %q", name)
	}
	return nil
}

// ValidateScopeName validates a scope annotation name.
func ValidateScopeName(name string) error {
	if err := ValidateDeclarationName(strings.TrimPrefix(name, "@")); err != nil {
		return New(ErrCodeInvalidDeclaration, "invalid scope name: %q", name)
	}
	return nil
}
