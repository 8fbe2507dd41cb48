// Package key defines the canonical identities used by the binding graph.
//
// # Type Keys
//
// A [TypeKey] is a raw type plus an optional [Qualifier]. Two requests for the
// same raw type with different qualifiers are distinct keys:
//
//	k1 := key.New("example.HttpClient", key.Qualifier{})
//	k2 := key.New("example.HttpClient", key.Named("authenticated"))
//	k1 == k2 // false
//
// TypeKey is a comparable value and may be used directly as a map key.
//
// # Contextual Keys
//
// A [Contextual] wraps a TypeKey with the way it is requested: plainly,
// through Provider<T>, Lazy<T>, or Provider<Lazy<T>>. Binding lookup always
// uses the unwrapped key (see [Contextual.Raw]); the wrapping is kept so the
// validator can tell eager edges from deferred ones.
//
// Use [ParseContextual] to derive a Contextual from a declared type string.
// Any other nesting of the wrapper types is rejected with [ErrInvalidWrapping].
//
// # Type Expressions
//
// Declared types are strings of the form Name<Arg, ...>, optionally followed
// by '?' for nullability. [ParseType] turns them into a [Type] tree which
// [Type.String] renders back canonically.
package key
