// Package container resolves binding container declarations.
//
// [Resolver.FindContainer] turns one declaration into a [Container]: its
// provider factories, its binds mirror (aliases and multibinding
// declarations) and its declared includes. Local declarations are read
// from the module; external ones are loaded from persisted metadata. The
// result is memoized per container name for the lifetime of the resolver,
// including the "known empty" result.
//
// [Resolver.ResolveAllCached] computes the transitive closure of included
// containers for a set of roots. Include cycles are legal at this layer:
// they are broken by visited sets and never loop, so a container included
// by many graphs is resolved exactly once.
package container
