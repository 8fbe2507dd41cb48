// Package decl is the read-only declaration model the resolver consumes.
//
// A [Module] is one compilation unit: the binding containers, dependency
// graphs, injectable classes and contributed graph extensions that a
// front-end extracted from source. bindgraph does not parse source itself;
// modules are loaded from YAML, TOML or JSON files that are validated
// against an embedded JSON schema before decoding.
//
// # Files
//
// A declaration file looks like this (YAML shown):
//
//	name: app
//	containers:
//	  - name: com.example.AppContainer
//	    members:
//	      - name: provideValue
//	        type: String
//	        provides: true
//	graphs:
//	  - name: com.example.AppGraph
//	    containers: [com.example.AppContainer]
//	    accessors:
//	      - name: value
//	        type: String
//
// Several files can be merged into one module with [Merge]; declaration
// names must stay unique per kind.
//
// # Types
//
// Types are strings of the form Name<Arg, ...> with an optional trailing
// '?' for nullability; see package key for the grammar. Provider<T> and
// Lazy<T> request deferred access, Set<E> and Map<K, V> are multibindings.
//
// # Locations
//
// Every declaration carries a [Location]. Declarations loaded from metadata
// of a separately compiled module have none; diagnostics render them as
// "unknown location, possibly contributed".
package decl
