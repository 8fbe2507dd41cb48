// Package metadata is the persisted cross-module view of binding containers
// and graphs.
//
// When a container is resolved from source, its [Record] is written so a
// separately compiled consumer can discover the same providers, binds,
// transitive includes and scopes without access to the source. Records are
// encoded as JSON with a stable field order; Encode(Decode(Encode(r))) is
// byte-identical to Encode(r).
//
// Source locations are not persisted. Bindings loaded from metadata render
// their location as "unknown location, possibly contributed".
package metadata
