// Package cache provides byte-oriented cache backends and an in-process
// compute-once memo.
//
// bindgraph persists cross-module binding metadata and resolved plans
// through the [Cache] interface. Backends:
//
//   - [NullCache]: stores nothing
//   - [MemoryCache]: process-local map, used by tests and the HTTP server
//   - [FileCache]: JSON entry files under a directory, the CLI default
//   - [RedisCache]: shared cache for build farms
//   - [MongoCache]: shared document store
//
// Keys are produced by a [Keyer] so every backend shares one layout.
//
// [Memo] is unrelated to persistence: it is the concurrent compute-once map
// the resolver uses for its per-session caches.
package cache
