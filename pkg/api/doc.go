// Package api serves binding-graph resolution over HTTP.
//
// Routes:
//
//	GET  /healthz              liveness
//	GET  /version              build information
//	GET  /v1/schema            the declaration JSON schema
//	POST /v1/resolve           resolve a posted module, returns a session report
//	POST /v1/render            resolve and render one graph as DOT or SVG
//	GET  /v1/metadata/{name}   a persisted container or graph record
//	GET  /metrics              Prometheus metrics, when configured
//
// The request body of /v1/resolve and /v1/render is a declaration module
// in the format named by the "format" query parameter (yaml, toml or
// json). Without the parameter the Content-Type decides, defaulting to
// JSON. A report whose graphs carry diagnostics is still a 200; clients
// check the "ok" field.
package api
