// Package httputil holds the HTTP plumbing shared by the bindgraph API:
// JSON responses, error mapping and request instrumentation.
//
// Errors carrying a [bgerrors.Code] are mapped to an HTTP status by
// [Status]; anything else is a 500. Error bodies have the form
//
//	{"error": {"code": "INVALID_SCHEMA", "message": "..."}}
//
// [Instrument] reports every request to the registered
// [observability.HTTPHooks], labelled with the chi route pattern rather
// than the raw path so metrics stay bounded.
package httputil
